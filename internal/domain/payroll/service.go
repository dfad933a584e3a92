package payroll

import "context"

// PayrollService defines payroll batch operations
type PayrollService interface {
	// GetLatestRegulations returns the resolved rate table the next run will use
	GetLatestRegulations(ctx context.Context) (SalaryRegulations, error)

	// PreviewBatch computes payroll for a cohort without persisting it
	PreviewBatch(ctx context.Context, req PreviewBatchRequest) (BatchPreviewResponse, error)

	// CommitBatch persists a previewed batch, all or nothing
	CommitBatch(ctx context.Context, req CommitBatchRequest) (CommitBatchResponse, error)

	// RecalculateRecord recomputes one employee's payroll and saves it
	// directly, replacing an existing record only when asked to
	RecalculateRecord(ctx context.Context, req RecalculateRecordRequest) (RecalculateRecordResponse, error)

	// ListPayrollRecords returns committed records for a period
	ListPayrollRecords(ctx context.Context, month, year int) ([]PayrollRecordResponse, error)
}
