package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
)

// RegulationRepository reads salary regulations.
type RegulationRepository interface {
	// GetLatest returns the newest regulation row, or ErrRegulationsNotFound.
	GetLatest(ctx context.Context) (Regulations, error)
}

// CompensationRepository reads payroll inputs for employees.
type CompensationRepository interface {
	// GetProfiles returns profiles for the given employees, or every active
	// employee when employeeIDs is empty.
	GetProfiles(ctx context.Context, employeeIDs []string) ([]CompensationProfile, error)
}

// PayrollRepository defines data access methods for payroll records.
type PayrollRepository interface {
	CreatePayrollRecord(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	UpdatePayrollRecord(ctx context.Context, record PayrollRecord) error
	GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (PayrollRecord, error)
	ListPayrollRecords(ctx context.Context, month, year int) ([]PayrollRecord, error)

	// ExistingKeys returns which of keys already have a record.
	ExistingKeys(ctx context.Context, keys []RecordKey) ([]RecordKey, error)

	// CreateBatch inserts records. Without overwrite an existing key fails
	// the whole call with *BatchConflictError; with overwrite existing
	// records are replaced.
	CreateBatch(ctx context.Context, records []PayrollRecord, overwrite bool) ([]PayrollRecord, error)
}

// PreviewStore keeps computed batches until they are committed or expire.
type PreviewStore interface {
	Save(ctx context.Context, preview BatchPreview, ttl time.Duration) error
	// Get returns ErrPreviewNotFound when the run is unknown or expired.
	Get(ctx context.Context, runID string) (BatchPreview, error)
	Delete(ctx context.Context, runID string) error
}

// SummaryProvider returns monthly attendance summaries for a cohort in one call.
type SummaryProvider interface {
	GetMonthlySummaries(ctx context.Context, period attendance.Period, employeeIDs []string) ([]attendance.MonthlySummary, error)
}
