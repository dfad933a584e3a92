package attendance

import (
	"context"
)

// AttendanceService defines the timesheet operations
type AttendanceService interface {
	// GetTimesheet loads the month grid with per-employee summaries
	GetTimesheet(ctx context.Context, req TimesheetQuery) (TimesheetResponse, error)

	// SaveTimesheet applies manual cell edits and persists only changed cells
	SaveTimesheet(ctx context.Context, req SaveTimesheetRequest) (SaveTimesheetResponse, error)

	// ImportTimesheet parses a time-clock export and merges it into the month
	ImportTimesheet(ctx context.Context, req ImportTimesheetRequest) (ImportTimesheetResponse, error)

	// ConfirmInferredCheckout writes the assumed 17:30 checkout explicitly
	ConfirmInferredCheckout(ctx context.Context, req ConfirmCheckoutRequest) (SaveTimesheetResponse, error)

	// GetMonthlySummaries returns summaries for many employees in one round trip
	GetMonthlySummaries(ctx context.Context, period Period, employeeIDs []string) ([]MonthlySummary, error)
}
