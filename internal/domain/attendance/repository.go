package attendance

import (
	"context"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// ListByPeriod returns every record in the month. An empty employeeIDs
	// means all employees.
	ListByPeriod(ctx context.Context, period Period, employeeIDs []string) ([]Attendance, error)

	// Create creates a new attendance record
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// Update replaces an existing attendance record by ID
	Update(ctx context.Context, attendance Attendance) error
}

// EmployeeDirectory resolves normalized export codes (e.g. NV00012) to employees.
type EmployeeDirectory interface {
	GetByCodes(ctx context.Context, codes []string) ([]EmployeeRef, error)
}

// LeaveRepository reports approved leave totals per employee for a month.
type LeaveRepository interface {
	GetLeaveTotals(ctx context.Context, period Period, employeeIDs []string) ([]LeaveTotals, error)
}
