package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var conflict *payroll.BatchConflictError
	if errors.As(err, &conflict) {
		BatchConflict(w, conflict)
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDayOutOfPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrNothingToConfirm):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrEmptyImport):
		BadRequest(w, "No attendance rows found in import", nil)

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPreviewNotFound):
		NotFound(w, "Payroll preview not found or expired")
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrRegulationsNotFound):
		NotFound(w, "Salary regulations not found")
	case errors.Is(err, payroll.ErrPayrollRecordAlreadyExists):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrEmptyBatch):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrEmployeeHasNoBaseSalary):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
