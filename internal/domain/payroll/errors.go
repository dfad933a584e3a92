package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrRegulationsNotFound        = errors.New("salary regulations not found")
	ErrPayrollRecordNotFound      = errors.New("payroll record not found")
	ErrPayrollRecordAlreadyExists = errors.New("payroll record already exists for this period")
	ErrInvalidPeriod              = errors.New("invalid payroll period")
	ErrEmployeeHasNoBaseSalary    = errors.New("employee has no base salary configured")
	ErrEmployeeNotFound           = errors.New("employee not found")
	ErrPreviewNotFound            = errors.New("payroll preview not found or expired")
	ErrEmptyBatch                 = errors.New("no employees eligible for payroll in this batch")
)

// BatchConflictError is returned when a batch commit without overwrite hits
// existing records. It matches ErrPayrollRecordAlreadyExists with errors.Is.
type BatchConflictError struct {
	Keys []RecordKey
}

func (e *BatchConflictError) Error() string {
	return fmt.Sprintf("%s: %d conflicting record(s)", ErrPayrollRecordAlreadyExists.Error(), len(e.Keys))
}

func (e *BatchConflictError) Unwrap() error {
	return ErrPayrollRecordAlreadyExists
}
