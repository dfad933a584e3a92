package payroll

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== BATCH DTOs ==========

type PreviewBatchRequest struct {
	Month       int      `json:"month"`
	Year        int      `json:"year"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = all active employees

	// Entered on the payroll form for this run only, keyed by employee ID
	// then category.
	AdHocAllowances map[string]map[string]decimal.Decimal `json:"ad_hoc_allowances,omitempty"`
	Bonuses         map[string]map[string]decimal.Decimal `json:"bonuses,omitempty"`
}

func (r *PreviewBatchRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2000 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a four-digit year from 2000"})
	}
	for i, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids[" + validator.Itoa(i) + "]", Message: "must not be empty"})
		}
	}
	errs = append(errs, validateAmounts("ad_hoc_allowances", r.AdHocAllowances)...)
	errs = append(errs, validateAmounts("bonuses", r.Bonuses)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAmounts(field string, amounts map[string]map[string]decimal.Decimal) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for employeeID, byCategory := range amounts {
		for category, amount := range byCategory {
			if amount.IsNegative() {
				errs = append(errs, validator.ValidationError{
					Field:   field + "." + employeeID + "." + category,
					Message: "must be non-negative",
				})
			}
		}
	}
	return errs
}

type BatchTotals struct {
	Employees         int             `json:"employees"`
	GrossSalary       decimal.Decimal `json:"gross_salary"`
	TotalInsurance    decimal.Decimal `json:"total_insurance"`
	EmployerInsurance decimal.Decimal `json:"employer_insurance"`
	IncomeTax         decimal.Decimal `json:"income_tax"`
	NetSalary         decimal.Decimal `json:"net_salary"`
}

type BatchPreviewResponse struct {
	RunID       string            `json:"run_id"`
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	ExpiresAt   string            `json:"expires_at"`
	Regulations SalaryRegulations `json:"regulations"`
	Employees   []Result          `json:"employees"`
	Skipped     []SkippedEmployee `json:"skipped,omitempty"`
	Totals      BatchTotals       `json:"totals"`
}

type CommitBatchRequest struct {
	RunID     string `json:"-"`
	Overwrite bool   `json:"overwrite"`
}

func (r *CommitBatchRequest) Validate() error {
	if !validator.IsValidUUID(r.RunID) {
		return validator.ValidationErrors{{Field: "run_id", Message: "must be a valid UUID"}}
	}
	return nil
}

type CommitBatchResponse struct {
	RunID       string `json:"run_id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Saved       int    `json:"saved"`
	Overwritten int    `json:"overwritten"`
}

// ========== PAYROLL RECORD DTOs ==========

type RecalculateRecordRequest struct {
	EmployeeID string `json:"-"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Overwrite  bool   `json:"overwrite"`

	AdHocAllowances map[string]decimal.Decimal `json:"ad_hoc_allowances,omitempty"`
	Bonuses         map[string]decimal.Decimal `json:"bonuses,omitempty"`
}

func (r *RecalculateRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2000 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a four-digit year from 2000"})
	}
	errs = append(errs, validateAmounts("ad_hoc_allowances", map[string]map[string]decimal.Decimal{r.EmployeeID: r.AdHocAllowances})...)
	errs = append(errs, validateAmounts("bonuses", map[string]map[string]decimal.Decimal{r.EmployeeID: r.Bonuses})...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecalculateRecordResponse struct {
	Overwritten bool `json:"overwritten"`
	PayrollRecordResponse
}

type PayrollRecordResponse struct {
	ID           string  `json:"id"`
	RunID        string  `json:"run_id"`
	RegulationID *string `json:"regulation_id,omitempty"`
	CreatedBy    *string `json:"created_by,omitempty"`
	CreatedAt    string  `json:"created_at"`
	Result
}
