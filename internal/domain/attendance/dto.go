package attendance

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// TIMESHEET DTOs
// ========================================

type TimesheetQuery struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (q *TimesheetQuery) Validate() error {
	return validatePeriod(q.Month, q.Year)
}

func (q TimesheetQuery) Period() Period {
	return Period{Month: q.Month, Year: q.Year}
}

// CellEdit is a manual correction of one (employee, day) cell. Times are
// "H:MM" or "HH:MM[:SS]"; empty means absent.
type CellEdit struct {
	EmployeeID string  `json:"employee_id"`
	Day        int     `json:"day"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Notes      *string `json:"notes,omitempty"`
}

type SaveTimesheetRequest struct {
	Month int        `json:"month"`
	Year  int        `json:"year"`
	Edits []CellEdit `json:"edits"`
}

func (r *SaveTimesheetRequest) Validate() error {
	if err := validatePeriod(r.Month, r.Year); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	if len(r.Edits) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "edits",
			Message: "at least one edit is required",
		})
	}
	daysIn := Period{Month: r.Month, Year: r.Year}.DaysIn()
	for i, e := range r.Edits {
		if validator.IsEmpty(e.EmployeeID) {
			errs = append(errs, validator.ValidationError{
				Field:   "edits[" + validator.Itoa(i) + "].employee_id",
				Message: "employee_id is required",
			})
		}
		if e.Day < 1 || e.Day > daysIn {
			errs = append(errs, validator.ValidationError{
				Field:   "edits[" + validator.Itoa(i) + "].day",
				Message: "day must be within the selected month",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ImportTimesheetRequest struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Content string `json:"content"`
}

func (r *ImportTimesheetRequest) Validate() error {
	if err := validatePeriod(r.Month, r.Year); err != nil {
		return err
	}
	if validator.IsEmpty(r.Content) {
		return validator.ValidationErrors{{Field: "content", Message: "import content is required"}}
	}
	return nil
}

type ConfirmCheckoutRequest struct {
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	EmployeeID string `json:"employee_id"`
	Day        int    `json:"day"`
}

func (r *ConfirmCheckoutRequest) Validate() error {
	if err := validatePeriod(r.Month, r.Year); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.Day < 1 || r.Day > (Period{Month: r.Month, Year: r.Year}).DaysIn() {
		errs = append(errs, validator.ValidationError{Field: "day", Message: "day must be within the selected month"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// RESPONSES
// ========================================

type AttendanceResponse struct {
	ID                 *string         `json:"id,omitempty"`
	EmployeeID         string          `json:"employee_id"`
	Date               string          `json:"date"`
	Day                int             `json:"day"`
	DayOfWeek          string          `json:"day_of_week"`
	CheckInTime        *string         `json:"check_in_time,omitempty"`
	CheckOutTime       *string         `json:"check_out_time,omitempty"`
	WorkValue          decimal.Decimal `json:"work_value"`
	EstimatedWorkValue decimal.Decimal `json:"estimated_work_value"`
	LateMinutes        int             `json:"late_minutes"`
	EarlyMinutes       int             `json:"early_minutes"`
	OvertimeHours      decimal.Decimal `json:"overtime_hours"`
	TotalMinutes       int             `json:"total_minutes"`
	Status             string          `json:"status"`
	CheckoutInferred   bool            `json:"checkout_inferred"`
	Notes              *string         `json:"notes,omitempty"`
}

type SummaryResponse struct {
	EmployeeID         string          `json:"employee_id"`
	TotalWorkDays      decimal.Decimal `json:"total_work_days"`
	TotalOvertimeDays  decimal.Decimal `json:"total_overtime_days"`
	PaidLeaveDays      decimal.Decimal `json:"paid_leave_days"`
	UnpaidLeaveDays    decimal.Decimal `json:"unpaid_leave_days"`
	TotalOvertimeHours decimal.Decimal `json:"total_overtime_hours"`
	WeekdayOTHours     decimal.Decimal `json:"weekday_overtime_hours"`
	WeekendOTHours     decimal.Decimal `json:"weekend_overtime_hours"`
	TotalLateMinutes   int             `json:"total_late_minutes"`
	TotalEarlyMinutes  int             `json:"total_early_minutes"`
}

func NewSummaryResponse(s MonthlySummary) SummaryResponse {
	return SummaryResponse{
		EmployeeID:         s.EmployeeID,
		TotalWorkDays:      s.TotalWorkDays,
		TotalOvertimeDays:  s.TotalOvertimeDays,
		PaidLeaveDays:      s.PaidLeaveDays,
		UnpaidLeaveDays:    s.UnpaidLeaveDays,
		TotalOvertimeHours: s.TotalOvertimeHours,
		WeekdayOTHours:     s.WeekdayOvertimeHours,
		WeekendOTHours:     s.WeekendOvertimeHours,
		TotalLateMinutes:   s.TotalLateMinutes,
		TotalEarlyMinutes:  s.TotalEarlyMinutes,
	}
}

type EmployeeTimesheet struct {
	EmployeeID   string               `json:"employee_id"`
	EmployeeCode string               `json:"employee_code"`
	EmployeeName string               `json:"employee_name"`
	Days         []AttendanceResponse `json:"days"`
	Summary      SummaryResponse      `json:"summary"`
}

type TimesheetResponse struct {
	Month             int                 `json:"month"`
	Year              int                 `json:"year"`
	Employees         []EmployeeTimesheet `json:"employees"`
	MissingInOutCount int                 `json:"missing_in_out_count"`
}

type SaveTimesheetResponse struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

type ImportTimesheetResponse struct {
	ParsedRows         int      `json:"parsed_rows"`
	AppliedCells       int      `json:"applied_cells"`
	SkippedOtherPeriod int      `json:"skipped_other_period"`
	UnknownEmployees   []string `json:"unknown_employees,omitempty"`
	Created            int      `json:"created"`
	Updated            int      `json:"updated"`
}

func validatePeriod(month, year int) error {
	var errs validator.ValidationErrors

	if month < 1 || month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if year < 2000 || year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a four-digit year from 2000"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
