package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the day classification derived from the work value.
type Status string

const (
	StatusAbsent          Status = "absent"
	StatusPresentHalf     Status = "present_half"
	StatusPresentFull     Status = "present_full"
	StatusWeekendOvertime Status = "weekend_overtime"
)

// NoteCheckoutInferred is the reserved notes value marking a record whose
// checkout was assumed to be the end of the standard workday.
const NoteCheckoutInferred = "[checkout_inferred]"

// Attendance is one employee on one calendar day.
type Attendance struct {
	ID            string
	EmployeeID    string
	Date          time.Time
	CheckInTime   *time.Time
	CheckOutTime  *time.Time
	WorkValue     decimal.Decimal
	LateMinutes   int
	EarlyMinutes  int
	OvertimeHours decimal.Decimal
	TotalMinutes  int
	Status        Status
	Notes         *string
	DayOfWeek     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined fields
	EmployeeCode *string
	EmployeeName *string
}

// IsIncomplete reports whether exactly one of check-in/check-out is set.
func (a Attendance) IsIncomplete() bool {
	return (a.CheckInTime == nil) != (a.CheckOutTime == nil)
}

// CheckoutInferred reports whether the notes carry the inferred marker.
func (a Attendance) CheckoutInferred() bool {
	return a.Notes != nil && *a.Notes == NoteCheckoutInferred
}

// LeaveTotals is what the leave collaborator reports for one employee and month.
type LeaveTotals struct {
	EmployeeID string
	PaidDays   decimal.Decimal
	UnpaidDays decimal.Decimal
}

// MonthlySummary rolls one employee's month of records up. It is derived
// and never edited directly.
type MonthlySummary struct {
	EmployeeID           string
	Month                int
	Year                 int
	TotalWorkDays        decimal.Decimal
	TotalOvertimeDays    decimal.Decimal
	PaidLeaveDays        decimal.Decimal
	UnpaidLeaveDays      decimal.Decimal
	TotalOvertimeHours   decimal.Decimal
	WeekdayOvertimeHours decimal.Decimal
	WeekendOvertimeHours decimal.Decimal
	TotalLateMinutes     int
	TotalEarlyMinutes    int
}

// EmployeeRef identifies an employee resolved from an export code.
type EmployeeRef struct {
	ID       string
	Code     string
	FullName string
}

// Period is a calendar month.
type Period struct {
	Month int
	Year  int
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	return int(date.Month()) == p.Month && date.Year() == p.Year
}

// DaysIn returns the number of days in the period's month.
func (p Period) DaysIn() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Bounds returns the first day of the period and the first day of the next
// one, both at midnight in loc.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Date returns the given day of the period at midnight in loc.
func (p Period) Date(day int, loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, loc)
}
