package attendance

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

// Standard workday: 08:30 to 17:30, credited as 8 working hours.
const (
	WorkdayStartMinutes = 8*60 + 30
	WorkdayEndMinutes   = 17*60 + 30
	StandardDayMinutes  = 480
)

var (
	standardDayHours = decimal.NewFromInt(8)
	secondsPerHour   = decimal.NewFromInt(3600)
	one              = decimal.NewFromInt(1)
)

var timeOfDayRegex = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

var workdayEnd = TimeOfDay{Hour: 17, Minute: 30}

// ParseTimeOfDay accepts H:MM, HH:MM and an optional :SS suffix. Anything
// else, including out-of-range components, yields ok == false.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	m := timeOfDayRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TimeOfDay{}, false
	}

	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || sec > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: h, Minute: mi, Second: sec}, true
}

// TimeOfDayFrom reads the wall clock of t in loc.
func TimeOfDayFrom(t time.Time, loc *time.Location) TimeOfDay {
	if loc != nil {
		t = t.In(loc)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// MinutesOfDay ignores seconds.
func (t TimeOfDay) MinutesOfDay() int {
	return t.Hour*60 + t.Minute
}

// On places the time on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, t.Second, 0, date.Location())
}

func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return strconv.Itoa(t.Hour) + ":" + pad2(t.Minute) + ":" + pad2(t.Second)
	}
	return pad2(t.Hour) + ":" + pad2(t.Minute)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// DayMetrics is everything derived from one day's raw check-in/check-out.
type DayMetrics struct {
	CheckIn      *time.Time
	CheckOut     *time.Time
	LateMinutes  int
	EarlyMinutes int

	// WorkValue is what gets persisted: zero unless both times were observed.
	WorkValue decimal.Decimal

	// EstimatedWorkValue assumes a 17:30 checkout when only check-in exists.
	EstimatedWorkValue decimal.Decimal

	OvertimeHours    decimal.Decimal
	Status           attendance.Status
	CheckoutInferred bool
}

// TotalMinutes is round(work_value * 480).
func (m DayMetrics) TotalMinutes() int {
	return int(m.WorkValue.Mul(decimal.NewFromInt(StandardDayMinutes)).Round(0).IntPart())
}

// Evaluate derives the day's figures from raw time strings. Unparseable
// times count as absent.
func Evaluate(date time.Time, checkIn, checkOut string) DayMetrics {
	var in, out *TimeOfDay
	if t, ok := ParseTimeOfDay(checkIn); ok {
		in = &t
	}
	if t, ok := ParseTimeOfDay(checkOut); ok {
		out = &t
	}
	return evaluate(date, in, out)
}

func evaluate(date time.Time, in, out *TimeOfDay) DayMetrics {
	m := DayMetrics{
		WorkValue:          decimal.Zero,
		EstimatedWorkValue: decimal.Zero,
		OvertimeHours:      decimal.Zero,
		Status:             attendance.StatusAbsent,
	}

	if in != nil {
		t := in.On(date)
		m.CheckIn = &t
		m.LateMinutes = max(0, in.MinutesOfDay()-WorkdayStartMinutes)
	}
	if out != nil {
		t := out.On(date)
		m.CheckOut = &t
		m.EarlyMinutes = max(0, WorkdayEndMinutes-out.MinutesOfDay())
	}

	switch {
	case in != nil && out != nil:
		hours := workedHours(*m.CheckIn, *m.CheckOut)
		m.WorkValue = workValue(hours)
		m.EstimatedWorkValue = m.WorkValue
		m.Status = statusFor(m.WorkValue, IsWeekend(date))
		m.OvertimeHours = overtimeHours(hours, m.WorkValue, IsWeekend(date))
	case in != nil:
		// Incomplete: persisted as absent, but the UI gets an estimate.
		m.CheckoutInferred = true
		m.EstimatedWorkValue = workValue(workedHours(*m.CheckIn, workdayEnd.On(date)))
	}

	return m
}

func workedHours(in, out time.Time) decimal.Decimal {
	secs := decimal.NewFromInt(int64(out.Sub(in) / time.Second))
	hours := secs.Div(secondsPerHour)
	if hours.IsNegative() {
		return decimal.Zero
	}
	return hours
}

func workValue(hours decimal.Decimal) decimal.Decimal {
	wv := hours.Div(standardDayHours).Round(2)
	if wv.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if wv.GreaterThan(one) {
		return one
	}
	return wv
}

func statusFor(wv decimal.Decimal, weekend bool) attendance.Status {
	switch {
	case wv.IsZero():
		return attendance.StatusAbsent
	case weekend:
		return attendance.StatusWeekendOvertime
	case wv.GreaterThanOrEqual(one):
		return attendance.StatusPresentFull
	default:
		return attendance.StatusPresentHalf
	}
}

func overtimeHours(hours, wv decimal.Decimal, weekend bool) decimal.Decimal {
	if weekend {
		if wv.IsPositive() {
			return hours.Round(2)
		}
		return decimal.Zero
	}
	if wv.GreaterThanOrEqual(one) {
		return decimal.Max(decimal.Zero, hours.Sub(standardDayHours)).Round(2)
	}
	return decimal.Zero
}

// IsWeekend reports Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

var dayLabels = [...]string{"CN", "T2", "T3", "T4", "T5", "T6", "T7"}

// DayOfWeekLabel returns the short Vietnamese weekday label (CN, T2..T7).
func DayOfWeekLabel(date time.Time) string {
	return dayLabels[date.Weekday()]
}

// BuildRecord turns one raw cell into an attendance record for date.
// Incomplete days keep the observed timestamp with work value 0 and status
// absent; a missing checkout is flagged through the notes marker.
func BuildRecord(employeeID string, date time.Time, checkIn, checkOut string, notes *string) attendance.Attendance {
	return recordFromMetrics(employeeID, date, Evaluate(date, checkIn, checkOut), notes)
}

func recordFromMetrics(employeeID string, date time.Time, m DayMetrics, notes *string) attendance.Attendance {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	rec := attendance.Attendance{
		EmployeeID:    employeeID,
		Date:          day,
		CheckInTime:   m.CheckIn,
		CheckOutTime:  m.CheckOut,
		WorkValue:     m.WorkValue,
		LateMinutes:   m.LateMinutes,
		EarlyMinutes:  m.EarlyMinutes,
		OvertimeHours: m.OvertimeHours,
		TotalMinutes:  m.TotalMinutes(),
		Status:        m.Status,
		DayOfWeek:     DayOfWeekLabel(day),
	}

	switch {
	case m.CheckoutInferred:
		marker := attendance.NoteCheckoutInferred
		rec.Notes = &marker
	case notes != nil && *notes != "" && *notes != attendance.NoteCheckoutInferred:
		n := *notes
		rec.Notes = &n
	}
	return rec
}

// MetricsFor recomputes the metrics of a stored record, e.g. to show the
// estimated work value of an incomplete day.
func MetricsFor(rec attendance.Attendance, loc *time.Location) DayMetrics {
	var in, out *TimeOfDay
	if rec.CheckInTime != nil {
		t := TimeOfDayFrom(*rec.CheckInTime, loc)
		in = &t
	}
	if rec.CheckOutTime != nil {
		t := TimeOfDayFrom(*rec.CheckOutTime, loc)
		out = &t
	}
	date := rec.Date
	if loc != nil {
		date = time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(), 0, 0, 0, 0, loc)
	}
	return evaluate(date, in, out)
}
