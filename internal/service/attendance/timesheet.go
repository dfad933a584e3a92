package attendance

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

// CellKey addresses one cell of the month grid.
type CellKey struct {
	EmployeeID string
	Day        int
}

func keyOf(rec attendance.Attendance) CellKey {
	return CellKey{EmployeeID: rec.EmployeeID, Day: rec.Date.Day()}
}

func compareKeys(a, b CellKey) int {
	if c := strings.Compare(a.EmployeeID, b.EmployeeID); c != 0 {
		return c
	}
	return a.Day - b.Day
}

type snapshot struct {
	id    string
	value string
}

// Timesheet is an immutable month grid together with the snapshot taken when
// it was loaded. Every With* method returns a new grid.
type Timesheet struct {
	period   attendance.Period
	loc      *time.Location
	baseline map[CellKey]snapshot
	cells    map[CellKey]attendance.Attendance
}

// LoadTimesheet builds the grid from persisted records of the period.
// Records outside the period are ignored.
func LoadTimesheet(period attendance.Period, loc *time.Location, records []attendance.Attendance) Timesheet {
	if loc == nil {
		loc = time.UTC
	}
	ts := Timesheet{
		period:   period,
		loc:      loc,
		baseline: make(map[CellKey]snapshot, len(records)),
		cells:    make(map[CellKey]attendance.Attendance, len(records)),
	}
	for _, rec := range records {
		if !period.Contains(rec.Date) {
			continue
		}
		k := keyOf(rec)
		ts.cells[k] = rec
		ts.baseline[k] = snapshot{id: rec.ID, value: serializeCell(rec)}
	}
	return ts
}

// Period returns the month the grid covers.
func (t Timesheet) Period() attendance.Period {
	return t.period
}

// Cell returns the current cell for key.
func (t Timesheet) Cell(key CellKey) (attendance.Attendance, bool) {
	rec, ok := t.cells[key]
	return rec, ok
}

// Records returns the current cells ordered by employee and day.
func (t Timesheet) Records() []attendance.Attendance {
	keys := slices.SortedFunc(maps.Keys(t.cells), compareKeys)
	out := make([]attendance.Attendance, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.cells[k])
	}
	return out
}

func (t Timesheet) clone() Timesheet {
	return Timesheet{
		period:   t.period,
		loc:      t.loc,
		baseline: t.baseline,
		cells:    maps.Clone(t.cells),
	}
}

// put replaces the cell for rec, carrying over the persisted identity and
// joined employee fields of whatever was there.
func (t Timesheet) put(rec attendance.Attendance) {
	k := keyOf(rec)
	if snap, ok := t.baseline[k]; ok {
		rec.ID = snap.id
	}
	if prev, ok := t.cells[k]; ok {
		rec.CreatedAt = prev.CreatedAt
		if rec.EmployeeCode == nil {
			rec.EmployeeCode = prev.EmployeeCode
		}
		if rec.EmployeeName == nil {
			rec.EmployeeName = prev.EmployeeName
		}
	}
	t.cells[k] = rec
}

// WithEdits applies manual corrections. Each edit fully replaces its cell.
func (t Timesheet) WithEdits(edits []attendance.CellEdit) (Timesheet, error) {
	next := t.clone()
	daysIn := t.period.DaysIn()
	for _, e := range edits {
		if e.Day < 1 || e.Day > daysIn {
			return t, fmt.Errorf("edit for employee %s day %d: %w", e.EmployeeID, e.Day, attendance.ErrDayOutOfPeriod)
		}
		date := t.period.Date(e.Day, t.loc)
		next.put(BuildRecord(e.EmployeeID, date, e.CheckIn, e.CheckOut, e.Notes))
	}
	return next, nil
}

// ImportReport describes how a parsed export was applied to a grid.
type ImportReport struct {
	ParsedRows         int
	AppliedCells       int
	SkippedOtherPeriod int
	UnknownEmployees   []string
}

// WithImportedRows applies parsed export rows. Rows dated outside the grid's
// month are not applied, nor are rows whose code is missing from codeToID;
// both are counted in the report. A later row for the same cell wins.
func (t Timesheet) WithImportedRows(rows []ParsedEntry, codeToID map[string]string) (Timesheet, ImportReport) {
	next := t.clone()
	report := ImportReport{ParsedRows: len(rows)}
	unknown := make(map[string]struct{})

	for _, row := range rows {
		employeeID, ok := codeToID[row.EmployeeCode]
		if !ok {
			unknown[row.EmployeeCode] = struct{}{}
			continue
		}
		if !t.period.Contains(row.Date) {
			report.SkippedOtherPeriod++
			continue
		}

		date := t.period.Date(row.Date.Day(), t.loc)
		next.put(BuildRecord(employeeID, date, row.CheckIn, row.CheckOut, nil))
		report.AppliedCells++
	}

	report.UnknownEmployees = slices.Sorted(maps.Keys(unknown))
	return next, report
}

// WithConfirmedCheckout writes the assumed end-of-day checkout into a cell
// flagged as checkout inferred.
func (t Timesheet) WithConfirmedCheckout(key CellKey) (Timesheet, error) {
	cur, ok := t.cells[key]
	if !ok || cur.CheckInTime == nil || cur.CheckOutTime != nil {
		return t, attendance.ErrNothingToConfirm
	}

	date := t.period.Date(key.Day, t.loc)
	in := TimeOfDayFrom(*cur.CheckInTime, t.loc)
	out := workdayEnd
	rec := recordFromMetrics(key.EmployeeID, date, evaluate(date, &in, &out), cur.Notes)

	next := t.clone()
	next.put(rec)
	return next, nil
}

// OperationKind says how a changed cell must be persisted.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
)

// Operation is one pending write produced by Changes.
type Operation struct {
	Kind   OperationKind
	Record attendance.Attendance
}

// Changes diffs the grid against its load-time snapshot. Only cells whose
// serialized value differs are returned, ordered by employee and day.
func (t Timesheet) Changes() []Operation {
	keys := slices.SortedFunc(maps.Keys(t.cells), compareKeys)

	var ops []Operation
	for _, k := range keys {
		rec := t.cells[k]
		value := serializeCell(rec)

		snap, existed := t.baseline[k]
		switch {
		case existed && snap.value == value:
			continue
		case existed && snap.id != "":
			ops = append(ops, Operation{Kind: OperationUpdate, Record: rec})
		case !existed && isBlank(rec):
			// Nothing to persist for a cell that never existed and is still empty.
			continue
		default:
			ops = append(ops, Operation{Kind: OperationCreate, Record: rec})
		}
	}
	return ops
}

// MissingInOutCount counts cells with exactly one of check-in/check-out or
// with the inferred checkout marker.
func (t Timesheet) MissingInOutCount() int {
	n := 0
	for _, rec := range t.cells {
		if rec.IsIncomplete() || rec.CheckoutInferred() {
			n++
		}
	}
	return n
}

func isBlank(rec attendance.Attendance) bool {
	return rec.CheckInTime == nil && rec.CheckOutTime == nil && (rec.Notes == nil || *rec.Notes == "")
}

type cellValue struct {
	CheckIn       *string `json:"in"`
	CheckOut      *string `json:"out"`
	WorkValue     string  `json:"wv"`
	LateMinutes   int     `json:"late"`
	EarlyMinutes  int     `json:"early"`
	OvertimeHours string  `json:"ot"`
	TotalMinutes  int     `json:"total"`
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
}

func serializeCell(rec attendance.Attendance) string {
	v := cellValue{
		CheckIn:       utcString(rec.CheckInTime),
		CheckOut:      utcString(rec.CheckOutTime),
		WorkValue:     rec.WorkValue.StringFixed(2),
		LateMinutes:   rec.LateMinutes,
		EarlyMinutes:  rec.EarlyMinutes,
		OvertimeHours: rec.OvertimeHours.StringFixed(2),
		TotalMinutes:  rec.TotalMinutes,
		Status:        string(rec.Status),
		Notes:         rec.Notes,
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func utcString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// Summarize rolls one employee's records of the period up.
func Summarize(period attendance.Period, employeeID string, records []attendance.Attendance, leave attendance.LeaveTotals) attendance.MonthlySummary {
	s := attendance.MonthlySummary{
		EmployeeID:           employeeID,
		Month:                period.Month,
		Year:                 period.Year,
		TotalWorkDays:        decimal.Zero,
		TotalOvertimeDays:    decimal.Zero,
		PaidLeaveDays:        leave.PaidDays,
		UnpaidLeaveDays:      leave.UnpaidDays,
		TotalOvertimeHours:   decimal.Zero,
		WeekdayOvertimeHours: decimal.Zero,
		WeekendOvertimeHours: decimal.Zero,
	}

	for _, rec := range records {
		if rec.EmployeeID != employeeID || !period.Contains(rec.Date) {
			continue
		}

		switch rec.Status {
		case attendance.StatusPresentFull, attendance.StatusPresentHalf:
			s.TotalWorkDays = s.TotalWorkDays.Add(rec.WorkValue)
			s.WeekdayOvertimeHours = s.WeekdayOvertimeHours.Add(rec.OvertimeHours)
		case attendance.StatusWeekendOvertime:
			s.TotalWorkDays = s.TotalWorkDays.Add(rec.WorkValue)
			s.TotalOvertimeDays = s.TotalOvertimeDays.Add(rec.WorkValue)
			s.WeekendOvertimeHours = s.WeekendOvertimeHours.Add(rec.OvertimeHours)
		}
		s.TotalOvertimeHours = s.TotalOvertimeHours.Add(rec.OvertimeHours)
		s.TotalLateMinutes += rec.LateMinutes
		s.TotalEarlyMinutes += rec.EarlyMinutes
	}

	return s
}

// SummarizeAll summarizes every employee in employeeIDs, or every employee
// seen in records and leaves when employeeIDs is empty. Employees without
// records get a zero summary.
func SummarizeAll(period attendance.Period, employeeIDs []string, records []attendance.Attendance, leaves []attendance.LeaveTotals) []attendance.MonthlySummary {
	byEmployee := make(map[string][]attendance.Attendance)
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
	}
	leaveByEmployee := make(map[string]attendance.LeaveTotals, len(leaves))
	for _, l := range leaves {
		leaveByEmployee[l.EmployeeID] = l
	}

	ids := employeeIDs
	if len(ids) == 0 {
		seen := make(map[string]struct{}, len(byEmployee)+len(leaveByEmployee))
		for id := range byEmployee {
			seen[id] = struct{}{}
		}
		for id := range leaveByEmployee {
			seen[id] = struct{}{}
		}
		ids = slices.Sorted(maps.Keys(seen))
	}

	out := make([]attendance.MonthlySummary, 0, len(ids))
	for _, id := range ids {
		leave, ok := leaveByEmployee[id]
		if !ok {
			leave = attendance.LeaveTotals{EmployeeID: id, PaidDays: decimal.Zero, UnpaidDays: decimal.Zero}
		}
		out = append(out, Summarize(period, id, byEmployee[id], leave))
	}
	return out
}
