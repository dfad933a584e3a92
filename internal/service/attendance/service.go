package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	attendance.EmployeeDirectory
	attendance.LeaveRepository
	transactor database.Transactor
	parser     *Parser
	loc        *time.Location
}

// timePtrToString formats t in loc, or returns nil.
func timePtrToString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	format := t.In(loc).Format("2006-01-02 15:04:05")
	return &format
}

func mapAttendanceToResponse(rec attendance.Attendance, loc *time.Location) attendance.AttendanceResponse {
	var id *string
	if rec.ID != "" {
		v := rec.ID
		id = &v
	}

	m := MetricsFor(rec, loc)

	return attendance.AttendanceResponse{
		ID:                 id,
		EmployeeID:         rec.EmployeeID,
		Date:               rec.Date.Format("2006-01-02"),
		Day:                rec.Date.Day(),
		DayOfWeek:          rec.DayOfWeek,
		CheckInTime:        timePtrToString(rec.CheckInTime, loc),
		CheckOutTime:       timePtrToString(rec.CheckOutTime, loc),
		WorkValue:          rec.WorkValue,
		EstimatedWorkValue: m.EstimatedWorkValue,
		LateMinutes:        rec.LateMinutes,
		EarlyMinutes:       rec.EarlyMinutes,
		OvertimeHours:      rec.OvertimeHours,
		TotalMinutes:       rec.TotalMinutes,
		Status:             string(rec.Status),
		CheckoutInferred:   rec.CheckoutInferred(),
		Notes:              rec.Notes,
	}
}

// GetTimesheet implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetTimesheet(ctx context.Context, req attendance.TimesheetQuery) (attendance.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.TimesheetResponse{}, err
	}
	period := req.Period()

	records, err := s.AttendanceRepository.ListByPeriod(ctx, period, nil)
	if err != nil {
		return attendance.TimesheetResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}
	ts := LoadTimesheet(period, s.loc, records)
	records = ts.Records()

	byEmployee := make(map[string][]attendance.Attendance)
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
	}
	ids := slices.Sorted(maps.Keys(byEmployee))

	var leaves []attendance.LeaveTotals
	if len(ids) > 0 {
		leaves, err = s.LeaveRepository.GetLeaveTotals(ctx, period, ids)
		if err != nil {
			return attendance.TimesheetResponse{}, fmt.Errorf("failed to get leave totals: %w", err)
		}
	}
	summaries := SummarizeAll(period, ids, records, leaves)

	employees := make([]attendance.EmployeeTimesheet, 0, len(ids))
	for i, id := range ids {
		days := byEmployee[id]
		sheet := attendance.EmployeeTimesheet{
			EmployeeID: id,
			Days:       make([]attendance.AttendanceResponse, 0, len(days)),
			Summary:    attendance.NewSummaryResponse(summaries[i]),
		}
		for _, rec := range days {
			if sheet.EmployeeCode == "" && rec.EmployeeCode != nil {
				sheet.EmployeeCode = *rec.EmployeeCode
			}
			if sheet.EmployeeName == "" && rec.EmployeeName != nil {
				sheet.EmployeeName = *rec.EmployeeName
			}
			sheet.Days = append(sheet.Days, mapAttendanceToResponse(rec, s.loc))
		}
		employees = append(employees, sheet)
	}

	return attendance.TimesheetResponse{
		Month:             period.Month,
		Year:              period.Year,
		Employees:         employees,
		MissingInOutCount: ts.MissingInOutCount(),
	}, nil
}

// SaveTimesheet implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) SaveTimesheet(ctx context.Context, req attendance.SaveTimesheetRequest) (attendance.SaveTimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}
	period := attendance.Period{Month: req.Month, Year: req.Year}

	edited := make(map[CellKey]struct{}, len(req.Edits))
	employeeIDs := make(map[string]struct{})
	for _, e := range req.Edits {
		edited[CellKey{EmployeeID: e.EmployeeID, Day: e.Day}] = struct{}{}
		employeeIDs[e.EmployeeID] = struct{}{}
	}

	ts, err := s.loadTimesheet(ctx, period, slices.Sorted(maps.Keys(employeeIDs)))
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}

	next, err := ts.WithEdits(req.Edits)
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}

	ops := next.Changes()
	resp, err := s.persist(ctx, ops)
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}
	resp.Unchanged = len(edited) - len(ops)
	return resp, nil
}

// ImportTimesheet implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ImportTimesheet(ctx context.Context, req attendance.ImportTimesheetRequest) (attendance.ImportTimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ImportTimesheetResponse{}, err
	}
	period := attendance.Period{Month: req.Month, Year: req.Year}

	entries := s.parser.Parse(req.Content)
	if len(entries) == 0 {
		return attendance.ImportTimesheetResponse{}, attendance.ErrEmptyImport
	}

	codes := make(map[string]struct{})
	for _, e := range entries {
		codes[e.EmployeeCode] = struct{}{}
	}
	refs, err := s.EmployeeDirectory.GetByCodes(ctx, slices.Sorted(maps.Keys(codes)))
	if err != nil {
		return attendance.ImportTimesheetResponse{}, fmt.Errorf("failed to resolve employee codes: %w", err)
	}
	codeToID := make(map[string]string, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		codeToID[ref.Code] = ref.ID
		ids = append(ids, ref.ID)
	}

	var ts Timesheet
	if len(ids) > 0 {
		ts, err = s.loadTimesheet(ctx, period, ids)
		if err != nil {
			return attendance.ImportTimesheetResponse{}, err
		}
	} else {
		ts = LoadTimesheet(period, s.loc, nil)
	}

	next, report := ts.WithImportedRows(entries, codeToID)
	if report.SkippedOtherPeriod > 0 {
		slog.Warn("attendance import: rows outside the selected period ignored",
			"month", period.Month,
			"year", period.Year,
			"skipped", report.SkippedOtherPeriod,
		)
	}
	if len(report.UnknownEmployees) > 0 {
		slog.Warn("attendance import: unknown employee codes", "codes", report.UnknownEmployees)
	}

	saved, err := s.persist(ctx, next.Changes())
	if err != nil {
		return attendance.ImportTimesheetResponse{}, err
	}

	slog.Info("attendance import applied",
		"month", period.Month,
		"year", period.Year,
		"parsed", report.ParsedRows,
		"applied", report.AppliedCells,
		"created", saved.Created,
		"updated", saved.Updated,
	)

	return attendance.ImportTimesheetResponse{
		ParsedRows:         report.ParsedRows,
		AppliedCells:       report.AppliedCells,
		SkippedOtherPeriod: report.SkippedOtherPeriod,
		UnknownEmployees:   report.UnknownEmployees,
		Created:            saved.Created,
		Updated:            saved.Updated,
	}, nil
}

// ConfirmInferredCheckout implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ConfirmInferredCheckout(ctx context.Context, req attendance.ConfirmCheckoutRequest) (attendance.SaveTimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}
	period := attendance.Period{Month: req.Month, Year: req.Year}

	ts, err := s.loadTimesheet(ctx, period, []string{req.EmployeeID})
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}

	next, err := ts.WithConfirmedCheckout(CellKey{EmployeeID: req.EmployeeID, Day: req.Day})
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}

	return s.persist(ctx, next.Changes())
}

// GetMonthlySummaries implements attendance.AttendanceService.
// Records and leave totals are each fetched in a single call for the whole cohort.
func (s *AttendanceServiceImpl) GetMonthlySummaries(ctx context.Context, period attendance.Period, employeeIDs []string) ([]attendance.MonthlySummary, error) {
	if err := (&attendance.TimesheetQuery{Month: period.Month, Year: period.Year}).Validate(); err != nil {
		return nil, err
	}

	records, err := s.AttendanceRepository.ListByPeriod(ctx, period, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	leaves, err := s.LeaveRepository.GetLeaveTotals(ctx, period, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave totals: %w", err)
	}

	return SummarizeAll(period, employeeIDs, records, leaves), nil
}

func (s *AttendanceServiceImpl) loadTimesheet(ctx context.Context, period attendance.Period, employeeIDs []string) (Timesheet, error) {
	records, err := s.AttendanceRepository.ListByPeriod(ctx, period, employeeIDs)
	if err != nil {
		return Timesheet{}, fmt.Errorf("failed to list attendance: %w", err)
	}
	return LoadTimesheet(period, s.loc, records), nil
}

// persist writes ops in one transaction so a failed save leaves the month untouched.
func (s *AttendanceServiceImpl) persist(ctx context.Context, ops []Operation) (attendance.SaveTimesheetResponse, error) {
	var resp attendance.SaveTimesheetResponse
	if len(ops) == 0 {
		return resp, nil
	}

	err := s.transactor.RunInTx(ctx, func(ctx context.Context) error {
		for _, op := range ops {
			switch op.Kind {
			case OperationUpdate:
				if err := s.AttendanceRepository.Update(ctx, op.Record); err != nil {
					return fmt.Errorf("failed to update attendance %s: %w", op.Record.ID, err)
				}
				resp.Updated++
			case OperationCreate:
				if _, err := s.AttendanceRepository.Create(ctx, op.Record); err != nil {
					return fmt.Errorf("failed to create attendance for employee %s on %s: %w",
						op.Record.EmployeeID, op.Record.Date.Format("2006-01-02"), err)
				}
				resp.Created++
			}
		}
		return nil
	})
	if err != nil {
		return attendance.SaveTimesheetResponse{}, err
	}
	return resp, nil
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	employeeDirectory attendance.EmployeeDirectory,
	leaveRepo attendance.LeaveRepository,
	transactor database.Transactor,
	orgCode string,
	loc *time.Location,
) attendance.AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		EmployeeDirectory:    employeeDirectory,
		LeaveRepository:      leaveRepo,
		transactor:           transactor,
		parser:               NewParser(orgCode, loc),
		loc:                  loc,
	}
}
