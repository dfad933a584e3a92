package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	a.id, a.employee_id, a.date, a.check_in_time, a.check_out_time,
	a.work_value, a.late_minutes, a.early_minutes, a.overtime_hours, a.total_minutes,
	a.status, a.notes, a.day_of_week, a.created_at, a.updated_at,
	e.employee_code, e.full_name`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := row.Scan(
		&att.ID, &att.EmployeeID, &att.Date, &att.CheckInTime, &att.CheckOutTime,
		&att.WorkValue, &att.LateMinutes, &att.EarlyMinutes, &att.OvertimeHours, &att.TotalMinutes,
		&att.Status, &att.Notes, &att.DayOfWeek, &att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeCode, &att.EmployeeName,
	)
	return att, err
}

// ListByPeriod implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByPeriod(ctx context.Context, period attendance.Period, employeeIDs []string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	start, end := period.Bounds(time.UTC)
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		JOIN employees e ON a.employee_id = e.id
		WHERE a.date >= $1::date AND a.date < $2::date
	`
	args := []interface{}{start.Format("2006-01-02"), end.Format("2006-01-02")}

	if len(employeeIDs) > 0 {
		query += ` AND a.employee_id = ANY($3)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY a.employee_id, a.date`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %02d/%d: %w", period.Month, period.Year, err)
	}
	defer rows.Close()

	var records []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance: %w", err)
	}

	return records, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (
			employee_id, date, check_in_time, check_out_time,
			work_value, late_minutes, early_minutes, overtime_hours, total_minutes,
			status, notes, day_of_week
		) VALUES (
			$1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.EmployeeID,
		newAttendance.Date.Format("2006-01-02"),
		newAttendance.CheckInTime,
		newAttendance.CheckOutTime,
		newAttendance.WorkValue,
		newAttendance.LateMinutes,
		newAttendance.EarlyMinutes,
		newAttendance.OvertimeHours,
		newAttendance.TotalMinutes,
		newAttendance.Status,
		newAttendance.Notes,
		newAttendance.DayOfWeek,
	).Scan(&newAttendance.ID, &newAttendance.CreatedAt, &newAttendance.UpdatedAt)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET check_in_time = $1, check_out_time = $2,
			work_value = $3, late_minutes = $4, early_minutes = $5,
			overtime_hours = $6, total_minutes = $7,
			status = $8, notes = $9, day_of_week = $10,
			updated_at = NOW()
		WHERE id = $11
	`

	tag, err := q.Exec(ctx, query,
		att.CheckInTime, att.CheckOutTime,
		att.WorkValue, att.LateMinutes, att.EarlyMinutes,
		att.OvertimeHours, att.TotalMinutes,
		att.Status, att.Notes, att.DayOfWeek,
		att.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance %s: %w", att.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
