package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

// GetLeaveTotals implements attendance.LeaveRepository. Only approved
// requests count; the overlap of each request with the month is summed
// per paid/unpaid leave type.
func (r *leaveRequestRepositoryImpl) GetLeaveTotals(ctx context.Context, period attendance.Period, employeeIDs []string) ([]attendance.LeaveTotals, error) {
	q := GetQuerier(ctx, r.db)

	start, end := period.Bounds(time.UTC)
	query := `
		SELECT
			lr.employee_id,
			COALESCE(SUM(CASE WHEN lt.is_paid THEN
				(LEAST(lr.end_date, $2::date - 1) - GREATEST(lr.start_date, $1::date) + 1)
				* CASE WHEN lr.is_half_day THEN 0.5 ELSE 1 END
			END), 0) AS paid_days,
			COALESCE(SUM(CASE WHEN NOT lt.is_paid THEN
				(LEAST(lr.end_date, $2::date - 1) - GREATEST(lr.start_date, $1::date) + 1)
				* CASE WHEN lr.is_half_day THEN 0.5 ELSE 1 END
			END), 0) AS unpaid_days
		FROM leave_requests lr
		JOIN leave_types lt ON lr.leave_type_id = lt.id
		WHERE lr.status = 'approved'
			AND lr.start_date < $2::date
			AND lr.end_date >= $1::date
	`
	args := []interface{}{start.Format("2006-01-02"), end.Format("2006-01-02")}

	if len(employeeIDs) > 0 {
		query += ` AND lr.employee_id = ANY($3)`
		args = append(args, employeeIDs)
	}
	query += ` GROUP BY lr.employee_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave totals: %w", err)
	}
	defer rows.Close()

	var totals []attendance.LeaveTotals
	for rows.Next() {
		var t attendance.LeaveTotals
		if err := rows.Scan(&t.EmployeeID, &t.PaidDays, &t.UnpaidDays); err != nil {
			return nil, fmt.Errorf("failed to scan leave totals: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave totals: %w", err)
	}

	return totals, nil
}

func NewLeaveRequestRepository(db *database.DB) attendance.LeaveRepository {
	return &leaveRequestRepositoryImpl{db: db}
}
