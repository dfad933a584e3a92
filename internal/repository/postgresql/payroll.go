package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueEmployeePeriod = "uk_employee_period"

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== PAYROLL RECORDS ==========

const payrollInsertColumns = `
	run_id, regulation_id, employee_id, period_month, period_year, category,
	base_salary, total_allowances, total_bonuses, total_overtime_pay, gross_salary,
	total_insurance, income_tax, total_deductions, net_salary,
	allowances_detail, bonuses_detail, breakdown, created_by`

const payrollInsertValues = `($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const payrollUpsertClause = `
	ON CONFLICT ON CONSTRAINT uk_employee_period DO UPDATE SET
		run_id = EXCLUDED.run_id,
		regulation_id = EXCLUDED.regulation_id,
		category = EXCLUDED.category,
		base_salary = EXCLUDED.base_salary,
		total_allowances = EXCLUDED.total_allowances,
		total_bonuses = EXCLUDED.total_bonuses,
		total_overtime_pay = EXCLUDED.total_overtime_pay,
		gross_salary = EXCLUDED.gross_salary,
		total_insurance = EXCLUDED.total_insurance,
		income_tax = EXCLUDED.income_tax,
		total_deductions = EXCLUDED.total_deductions,
		net_salary = EXCLUDED.net_salary,
		allowances_detail = EXCLUDED.allowances_detail,
		bonuses_detail = EXCLUDED.bonuses_detail,
		breakdown = EXCLUDED.breakdown,
		created_by = EXCLUDED.created_by,
		updated_at = NOW()`

// insertArgs flattens a record into the payrollInsertColumns order. The full
// breakdown is stored as JSON; the scalar columns exist for reporting.
func insertArgs(record payroll.PayrollRecord) ([]interface{}, error) {
	allowancesJSON, err := json.Marshal(record.AllowancesDetail)
	if err != nil {
		return nil, fmt.Errorf("failed to encode allowances: %w", err)
	}
	bonusesJSON, err := json.Marshal(record.BonusesDetail)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bonuses: %w", err)
	}
	breakdownJSON, err := json.Marshal(record.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payroll breakdown: %w", err)
	}

	return []interface{}{
		record.RunID, record.RegulationID, record.EmployeeID, record.Month, record.Year, record.Category,
		record.BaseSalary, record.TotalAllowances, record.TotalBonuses, record.TotalOvertimePay, record.GrossSalary,
		record.TotalInsurance, record.IncomeTax, record.TotalDeductions, record.NetSalary,
		allowancesJSON, bonusesJSON, breakdownJSON, record.CreatedBy,
	}, nil
}

func isEmployeePeriodConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == uniqueEmployeePeriod
	}
	return false
}

func (r *payrollRepository) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	args, err := insertArgs(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `INSERT INTO payroll_records (` + payrollInsertColumns + `) VALUES ` + payrollInsertValues + `
		RETURNING id, created_at, updated_at`

	err = q.QueryRow(ctx, query, args...).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if isEmployeePeriodConflict(err) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return record, nil
}

// CreateBatch sends every insert in one round trip. Callers are expected to
// run it inside a transaction so a conflict leaves nothing behind.
func (r *payrollRepository) CreateBatch(ctx context.Context, records []payroll.PayrollRecord, overwrite bool) ([]payroll.PayrollRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `INSERT INTO payroll_records (` + payrollInsertColumns + `) VALUES ` + payrollInsertValues
	if overwrite {
		query += payrollUpsertClause
	}
	query += ` RETURNING id, created_at, updated_at`

	batch := &pgx.Batch{}
	for _, record := range records {
		args, err := insertArgs(record)
		if err != nil {
			return nil, err
		}
		batch.Queue(query, args...)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	saved := make([]payroll.PayrollRecord, len(records))
	for i, record := range records {
		if err := results.QueryRow().Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
			if isEmployeePeriodConflict(err) {
				return nil, &payroll.BatchConflictError{Keys: []payroll.RecordKey{record.Key()}}
			}
			return nil, fmt.Errorf("failed to save payroll record for employee %s: %w", record.EmployeeID, err)
		}
		saved[i] = record
	}

	return saved, nil
}

func (r *payrollRepository) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) error {
	q := GetQuerier(ctx, r.db)

	args, err := insertArgs(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE payroll_records SET
			run_id = $1, regulation_id = $2, category = $6,
			base_salary = $7, total_allowances = $8, total_bonuses = $9,
			total_overtime_pay = $10, gross_salary = $11, total_insurance = $12,
			income_tax = $13, total_deductions = $14, net_salary = $15,
			allowances_detail = $16, bonuses_detail = $17, breakdown = $18,
			created_by = $19, updated_at = NOW()
		WHERE employee_id = $3 AND period_month = $4 AND period_year = $5
	`

	cmdTag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payroll record: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return payroll.ErrPayrollRecordNotFound
	}

	return nil
}

const payrollSelect = `
	SELECT pr.id, pr.run_id, pr.regulation_id, pr.breakdown, pr.created_by,
		   pr.created_at, pr.updated_at, e.employee_code, e.full_name
	FROM payroll_records pr
	JOIN employees e ON pr.employee_id = e.id`

func scanPayrollRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var (
		rec            payroll.PayrollRecord
		breakdownBytes []byte
		code, name     string
	)
	if err := row.Scan(
		&rec.ID, &rec.RunID, &rec.RegulationID, &breakdownBytes, &rec.CreatedBy,
		&rec.CreatedAt, &rec.UpdatedAt, &code, &name,
	); err != nil {
		return payroll.PayrollRecord{}, err
	}
	if err := json.Unmarshal(breakdownBytes, &rec.Result); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode payroll breakdown %s: %w", rec.ID, err)
	}
	rec.EmployeeCode = code
	rec.EmployeeName = name
	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := payrollSelect + `
		WHERE pr.employee_id = $1 AND pr.period_month = $2 AND pr.period_year = $3
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, employeeID, month, year))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) ListPayrollRecords(ctx context.Context, month, year int) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := payrollSelect + `
		WHERE pr.period_month = $1 AND pr.period_year = $2
		ORDER BY e.employee_code
	`

	rows, err := q.Query(ctx, query, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll records: %w", err)
	}

	return records, nil
}

func (r *payrollRepository) ExistingKeys(ctx context.Context, keys []payroll.RecordKey) ([]payroll.RecordKey, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	employeeIDs := make([]string, len(keys))
	months := make([]int32, len(keys))
	years := make([]int32, len(keys))
	for i, k := range keys {
		employeeIDs[i] = k.EmployeeID
		months[i] = int32(k.Month)
		years[i] = int32(k.Year)
	}

	query := `
		SELECT pr.employee_id::text, pr.period_month, pr.period_year
		FROM payroll_records pr
		JOIN unnest($1::text[], $2::int[], $3::int[]) AS k(employee_id, period_month, period_year)
			ON pr.employee_id::text = k.employee_id
			AND pr.period_month = k.period_month
			AND pr.period_year = k.period_year
		ORDER BY pr.employee_id
	`

	rows, err := q.Query(ctx, query, employeeIDs, months, years)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payroll records: %w", err)
	}
	defer rows.Close()

	var existing []payroll.RecordKey
	for rows.Next() {
		var k payroll.RecordKey
		if err := rows.Scan(&k.EmployeeID, &k.Month, &k.Year); err != nil {
			return nil, fmt.Errorf("failed to scan payroll key: %w", err)
		}
		existing = append(existing, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll keys: %w", err)
	}

	return existing, nil
}
