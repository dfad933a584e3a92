package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

// GetByCodes implements attendance.EmployeeDirectory.
func (e *employeeRepositoryImpl) GetByCodes(ctx context.Context, codes []string) ([]attendance.EmployeeRef, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT id, employee_code, full_name
		FROM employees
		WHERE employee_code = ANY($1) AND deleted_at IS NULL
	`

	rows, err := q.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees by code: %w", err)
	}
	defer rows.Close()

	var refs []attendance.EmployeeRef
	for rows.Next() {
		var ref attendance.EmployeeRef
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return refs, nil
}

// GetProfiles implements payroll.CompensationRepository.
func (e *employeeRepositoryImpl) GetProfiles(ctx context.Context, employeeIDs []string) ([]payroll.CompensationProfile, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT e.id, e.employee_code, e.full_name, COALESCE(p.name, ''),
			   COALESCE(e.base_salary, 0), e.dependents, e.marital_status = 'married',
			   COALESCE(e.children_count, 0), e.personal_deduction_override,
			   COALESCE(
				   (SELECT jsonb_object_agg(ea.category, ea.amount)
				    FROM employee_allowances ea
				    WHERE ea.employee_id = e.id),
				   '{}'::jsonb
			   ) AS allowances
		FROM employees e
		LEFT JOIN positions p ON e.position_id = p.id
		WHERE e.deleted_at IS NULL
	`
	var args []interface{}
	if len(employeeIDs) > 0 {
		query += ` AND e.id = ANY($1)`
		args = append(args, employeeIDs)
	} else {
		query += ` AND e.employment_status = 'active'`
	}
	query += ` ORDER BY e.employee_code`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get compensation profiles: %w", err)
	}
	defer rows.Close()

	var profiles []payroll.CompensationProfile
	for rows.Next() {
		var (
			p              payroll.CompensationProfile
			dependents     *int32
			allowanceBytes []byte
		)
		if err := rows.Scan(
			&p.EmployeeID, &p.EmployeeCode, &p.FullName, &p.PositionTitle,
			&p.BaseSalary, &dependents, &p.Married,
			&p.ChildrenCount, &p.PersonalDeductionOverride,
			&allowanceBytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan compensation profile: %w", err)
		}
		if dependents != nil {
			n := int(*dependents)
			p.Dependents = &n
		}
		p.Allowances = make(map[string]decimal.Decimal)
		if err := json.Unmarshal(allowanceBytes, &p.Allowances); err != nil {
			return nil, fmt.Errorf("failed to decode allowances for employee %s: %w", p.EmployeeID, err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compensation profiles: %w", err)
	}

	return profiles, nil
}

func NewEmployeeDirectory(db *database.DB) attendance.EmployeeDirectory {
	return &employeeRepositoryImpl{db: db}
}

func NewCompensationRepository(db *database.DB) payroll.CompensationRepository {
	return &employeeRepositoryImpl{db: db}
}
