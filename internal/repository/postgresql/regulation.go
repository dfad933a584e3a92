package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type regulationRepository struct {
	db *database.DB
}

func NewRegulationRepository(db *database.DB) payroll.RegulationRepository {
	return &regulationRepository{db: db}
}

// GetLatest implements payroll.RegulationRepository.
func (r *regulationRepository) GetLatest(ctx context.Context) (payroll.Regulations, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, effective_from,
			   working_days_per_month, working_hours_per_day,
			   weekday_overtime_rate, weekend_overtime_rate,
			   social_insurance_rate, health_insurance_rate,
			   unemployment_insurance_rate, union_fee_rate,
			   employer_social_insurance_rate, employer_health_insurance_rate,
			   employer_unemployment_insurance_rate, employer_union_fee_rate,
			   insurance_salary_cap, unemployment_salary_cap,
			   personal_deduction, dependent_deduction,
			   progressive_tax_enabled, created_at
		FROM salary_regulations
		WHERE effective_from <= CURRENT_DATE
		ORDER BY effective_from DESC, created_at DESC
		LIMIT 1
	`

	var reg payroll.Regulations
	err := q.QueryRow(ctx, query).Scan(
		&reg.ID, &reg.EffectiveFrom,
		&reg.WorkingDaysPerMonth, &reg.WorkingHoursPerDay,
		&reg.WeekdayOvertimeRate, &reg.WeekendOvertimeRate,
		&reg.SocialInsuranceRate, &reg.HealthInsuranceRate,
		&reg.UnemploymentInsuranceRate, &reg.UnionFeeRate,
		&reg.EmployerSocialInsuranceRate, &reg.EmployerHealthInsuranceRate,
		&reg.EmployerUnemploymentInsuranceRate, &reg.EmployerUnionFeeRate,
		&reg.InsuranceSalaryCap, &reg.UnemploymentSalaryCap,
		&reg.PersonalDeduction, &reg.DependentDeduction,
		&reg.ProgressiveTaxEnabled, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Regulations{}, payroll.ErrRegulationsNotFound
		}
		return payroll.Regulations{}, fmt.Errorf("failed to get latest salary regulations: %w", err)
	}

	return reg, nil
}
