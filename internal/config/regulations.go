package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// yamlDecimal accepts plain numbers, quoted numbers and underscore digit
// grouping (46_800_000).
type yamlDecimal struct {
	decimal.Decimal
}

func (d *yamlDecimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(node.Value), "_", ""))
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", node.Line, node.Value)
	}
	d.Decimal = v
	return nil
}

type regulationFile struct {
	WorkingDaysPerMonth *yamlDecimal `yaml:"working_days_per_month"`
	WorkingHoursPerDay  *yamlDecimal `yaml:"working_hours_per_day"`
	WeekdayOvertimeRate *yamlDecimal `yaml:"weekday_overtime_rate"`
	WeekendOvertimeRate *yamlDecimal `yaml:"weekend_overtime_rate"`

	Employee struct {
		SocialInsuranceRate       *yamlDecimal `yaml:"social_insurance_rate"`
		HealthInsuranceRate       *yamlDecimal `yaml:"health_insurance_rate"`
		UnemploymentInsuranceRate *yamlDecimal `yaml:"unemployment_insurance_rate"`
		UnionFeeRate              *yamlDecimal `yaml:"union_fee_rate"`
	} `yaml:"employee"`

	Employer struct {
		SocialInsuranceRate       *yamlDecimal `yaml:"social_insurance_rate"`
		HealthInsuranceRate       *yamlDecimal `yaml:"health_insurance_rate"`
		UnemploymentInsuranceRate *yamlDecimal `yaml:"unemployment_insurance_rate"`
		UnionFeeRate              *yamlDecimal `yaml:"union_fee_rate"`
	} `yaml:"employer"`

	InsuranceSalaryCap    *yamlDecimal `yaml:"insurance_salary_cap"`
	UnemploymentSalaryCap *yamlDecimal `yaml:"unemployment_salary_cap"`
	PersonalDeduction     *yamlDecimal `yaml:"personal_deduction"`
	DependentDeduction    *yamlDecimal `yaml:"dependent_deduction"`

	ProgressiveTaxEnabled *bool `yaml:"progressive_tax_enabled"`
}

func (y *yamlDecimal) ptr() *decimal.Decimal {
	if y == nil {
		return nil
	}
	v := y.Decimal
	return &v
}

// LoadRegulationDefaults reads fallback regulations from a YAML file. Keys
// left out stay nil and resolve to the built-in defaults through
// Regulations.Effective. An empty path returns empty Regulations.
func LoadRegulationDefaults(path string) (payroll.Regulations, error) {
	if path == "" {
		return payroll.Regulations{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return payroll.Regulations{}, fmt.Errorf("failed to open regulation defaults: %w", err)
	}
	defer f.Close()

	return decodeRegulations(f)
}

func decodeRegulations(r io.Reader) (payroll.Regulations, error) {
	var file regulationFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return payroll.Regulations{}, fmt.Errorf("failed to parse regulation defaults: %w", err)
	}

	return payroll.Regulations{
		WorkingDaysPerMonth: file.WorkingDaysPerMonth.ptr(),
		WorkingHoursPerDay:  file.WorkingHoursPerDay.ptr(),
		WeekdayOvertimeRate: file.WeekdayOvertimeRate.ptr(),
		WeekendOvertimeRate: file.WeekendOvertimeRate.ptr(),

		SocialInsuranceRate:       file.Employee.SocialInsuranceRate.ptr(),
		HealthInsuranceRate:       file.Employee.HealthInsuranceRate.ptr(),
		UnemploymentInsuranceRate: file.Employee.UnemploymentInsuranceRate.ptr(),
		UnionFeeRate:              file.Employee.UnionFeeRate.ptr(),

		EmployerSocialInsuranceRate:       file.Employer.SocialInsuranceRate.ptr(),
		EmployerHealthInsuranceRate:       file.Employer.HealthInsuranceRate.ptr(),
		EmployerUnemploymentInsuranceRate: file.Employer.UnemploymentInsuranceRate.ptr(),
		EmployerUnionFeeRate:              file.Employer.UnionFeeRate.ptr(),

		InsuranceSalaryCap:    file.InsuranceSalaryCap.ptr(),
		UnemploymentSalaryCap: file.UnemploymentSalaryCap.ptr(),
		PersonalDeduction:     file.PersonalDeduction.ptr(),
		DependentDeduction:    file.DependentDeduction.ptr(),

		ProgressiveTaxEnabled: file.ProgressiveTaxEnabled,
	}, nil
}
