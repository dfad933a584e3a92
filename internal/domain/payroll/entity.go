package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmploymentCategory selects the calculation branch.
type EmploymentCategory string

const (
	CategoryRegular   EmploymentCategory = "regular"
	CategoryIntern    EmploymentCategory = "intern"
	CategoryProbation EmploymentCategory = "probation"
)

// TaxMethod records how income tax was computed.
type TaxMethod string

const (
	TaxMethodProgressive TaxMethod = "progressive"
	TaxMethodFlat        TaxMethod = "flat"
)

// Allowance categories. AllowanceMeal is tax-exempt up to its prorated value.
const (
	AllowanceMeal       = "meal"
	AllowanceTransport  = "transport"
	AllowancePhone      = "phone"
	AllowanceAttendance = "attendance"
)

// Regulations is a stored regulation row. Nil fields were never configured
// and fall back to defaults through Effective.
type Regulations struct {
	ID            string
	EffectiveFrom time.Time

	WorkingDaysPerMonth *decimal.Decimal
	WorkingHoursPerDay  *decimal.Decimal
	WeekdayOvertimeRate *decimal.Decimal // percent, 150 = 1.5x
	WeekendOvertimeRate *decimal.Decimal

	SocialInsuranceRate       *decimal.Decimal // percent, employee side
	HealthInsuranceRate       *decimal.Decimal
	UnemploymentInsuranceRate *decimal.Decimal
	UnionFeeRate              *decimal.Decimal

	EmployerSocialInsuranceRate       *decimal.Decimal
	EmployerHealthInsuranceRate       *decimal.Decimal
	EmployerUnemploymentInsuranceRate *decimal.Decimal
	EmployerUnionFeeRate              *decimal.Decimal

	InsuranceSalaryCap    *decimal.Decimal
	UnemploymentSalaryCap *decimal.Decimal

	PersonalDeduction  *decimal.Decimal
	DependentDeduction *decimal.Decimal

	ProgressiveTaxEnabled *bool

	CreatedAt time.Time
}

// SalaryRegulations is the fully resolved rate table a batch runs against.
type SalaryRegulations struct {
	RegulationID string `json:"regulation_id,omitempty"`

	WorkingDaysPerMonth decimal.Decimal `json:"working_days_per_month"`
	WorkingHoursPerDay  decimal.Decimal `json:"working_hours_per_day"`
	WeekdayOvertimeRate decimal.Decimal `json:"weekday_overtime_rate"`
	WeekendOvertimeRate decimal.Decimal `json:"weekend_overtime_rate"`

	SocialInsuranceRate       decimal.Decimal `json:"social_insurance_rate"`
	HealthInsuranceRate       decimal.Decimal `json:"health_insurance_rate"`
	UnemploymentInsuranceRate decimal.Decimal `json:"unemployment_insurance_rate"`
	UnionFeeRate              decimal.Decimal `json:"union_fee_rate"`

	EmployerSocialInsuranceRate       decimal.Decimal `json:"employer_social_insurance_rate"`
	EmployerHealthInsuranceRate       decimal.Decimal `json:"employer_health_insurance_rate"`
	EmployerUnemploymentInsuranceRate decimal.Decimal `json:"employer_unemployment_insurance_rate"`
	EmployerUnionFeeRate              decimal.Decimal `json:"employer_union_fee_rate"`

	InsuranceSalaryCap    decimal.Decimal `json:"insurance_salary_cap"`
	UnemploymentSalaryCap decimal.Decimal `json:"unemployment_salary_cap"`

	PersonalDeduction  decimal.Decimal `json:"personal_deduction"`
	DependentDeduction decimal.Decimal `json:"dependent_deduction"`

	ProgressiveTaxEnabled bool `json:"progressive_tax_enabled"`
}

// DefaultRegulations are used for anything a regulation row leaves empty.
func DefaultRegulations() SalaryRegulations {
	return SalaryRegulations{
		WorkingDaysPerMonth: decimal.NewFromInt(22),
		WorkingHoursPerDay:  decimal.NewFromInt(8),
		WeekdayOvertimeRate: decimal.NewFromInt(150),
		WeekendOvertimeRate: decimal.NewFromInt(200),

		SocialInsuranceRate:       decimal.NewFromInt(8),
		HealthInsuranceRate:       decimal.RequireFromString("1.5"),
		UnemploymentInsuranceRate: decimal.NewFromInt(1),
		UnionFeeRate:              decimal.Zero,

		EmployerSocialInsuranceRate:       decimal.RequireFromString("17.5"),
		EmployerHealthInsuranceRate:       decimal.NewFromInt(3),
		EmployerUnemploymentInsuranceRate: decimal.NewFromInt(1),
		EmployerUnionFeeRate:              decimal.NewFromInt(2),

		InsuranceSalaryCap:    decimal.NewFromInt(46_800_000),
		UnemploymentSalaryCap: decimal.NewFromInt(99_200_000),

		PersonalDeduction:  decimal.NewFromInt(11_000_000),
		DependentDeduction: decimal.NewFromInt(4_400_000),

		ProgressiveTaxEnabled: true,
	}
}

// Effective resolves r over defaults. Non-positive working days or hours are
// treated as unset so they can never divide by zero.
func (r Regulations) Effective(defaults SalaryRegulations) SalaryRegulations {
	out := defaults
	if r.ID != "" {
		out.RegulationID = r.ID
	}

	pick := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil && !v.IsNegative() {
			*dst = *v
		}
	}
	positive := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil && v.IsPositive() {
			*dst = *v
		}
	}

	positive(&out.WorkingDaysPerMonth, r.WorkingDaysPerMonth)
	positive(&out.WorkingHoursPerDay, r.WorkingHoursPerDay)
	pick(&out.WeekdayOvertimeRate, r.WeekdayOvertimeRate)
	pick(&out.WeekendOvertimeRate, r.WeekendOvertimeRate)

	pick(&out.SocialInsuranceRate, r.SocialInsuranceRate)
	pick(&out.HealthInsuranceRate, r.HealthInsuranceRate)
	pick(&out.UnemploymentInsuranceRate, r.UnemploymentInsuranceRate)
	pick(&out.UnionFeeRate, r.UnionFeeRate)

	pick(&out.EmployerSocialInsuranceRate, r.EmployerSocialInsuranceRate)
	pick(&out.EmployerHealthInsuranceRate, r.EmployerHealthInsuranceRate)
	pick(&out.EmployerUnemploymentInsuranceRate, r.EmployerUnemploymentInsuranceRate)
	pick(&out.EmployerUnionFeeRate, r.EmployerUnionFeeRate)

	positive(&out.InsuranceSalaryCap, r.InsuranceSalaryCap)
	positive(&out.UnemploymentSalaryCap, r.UnemploymentSalaryCap)

	pick(&out.PersonalDeduction, r.PersonalDeduction)
	pick(&out.DependentDeduction, r.DependentDeduction)

	if r.ProgressiveTaxEnabled != nil {
		out.ProgressiveTaxEnabled = *r.ProgressiveTaxEnabled
	}
	return out
}

// CompensationProfile holds the per-employee payroll inputs.
type CompensationProfile struct {
	EmployeeID    string
	EmployeeCode  string
	FullName      string
	PositionTitle string
	Category      EmploymentCategory

	BaseSalary decimal.Decimal

	// Allowances are fixed monthly amounts, prorated by attendance.
	Allowances map[string]decimal.Decimal
	// AdHocAllowances are entered for this run only and not prorated.
	AdHocAllowances map[string]decimal.Decimal
	Bonuses         map[string]decimal.Decimal

	// Dependents overrides the count derived from marital status and children.
	Dependents    *int
	Married       bool
	ChildrenCount int

	PersonalDeductionOverride *decimal.Decimal
}

// DependentCount returns the explicit count, or (married ? 1 : 0) + children.
func (p CompensationProfile) DependentCount() int {
	if p.Dependents != nil {
		return max(0, *p.Dependents)
	}
	n := max(0, p.ChildrenCount)
	if p.Married {
		n++
	}
	return n
}

// Result is one employee's payslip breakdown for a month. Currency figures
// are kept unrounded; use Rounded for presentation.
type Result struct {
	EmployeeID   string             `json:"employee_id"`
	EmployeeCode string             `json:"employee_code,omitempty"`
	EmployeeName string             `json:"employee_name,omitempty"`
	Month        int                `json:"month"`
	Year         int                `json:"year"`
	Category     EmploymentCategory `json:"category"`

	BaseSalary      decimal.Decimal `json:"base_salary"`
	SalaryBasis     decimal.Decimal `json:"salary_basis"`
	WorkingDays     decimal.Decimal `json:"working_days"`
	PresentDays     decimal.Decimal `json:"present_days"`
	AttendanceRatio decimal.Decimal `json:"attendance_ratio"`
	DailyRate       decimal.Decimal `json:"daily_rate"`

	ActualBaseSalary decimal.Decimal            `json:"actual_base_salary"`
	AllowancesDetail map[string]decimal.Decimal `json:"allowances_detail,omitempty"`
	TotalAllowances  decimal.Decimal            `json:"total_allowances"`
	BonusesDetail    map[string]decimal.Decimal `json:"bonuses_detail,omitempty"`
	TotalBonuses     decimal.Decimal            `json:"total_bonuses"`

	WeekdayOvertimeDays decimal.Decimal `json:"weekday_overtime_days"`
	WeekendOvertimeDays decimal.Decimal `json:"weekend_overtime_days"`
	WeekdayOvertimePay  decimal.Decimal `json:"weekday_overtime_pay"`
	WeekendOvertimePay  decimal.Decimal `json:"weekend_overtime_pay"`
	TotalOvertimePay    decimal.Decimal `json:"total_overtime_pay"`

	GrossSalary decimal.Decimal `json:"gross_salary"`

	InsuranceBase             decimal.Decimal `json:"insurance_base"`
	UnemploymentInsuranceBase decimal.Decimal `json:"unemployment_insurance_base"`
	SocialInsurance           decimal.Decimal `json:"social_insurance"`
	HealthInsurance           decimal.Decimal `json:"health_insurance"`
	UnemploymentInsurance     decimal.Decimal `json:"unemployment_insurance"`
	UnionFee                  decimal.Decimal `json:"union_fee"`
	TotalInsurance            decimal.Decimal `json:"total_insurance"`

	EmployerSocialInsurance       decimal.Decimal `json:"employer_social_insurance"`
	EmployerHealthInsurance       decimal.Decimal `json:"employer_health_insurance"`
	EmployerUnemploymentInsurance decimal.Decimal `json:"employer_unemployment_insurance"`
	EmployerUnionFee              decimal.Decimal `json:"employer_union_fee"`
	TotalEmployerInsurance        decimal.Decimal `json:"total_employer_insurance"`

	TaxExemptMeal      decimal.Decimal `json:"tax_exempt_meal"`
	IncomeForTax       decimal.Decimal `json:"income_for_tax"`
	Dependents         int             `json:"dependents"`
	PersonalDeduction  decimal.Decimal `json:"personal_deduction"`
	DependentDeduction decimal.Decimal `json:"dependent_deduction"`
	TaxableIncome      decimal.Decimal `json:"taxable_income"`
	TaxMethod          TaxMethod       `json:"tax_method"`
	IncomeTax          decimal.Decimal `json:"income_tax"`

	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetSalary       decimal.Decimal `json:"net_salary"`
}

// Rounded returns a copy with currency figures rounded to whole units.
// Ratios, day counts and rates are left as computed.
func (r Result) Rounded() Result {
	out := r
	for _, d := range []*decimal.Decimal{
		&out.BaseSalary, &out.SalaryBasis, &out.DailyRate,
		&out.ActualBaseSalary, &out.TotalAllowances, &out.TotalBonuses,
		&out.WeekdayOvertimePay, &out.WeekendOvertimePay, &out.TotalOvertimePay,
		&out.GrossSalary, &out.InsuranceBase, &out.UnemploymentInsuranceBase,
		&out.SocialInsurance, &out.HealthInsurance, &out.UnemploymentInsurance, &out.UnionFee, &out.TotalInsurance,
		&out.EmployerSocialInsurance, &out.EmployerHealthInsurance, &out.EmployerUnemploymentInsurance,
		&out.EmployerUnionFee, &out.TotalEmployerInsurance,
		&out.TaxExemptMeal, &out.IncomeForTax, &out.PersonalDeduction, &out.DependentDeduction,
		&out.TaxableIncome, &out.IncomeTax, &out.TotalDeductions, &out.NetSalary,
	} {
		*d = d.Round(0)
	}
	out.AllowancesDetail = roundDetail(r.AllowancesDetail)
	out.BonusesDetail = roundDetail(r.BonusesDetail)
	return out
}

func roundDetail(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	if in == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v.Round(0)
	}
	return out
}

// PayrollRecord is a committed Result, unique per (employee, month, year).
type PayrollRecord struct {
	ID           string
	RunID        string
	RegulationID *string
	Result
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordKey identifies a payroll record.
type RecordKey struct {
	EmployeeID string `json:"employee_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
}

func (r PayrollRecord) Key() RecordKey {
	return RecordKey{EmployeeID: r.EmployeeID, Month: r.Month, Year: r.Year}
}

// SkippedEmployee is an employee left out of a batch and why.
type SkippedEmployee struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

// BatchPreview is a computed batch awaiting confirmation.
type BatchPreview struct {
	RunID       string            `json:"run_id"`
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	Regulations SalaryRegulations `json:"regulations"`
	Results     []Result          `json:"results"`
	Skipped     []SkippedEmployee `json:"skipped,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}
