package payroll

import (
	"maps"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var (
	one             = decimal.NewFromInt(1)
	probationFactor = decimal.RequireFromString("0.85")
)

func percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// overtimeFactor is the premium above normal pay, e.g. 150% -> 0.5.
func overtimeFactor(ratePercent decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, ratePercent.Div(hundred).Sub(one))
}

func sumValues(m map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// Compute produces one employee's payslip for the summary's month. It is a
// pure function of its inputs; nothing is rounded here.
func Compute(profile payroll.CompensationProfile, summary attendance.MonthlySummary, regs payroll.SalaryRegulations) payroll.Result {
	category := profile.Category
	if category == "" {
		category = Classify(profile.PositionTitle)
	}

	r := payroll.Result{
		EmployeeID:   profile.EmployeeID,
		EmployeeCode: profile.EmployeeCode,
		EmployeeName: profile.FullName,
		Month:        summary.Month,
		Year:         summary.Year,
		Category:     category,
		BaseSalary:   profile.BaseSalary,
		WorkingDays:  regs.WorkingDaysPerMonth,
		PresentDays:  summary.TotalWorkDays.Add(summary.PaidLeaveDays),
	}

	r.SalaryBasis = profile.BaseSalary
	if category == payroll.CategoryProbation {
		r.SalaryBasis = profile.BaseSalary.Mul(probationFactor)
	}

	r.AttendanceRatio = r.PresentDays.Div(r.WorkingDays)
	r.DailyRate = r.SalaryBasis.Div(r.WorkingDays)
	r.ActualBaseSalary = r.SalaryBasis.Mul(r.AttendanceRatio)

	// Allowances: fixed categories follow attendance, ad-hoc entries do not.
	r.AllowancesDetail = make(map[string]decimal.Decimal, len(profile.Allowances)+len(profile.AdHocAllowances))
	for name, amount := range profile.Allowances {
		r.AllowancesDetail[name] = amount.Mul(r.AttendanceRatio)
	}
	for name, amount := range profile.AdHocAllowances {
		r.AllowancesDetail[name] = r.AllowancesDetail[name].Add(amount)
	}
	r.TotalAllowances = sumValues(r.AllowancesDetail)

	r.BonusesDetail = maps.Clone(profile.Bonuses)
	r.TotalBonuses = sumValues(r.BonusesDetail)

	r.WeekdayOvertimeDays = summary.WeekdayOvertimeHours.Div(regs.WorkingHoursPerDay)
	r.WeekendOvertimeDays = summary.TotalOvertimeDays
	r.WeekdayOvertimePay = r.WeekdayOvertimeDays.Mul(r.DailyRate).Mul(overtimeFactor(regs.WeekdayOvertimeRate))
	r.WeekendOvertimePay = r.WeekendOvertimeDays.Mul(r.DailyRate).Mul(overtimeFactor(regs.WeekendOvertimeRate))
	r.TotalOvertimePay = r.WeekdayOvertimePay.Add(r.WeekendOvertimePay)

	r.GrossSalary = r.ActualBaseSalary.
		Add(r.TotalAllowances).
		Add(r.TotalBonuses).
		Add(r.TotalOvertimePay)

	if category == payroll.CategoryRegular {
		applyRegularDeductions(&r, profile, regs)
	} else {
		applyFlatDeductions(&r)
	}

	r.TotalDeductions = r.TotalInsurance.Add(r.IncomeTax)
	r.NetSalary = r.GrossSalary.Sub(r.TotalDeductions)
	return r
}

func applyRegularDeductions(r *payroll.Result, profile payroll.CompensationProfile, regs payroll.SalaryRegulations) {
	r.InsuranceBase = decimal.Min(profile.BaseSalary, regs.InsuranceSalaryCap)
	r.UnemploymentInsuranceBase = decimal.Min(profile.BaseSalary, regs.UnemploymentSalaryCap)

	r.SocialInsurance = percent(r.InsuranceBase, regs.SocialInsuranceRate)
	r.HealthInsurance = percent(r.InsuranceBase, regs.HealthInsuranceRate)
	r.UnemploymentInsurance = percent(r.UnemploymentInsuranceBase, regs.UnemploymentInsuranceRate)
	r.UnionFee = percent(r.InsuranceBase, regs.UnionFeeRate)
	r.TotalInsurance = r.SocialInsurance.Add(r.HealthInsurance).Add(r.UnemploymentInsurance).Add(r.UnionFee)

	r.EmployerSocialInsurance = percent(r.InsuranceBase, regs.EmployerSocialInsuranceRate)
	r.EmployerHealthInsurance = percent(r.InsuranceBase, regs.EmployerHealthInsuranceRate)
	r.EmployerUnemploymentInsurance = percent(r.UnemploymentInsuranceBase, regs.EmployerUnemploymentInsuranceRate)
	r.EmployerUnionFee = percent(r.InsuranceBase, regs.EmployerUnionFeeRate)
	r.TotalEmployerInsurance = r.EmployerSocialInsurance.
		Add(r.EmployerHealthInsurance).
		Add(r.EmployerUnemploymentInsurance).
		Add(r.EmployerUnionFee)

	// Meal allowance is exempt up to what was actually paid for it.
	if meal, ok := profile.Allowances[payroll.AllowanceMeal]; ok {
		r.TaxExemptMeal = meal.Mul(r.AttendanceRatio)
	}
	r.IncomeForTax = r.GrossSalary.Sub(r.TotalInsurance).Sub(r.TaxExemptMeal)

	r.Dependents = profile.DependentCount()
	r.PersonalDeduction = regs.PersonalDeduction
	if profile.PersonalDeductionOverride != nil {
		r.PersonalDeduction = *profile.PersonalDeductionOverride
	}
	r.DependentDeduction = regs.DependentDeduction.Mul(decimal.NewFromInt(int64(r.Dependents)))

	r.TaxableIncome = decimal.Max(decimal.Zero, r.IncomeForTax.Sub(r.PersonalDeduction).Sub(r.DependentDeduction))
	if regs.ProgressiveTaxEnabled {
		r.TaxMethod = payroll.TaxMethodProgressive
		r.IncomeTax = ProgressiveTax(r.TaxableIncome)
	} else {
		r.TaxMethod = payroll.TaxMethodFlat
		r.IncomeTax = FlatTax(r.TaxableIncome)
	}
}

// applyFlatDeductions covers interns and probationers: no insurance, no
// family deductions, 10% of gross.
func applyFlatDeductions(r *payroll.Result) {
	r.IncomeForTax = r.GrossSalary
	r.TaxableIncome = decimal.Max(decimal.Zero, r.GrossSalary)
	r.TaxMethod = payroll.TaxMethodFlat
	r.IncomeTax = FlatTax(r.TaxableIncome)
}
