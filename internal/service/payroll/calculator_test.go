package payroll

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	attendanceService "github.com/cmlabs-hris/payroll-engine/internal/service/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s got %s", field, want, got)
}

func fullMonth(days string) attendance.MonthlySummary {
	return attendance.MonthlySummary{
		EmployeeID:    "emp-1",
		Month:         12,
		Year:          2024,
		TotalWorkDays: d(days),
	}
}

func TestCompute_RegularFullAttendance(t *testing.T) {
	profile := payroll.CompensationProfile{
		EmployeeID:    "emp-1",
		PositionTitle: "Backend Engineer",
		BaseSalary:    d("22000000"),
	}

	r := Compute(profile, fullMonth("22"), payroll.DefaultRegulations())

	assert.Equal(t, payroll.CategoryRegular, r.Category)
	assertDecimal(t, "1", r.AttendanceRatio, "ratio")
	assertDecimal(t, "22000000", r.ActualBaseSalary, "actual base")
	assertDecimal(t, "22000000", r.GrossSalary, "gross")
	assertDecimal(t, "22000000", r.InsuranceBase, "insurance base")
	assertDecimal(t, "1760000", r.SocialInsurance, "social")
	assertDecimal(t, "330000", r.HealthInsurance, "health")
	assertDecimal(t, "220000", r.UnemploymentInsurance, "unemployment")
	assertDecimal(t, "0", r.UnionFee, "union")
	assertDecimal(t, "2310000", r.TotalInsurance, "insurance")
	assertDecimal(t, "5170000", r.TotalEmployerInsurance, "employer insurance")
	assertDecimal(t, "19690000", r.IncomeForTax, "income for tax")
	assertDecimal(t, "8690000", r.TaxableIncome, "taxable")
	assert.Equal(t, payroll.TaxMethodProgressive, r.TaxMethod)
	assertDecimal(t, "619000", r.IncomeTax, "tax")
	assertDecimal(t, "2929000", r.TotalDeductions, "deductions")
	assertDecimal(t, "19071000", r.NetSalary, "net")
}

func TestCompute_InsuranceCaps(t *testing.T) {
	profile := payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("60000000")}

	r := Compute(profile, fullMonth("22"), payroll.DefaultRegulations())

	assertDecimal(t, "46800000", r.InsuranceBase, "insurance base")
	assertDecimal(t, "60000000", r.UnemploymentInsuranceBase, "unemployment base")
	assertDecimal(t, "3744000", r.SocialInsurance, "social")
	assertDecimal(t, "702000", r.HealthInsurance, "health")
	assertDecimal(t, "600000", r.UnemploymentInsurance, "unemployment")
}

func TestCompute_AllowancesAndMealExemption(t *testing.T) {
	profile := payroll.CompensationProfile{
		EmployeeID: "emp-1",
		BaseSalary: d("22000000"),
		Allowances: map[string]decimal.Decimal{
			payroll.AllowanceMeal:      d("730000"),
			payroll.AllowanceTransport: d("1100000"),
		},
		AdHocAllowances: map[string]decimal.Decimal{payroll.AllowanceTransport: d("200000")},
		Bonuses:         map[string]decimal.Decimal{"kpi": d("1000000")},
	}

	// 11 worked days + 0 paid leave out of 22.
	r := Compute(profile, fullMonth("11"), payroll.DefaultRegulations())

	assertDecimal(t, "0.5", r.AttendanceRatio, "ratio")
	assertDecimal(t, "11000000", r.ActualBaseSalary, "actual base")
	assertDecimal(t, "365000", r.AllowancesDetail[payroll.AllowanceMeal], "meal")
	assertDecimal(t, "750000", r.AllowancesDetail[payroll.AllowanceTransport], "transport")
	assertDecimal(t, "1115000", r.TotalAllowances, "allowances")
	assertDecimal(t, "1000000", r.TotalBonuses, "bonuses")
	assertDecimal(t, "13115000", r.GrossSalary, "gross")
	assertDecimal(t, "365000", r.TaxExemptMeal, "meal exemption")
	// Insurance stays on the full contract salary.
	assertDecimal(t, "2310000", r.TotalInsurance, "insurance")
	assertDecimal(t, "10440000", r.IncomeForTax, "income for tax")
	assert.True(t, r.TaxableIncome.IsZero())
	assert.True(t, r.IncomeTax.IsZero())
}

func TestCompute_PaidLeaveCountsAsPresent(t *testing.T) {
	summary := fullMonth("20")
	summary.PaidLeaveDays = d("2")
	summary.UnpaidLeaveDays = d("1")

	r := Compute(payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("22000000")}, summary, payroll.DefaultRegulations())

	assertDecimal(t, "22", r.PresentDays, "present")
	assertDecimal(t, "22000000", r.ActualBaseSalary, "actual base")
}

func TestCompute_Overtime(t *testing.T) {
	summary := fullMonth("22")
	summary.WeekdayOvertimeHours = d("16")
	summary.TotalOvertimeDays = d("1.5")

	r := Compute(payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("22000000")}, summary, payroll.DefaultRegulations())

	assertDecimal(t, "1000000", r.DailyRate, "daily rate")
	assertDecimal(t, "2", r.WeekdayOvertimeDays, "weekday ot days")
	assertDecimal(t, "1000000", r.WeekdayOvertimePay, "weekday ot pay")
	assertDecimal(t, "1500000", r.WeekendOvertimePay, "weekend ot pay")
	assertDecimal(t, "2500000", r.TotalOvertimePay, "ot pay")
	assertDecimal(t, "24500000", r.GrossSalary, "gross")
}

// A standard 08:30-17:30 day is nine hours on site, one over the eight-hour
// day, so a month of plain full days still pays weekday overtime.
func TestCompute_StandardDaysAccrueWeekdayOvertime(t *testing.T) {
	hours := decimal.Zero
	days := 0
	for day := 1; day <= 31; day++ {
		date := time.Date(2024, 12, day, 0, 0, 0, 0, time.UTC)
		if attendanceService.IsWeekend(date) {
			continue
		}
		m := attendanceService.Evaluate(date, "08:30", "17:30")
		require.Equal(t, attendance.StatusPresentFull, m.Status)
		hours = hours.Add(m.OvertimeHours)
		days++
	}
	require.Equal(t, 22, days)

	summary := fullMonth("22")
	summary.WeekdayOvertimeHours = hours

	r := Compute(payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("22000000")}, summary, payroll.DefaultRegulations())

	assertDecimal(t, "22", hours, "weekday ot hours")
	assertDecimal(t, "2.75", r.WeekdayOvertimeDays, "weekday ot days")
	assertDecimal(t, "1375000", r.WeekdayOvertimePay, "weekday ot pay")
	assertDecimal(t, "0", r.WeekendOvertimePay, "weekend ot pay")
	assertDecimal(t, "23375000", r.GrossSalary, "gross")
}

func TestCompute_Dependents(t *testing.T) {
	regs := payroll.DefaultRegulations()

	derived := payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("40000000"), Married: true, ChildrenCount: 2}
	r := Compute(derived, fullMonth("22"), regs)
	assert.Equal(t, 3, r.Dependents)
	assertDecimal(t, "13200000", r.DependentDeduction, "dependent deduction")

	explicit := 1
	derived.Dependents = &explicit
	r = Compute(derived, fullMonth("22"), regs)
	assert.Equal(t, 1, r.Dependents)
	assertDecimal(t, "4400000", r.DependentDeduction, "dependent deduction")

	override := d("15000000")
	derived.PersonalDeductionOverride = &override
	r = Compute(derived, fullMonth("22"), regs)
	assertDecimal(t, "15000000", r.PersonalDeduction, "personal deduction")
}

func TestCompute_FlatTaxWhenProgressiveDisabled(t *testing.T) {
	regs := payroll.DefaultRegulations()
	regs.ProgressiveTaxEnabled = false

	r := Compute(payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("22000000")}, fullMonth("22"), regs)

	assert.Equal(t, payroll.TaxMethodFlat, r.TaxMethod)
	assertDecimal(t, "869000", r.IncomeTax, "tax")
}

func TestCompute_Intern(t *testing.T) {
	profile := payroll.CompensationProfile{
		EmployeeID:    "emp-2",
		PositionTitle: "Thực tập sinh",
		BaseSalary:    d("5000000"),
		Allowances:    map[string]decimal.Decimal{payroll.AllowanceTransport: d("1000000")},
		Married:       true,
		ChildrenCount: 1,
	}

	for _, days := range []string{"0", "5", "11", "21.5"} {
		t.Run(days, func(t *testing.T) {
			r := Compute(profile, fullMonth(days), payroll.DefaultRegulations())

			assert.Equal(t, payroll.CategoryIntern, r.Category)
			assert.True(t, r.TotalInsurance.IsZero())
			assert.True(t, r.SocialInsurance.IsZero())
			assert.True(t, r.HealthInsurance.IsZero())
			assert.True(t, r.UnemploymentInsurance.IsZero())
			assert.True(t, r.TotalEmployerInsurance.IsZero())
			assert.Zero(t, r.Dependents)
			assert.Equal(t, payroll.TaxMethodFlat, r.TaxMethod)
			assert.True(t, r.TaxableIncome.Equal(r.GrossSalary))
			assert.True(t, r.IncomeTax.Equal(r.GrossSalary.Mul(d("0.1"))))
			assert.True(t, r.NetSalary.Equal(r.GrossSalary.Sub(r.IncomeTax)))
		})
	}

	r := Compute(profile, fullMonth("11"), payroll.DefaultRegulations())
	assertDecimal(t, "3000000", r.GrossSalary, "gross")
	assertDecimal(t, "300000", r.IncomeTax, "tax")
	assertDecimal(t, "2700000", r.NetSalary, "net")
}

func TestCompute_Probation(t *testing.T) {
	summary := fullMonth("22")
	summary.TotalOvertimeDays = d("1")
	profile := payroll.CompensationProfile{
		EmployeeID:    "emp-3",
		PositionTitle: "Nhân viên thử việc",
		BaseSalary:    d("10000000"),
	}

	r := Compute(profile, summary, payroll.DefaultRegulations())

	assert.Equal(t, payroll.CategoryProbation, r.Category)
	assertDecimal(t, "8500000", r.SalaryBasis, "basis")
	assertDecimal(t, "8500000", r.ActualBaseSalary, "actual base")
	assert.True(t, r.DailyRate.Equal(d("8500000").Div(d("22"))))
	assert.True(t, r.WeekendOvertimePay.Equal(r.DailyRate), "200% premium on one day is one daily rate")
	assert.True(t, r.TotalInsurance.IsZero())
	assert.Equal(t, payroll.TaxMethodFlat, r.TaxMethod)
	assert.True(t, r.IncomeTax.Equal(r.GrossSalary.Mul(d("0.1"))))
}

func TestCompute_Idempotent(t *testing.T) {
	summary := fullMonth("19.75")
	summary.PaidLeaveDays = d("1")
	summary.WeekdayOvertimeHours = d("3.25")
	summary.TotalOvertimeDays = d("0.5")
	profile := payroll.CompensationProfile{
		EmployeeID: "emp-1",
		BaseSalary: d("31500000"),
		Allowances: map[string]decimal.Decimal{
			payroll.AllowanceMeal:  d("730000"),
			payroll.AllowancePhone: d("300000"),
		},
		Bonuses:       map[string]decimal.Decimal{"holiday": d("2000000")},
		Married:       true,
		ChildrenCount: 1,
	}
	regs := payroll.DefaultRegulations()

	first := Compute(profile, summary, regs)
	second := Compute(profile, summary, regs)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResult_Rounded(t *testing.T) {
	summary := fullMonth("21")
	profile := payroll.CompensationProfile{EmployeeID: "emp-1", BaseSalary: d("10000000")}

	r := Compute(profile, summary, payroll.DefaultRegulations())
	require.False(t, r.ActualBaseSalary.Equal(r.ActualBaseSalary.Round(0)), "21/22 of 10M is fractional")

	rounded := r.Rounded()
	assertDecimal(t, "9545455", rounded.ActualBaseSalary, "actual base")
	assert.True(t, rounded.NetSalary.Equal(rounded.NetSalary.Round(0)))
	assert.True(t, r.AttendanceRatio.Equal(rounded.AttendanceRatio), "ratios are not rounded")
	assert.False(t, r.ActualBaseSalary.Equal(rounded.ActualBaseSalary), "original is untouched")
}
