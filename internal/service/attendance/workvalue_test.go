package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	thursday = time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2024, 12, 7, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"08:30", TimeOfDay{8, 30, 0}, true},
		{"8:05", TimeOfDay{8, 5, 0}, true},
		{" 17:30:15 ", TimeOfDay{17, 30, 15}, true},
		{"23:59:59", TimeOfDay{23, 59, 59}, true},
		{"24:00", TimeOfDay{}, false},
		{"12:60", TimeOfDay{}, false},
		{"12:00:60", TimeOfDay{}, false},
		{"-", TimeOfDay{}, false},
		{"", TimeOfDay{}, false},
		{"8h30", TimeOfDay{}, false},
		{"123:00", TimeOfDay{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimeOfDay(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_FullWeekday(t *testing.T) {
	m := Evaluate(thursday, "08:30", "17:30")

	assert.True(t, m.WorkValue.Equal(dec("1")))
	assert.Equal(t, attendance.StatusPresentFull, m.Status)
	assert.Equal(t, 0, m.LateMinutes)
	assert.Equal(t, 0, m.EarlyMinutes)
	assert.True(t, m.OvertimeHours.Equal(dec("1")), "9h on site is 1h over the 8h day")
	assert.Equal(t, StandardDayMinutes, m.TotalMinutes())
	assert.False(t, m.CheckoutInferred)
}

func TestEvaluate_LateAndEarly(t *testing.T) {
	m := Evaluate(thursday, "08:45", "17:00")

	assert.Equal(t, 15, m.LateMinutes)
	assert.Equal(t, 30, m.EarlyMinutes)
	// 8h15m worked caps at 1.00
	assert.True(t, m.WorkValue.Equal(dec("1")))
	assert.Equal(t, attendance.StatusPresentFull, m.Status)
	assert.True(t, m.OvertimeHours.Equal(dec("0.25")))
}

func TestEvaluate_HalfDay(t *testing.T) {
	m := Evaluate(thursday, "08:30", "12:30")

	assert.True(t, m.WorkValue.Equal(dec("0.5")))
	assert.Equal(t, attendance.StatusPresentHalf, m.Status)
	assert.True(t, m.OvertimeHours.IsZero())
	assert.Equal(t, 240, m.TotalMinutes())
	assert.Equal(t, 300, m.EarlyMinutes)
}

func TestEvaluate_SecondsIgnoredForLateness(t *testing.T) {
	m := Evaluate(thursday, "08:30:59", "17:30")
	assert.Equal(t, 0, m.LateMinutes)
}

func TestEvaluate_Weekend(t *testing.T) {
	m := Evaluate(saturday, "09:00", "13:00")

	assert.True(t, m.WorkValue.Equal(dec("0.5")))
	assert.Equal(t, attendance.StatusWeekendOvertime, m.Status)
	assert.True(t, m.OvertimeHours.Equal(dec("4")))
}

func TestEvaluate_CheckoutBeforeCheckin(t *testing.T) {
	m := Evaluate(thursday, "17:00", "08:00")

	assert.True(t, m.WorkValue.IsZero())
	assert.Equal(t, attendance.StatusAbsent, m.Status)
	assert.True(t, m.OvertimeHours.IsZero())
}

func TestEvaluate_OnlyCheckIn(t *testing.T) {
	m := Evaluate(thursday, "08:30", "")

	require.NotNil(t, m.CheckIn)
	assert.Nil(t, m.CheckOut)
	assert.True(t, m.WorkValue.IsZero())
	assert.Equal(t, attendance.StatusAbsent, m.Status)
	assert.True(t, m.CheckoutInferred)
	assert.True(t, m.EstimatedWorkValue.Equal(dec("1")), "estimate assumes a 17:30 checkout")
}

func TestEvaluate_OnlyCheckOut(t *testing.T) {
	m := Evaluate(thursday, "-", "17:30")

	assert.Nil(t, m.CheckIn)
	require.NotNil(t, m.CheckOut)
	assert.True(t, m.WorkValue.IsZero())
	assert.Equal(t, attendance.StatusAbsent, m.Status)
	assert.False(t, m.CheckoutInferred)
}

func TestEvaluate_WorkValueBounded(t *testing.T) {
	times := []string{"", "00:00", "06:00", "08:15", "08:30", "12:00", "13:37", "17:30", "20:00", "23:59"}
	for _, day := range []time.Time{thursday, saturday} {
		for _, in := range times {
			for _, out := range times {
				m := Evaluate(day, in, out)
				assert.False(t, m.WorkValue.IsNegative(), "%s-%s", in, out)
				assert.False(t, m.WorkValue.GreaterThan(dec("1")), "%s-%s", in, out)
				assert.False(t, m.OvertimeHours.IsNegative(), "%s-%s", in, out)
				assert.GreaterOrEqual(t, m.LateMinutes, 0)
				assert.GreaterOrEqual(t, m.EarlyMinutes, 0)
				if m.CheckIn == nil || m.CheckOut == nil {
					assert.True(t, m.WorkValue.IsZero())
				}
			}
		}
	}
}

func TestBuildRecord(t *testing.T) {
	t.Run("incomplete day is marked", func(t *testing.T) {
		rec := BuildRecord("emp-1", thursday, "08:15", "", nil)

		assert.Equal(t, "emp-1", rec.EmployeeID)
		assert.Equal(t, "T5", rec.DayOfWeek)
		assert.True(t, rec.CheckoutInferred())
		assert.True(t, rec.IsIncomplete())
		assert.Equal(t, attendance.StatusAbsent, rec.Status)
		assert.Equal(t, 0, rec.TotalMinutes)
	})

	t.Run("completed day drops the marker", func(t *testing.T) {
		marker := attendance.NoteCheckoutInferred
		rec := BuildRecord("emp-1", thursday, "08:15", "17:30", &marker)

		assert.Nil(t, rec.Notes)
		assert.False(t, rec.CheckoutInferred())
		assert.Equal(t, attendance.StatusPresentFull, rec.Status)
	})

	t.Run("free text notes survive", func(t *testing.T) {
		note := "forgot badge"
		rec := BuildRecord("emp-1", thursday, "08:30", "17:30", &note)

		require.NotNil(t, rec.Notes)
		assert.Equal(t, note, *rec.Notes)
	})
}

func TestMetricsFor_RoundTrip(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	day := time.Date(2024, 12, 5, 0, 0, 0, 0, loc)
	rec := BuildRecord("emp-1", day, "08:30", "", nil)

	m := MetricsFor(rec, loc)
	assert.True(t, m.EstimatedWorkValue.Equal(dec("1")))
	assert.True(t, m.CheckoutInferred)
}

func TestDayOfWeekLabel(t *testing.T) {
	assert.Equal(t, "T5", DayOfWeekLabel(thursday))
	assert.Equal(t, "T7", DayOfWeekLabel(saturday))
	assert.Equal(t, "CN", DayOfWeekLabel(saturday.AddDate(0, 0, 1)))
	assert.Equal(t, "T2", DayOfWeekLabel(saturday.AddDate(0, 0, 2)))
}
