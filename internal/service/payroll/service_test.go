package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegulations struct {
	regs  payroll.Regulations
	err   error
	calls int
}

func (s *stubRegulations) GetLatest(context.Context) (payroll.Regulations, error) {
	s.calls++
	return s.regs, s.err
}

type stubCompensation struct {
	profiles []payroll.CompensationProfile
}

func (s stubCompensation) GetProfiles(_ context.Context, ids []string) ([]payroll.CompensationProfile, error) {
	if len(ids) == 0 {
		return s.profiles, nil
	}
	var out []payroll.CompensationProfile
	for _, p := range s.profiles {
		for _, id := range ids {
			if p.EmployeeID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type stubSummaries struct {
	summaries []attendance.MonthlySummary
	calls     int
	ids       []string
}

func (s *stubSummaries) GetMonthlySummaries(_ context.Context, _ attendance.Period, ids []string) ([]attendance.MonthlySummary, error) {
	s.calls++
	s.ids = ids
	return s.summaries, nil
}

type memPreviewStore struct {
	items map[string]payroll.BatchPreview
	ttl   time.Duration
}

func newMemPreviewStore() *memPreviewStore {
	return &memPreviewStore{items: make(map[string]payroll.BatchPreview)}
}

func (m *memPreviewStore) Save(_ context.Context, p payroll.BatchPreview, ttl time.Duration) error {
	m.items[p.RunID] = p
	m.ttl = ttl
	return nil
}

func (m *memPreviewStore) Get(_ context.Context, runID string) (payroll.BatchPreview, error) {
	p, ok := m.items[runID]
	if !ok {
		return payroll.BatchPreview{}, payroll.ErrPreviewNotFound
	}
	return p, nil
}

func (m *memPreviewStore) Delete(_ context.Context, runID string) error {
	delete(m.items, runID)
	return nil
}

type stubPayrollRepo struct {
	existing   []payroll.RecordKey
	createErr  error
	saved      []payroll.PayrollRecord
	overwrites []bool

	records map[payroll.RecordKey]payroll.PayrollRecord
	creates int
	updates int
}

func (s *stubPayrollRepo) CreatePayrollRecord(_ context.Context, r payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	if _, ok := s.records[r.Key()]; ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
	}
	s.creates++
	r.ID = "rec-" + r.EmployeeID
	if s.records == nil {
		s.records = make(map[payroll.RecordKey]payroll.PayrollRecord)
	}
	s.records[r.Key()] = r
	return r, nil
}

func (s *stubPayrollRepo) UpdatePayrollRecord(_ context.Context, r payroll.PayrollRecord) error {
	if _, ok := s.records[r.Key()]; !ok {
		return payroll.ErrPayrollRecordNotFound
	}
	s.updates++
	s.records[r.Key()] = r
	return nil
}

func (s *stubPayrollRepo) GetPayrollRecordByEmployeePeriod(_ context.Context, employeeID string, month, year int) (payroll.PayrollRecord, error) {
	r, ok := s.records[payroll.RecordKey{EmployeeID: employeeID, Month: month, Year: year}]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return r, nil
}

func (s *stubPayrollRepo) ListPayrollRecords(context.Context, int, int) ([]payroll.PayrollRecord, error) {
	return s.saved, nil
}

func (s *stubPayrollRepo) ExistingKeys(context.Context, []payroll.RecordKey) ([]payroll.RecordKey, error) {
	return s.existing, nil
}

func (s *stubPayrollRepo) CreateBatch(_ context.Context, records []payroll.PayrollRecord, overwrite bool) ([]payroll.PayrollRecord, error) {
	s.overwrites = append(s.overwrites, overwrite)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.saved = append(s.saved, records...)
	return records, nil
}

type stubTransactor struct {
	runs int
}

func (s *stubTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.runs++
	return fn(ctx)
}

type fixture struct {
	regs      *stubRegulations
	summaries *stubSummaries
	previews  *memPreviewStore
	repo      *stubPayrollRepo
	tx        *stubTransactor
	svc       payroll.PayrollService
}

func newFixture(profiles []payroll.CompensationProfile) *fixture {
	f := &fixture{
		regs: &stubRegulations{err: payroll.ErrRegulationsNotFound},
		summaries: &stubSummaries{summaries: []attendance.MonthlySummary{
			{EmployeeID: "emp-1", TotalWorkDays: decimal.NewFromInt(22)},
			{EmployeeID: "emp-2", TotalWorkDays: decimal.NewFromInt(11)},
		}},
		previews: newMemPreviewStore(),
		repo:     &stubPayrollRepo{},
		tx:       &stubTransactor{},
	}
	f.svc = NewPayrollService(f.repo, f.regs, stubCompensation{profiles: profiles}, f.summaries, f.previews, f.tx, Options{
		Workers:    2,
		PreviewTTL: 10 * time.Minute,
		Now:        func() time.Time { return time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC) },
	})
	return f
}

var cohort = []payroll.CompensationProfile{
	{EmployeeID: "emp-1", PositionTitle: "Accountant", BaseSalary: decimal.NewFromInt(22_000_000)},
	{EmployeeID: "emp-2", PositionTitle: "Marketing Intern", BaseSalary: decimal.NewFromInt(5_000_000)},
	{EmployeeID: "emp-3", PositionTitle: "Driver", BaseSalary: decimal.Zero},
}

func TestPayrollService_PreviewBatch(t *testing.T) {
	f := newFixture(cohort)

	resp, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{
		Month:   12,
		Year:    2024,
		Bonuses: map[string]map[string]decimal.Decimal{"emp-1": {"kpi": decimal.NewFromInt(500_000)}},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.regs.calls, "regulations are fetched once per run")
	assert.Equal(t, 1, f.summaries.calls, "summaries are fetched in one call")
	assert.Equal(t, []string{"emp-1", "emp-2"}, f.summaries.ids)

	require.Len(t, resp.Employees, 2)
	assert.Equal(t, payroll.CategoryRegular, resp.Employees[0].Category)
	assert.True(t, resp.Employees[0].TotalBonuses.Equal(decimal.NewFromInt(500_000)))
	assert.Equal(t, payroll.CategoryIntern, resp.Employees[1].Category)
	assert.True(t, resp.Employees[1].GrossSalary.Equal(decimal.NewFromInt(2_500_000)))
	assert.True(t, resp.Employees[0].Month == 12 && resp.Employees[0].Year == 2024)

	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "emp-3", resp.Skipped[0].EmployeeID)

	assert.Equal(t, 2, resp.Totals.Employees)
	assert.Equal(t, "2025-01-03T09:10:00Z", resp.ExpiresAt)
	assert.Equal(t, 10*time.Minute, f.previews.ttl)
	assert.Contains(t, f.previews.items, resp.RunID)
	assert.Empty(t, f.repo.saved, "preview never persists records")
}

func TestPayrollService_PreviewBatch_ReportsUnknownEmployees(t *testing.T) {
	f := newFixture(cohort)

	resp, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{
		Month:       12,
		Year:        2024,
		EmployeeIDs: []string{"emp-1", "emp-9", "emp-3", "emp-9"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Employees, 1)
	assert.Equal(t, "emp-1", resp.Employees[0].EmployeeID)
	assert.Equal(t, []payroll.SkippedEmployee{
		{EmployeeID: "emp-3", Reason: payroll.ErrEmployeeHasNoBaseSalary.Error()},
		{EmployeeID: "emp-9", Reason: payroll.ErrEmployeeNotFound.Error()},
	}, resp.Skipped)
}

func TestPayrollService_PreviewBatch_UsesStoredRegulations(t *testing.T) {
	f := newFixture(cohort[:1])
	days := decimal.NewFromInt(20)
	progressive := false
	f.regs.err = nil
	f.regs.regs = payroll.Regulations{ID: "reg-2025", WorkingDaysPerMonth: &days, ProgressiveTaxEnabled: &progressive}

	resp, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, "reg-2025", resp.Regulations.RegulationID)
	assert.True(t, resp.Regulations.WorkingDaysPerMonth.Equal(days))
	require.Len(t, resp.Employees, 1)
	assert.Equal(t, payroll.TaxMethodFlat, resp.Employees[0].TaxMethod)
}

func TestPayrollService_PreviewBatch_Empty(t *testing.T) {
	f := newFixture(cohort[2:])

	_, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	assert.ErrorIs(t, err, payroll.ErrEmptyBatch)
}

func TestPayrollService_PreviewBatch_Cancelled(t *testing.T) {
	f := newFixture(cohort)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.PreviewBatch(ctx, payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.previews.items)
}

func TestPayrollService_CommitBatch_ConflictThenOverwrite(t *testing.T) {
	f := newFixture(cohort)
	preview, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	require.NoError(t, err)

	f.repo.existing = []payroll.RecordKey{{EmployeeID: "emp-1", Month: 12, Year: 2024}}

	_, err = f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: preview.RunID})
	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyExists)
	var conflict *payroll.BatchConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, f.repo.existing, conflict.Keys)
	assert.Empty(t, f.repo.saved)
	assert.Zero(t, f.tx.runs)
	assert.Contains(t, f.previews.items, preview.RunID, "preview survives a conflict")

	resp, err := f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: preview.RunID, Overwrite: true})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Saved)
	assert.Equal(t, 1, resp.Overwritten)
	assert.Equal(t, []bool{true}, f.repo.overwrites)
	assert.Equal(t, 1, f.tx.runs)
	assert.NotContains(t, f.previews.items, preview.RunID)
	for _, r := range f.repo.saved {
		assert.Equal(t, preview.RunID, r.RunID)
		assert.Nil(t, r.RegulationID, "defaults carry no regulation id")
	}
}

func TestPayrollService_CommitBatch_ConflictInsideTransaction(t *testing.T) {
	f := newFixture(cohort)
	preview, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	require.NoError(t, err)

	keys := []payroll.RecordKey{{EmployeeID: "emp-2", Month: 12, Year: 2024}}
	f.repo.createErr = &payroll.BatchConflictError{Keys: keys}

	_, err = f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: preview.RunID})
	var conflict *payroll.BatchConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, keys, conflict.Keys)
}

func TestPayrollService_CommitBatch_Failure(t *testing.T) {
	f := newFixture(cohort)
	preview, err := f.svc.PreviewBatch(context.Background(), payroll.PreviewBatchRequest{Month: 12, Year: 2024})
	require.NoError(t, err)

	boom := errors.New("deadlock detected")
	f.repo.createErr = boom

	_, err = f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: preview.RunID})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.repo.saved)
	assert.Contains(t, f.previews.items, preview.RunID)
}

func TestPayrollService_CommitBatch_UnknownRun(t *testing.T) {
	f := newFixture(cohort)

	id, err := uuid.NewV7()
	require.NoError(t, err)

	_, err = f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: id.String()})
	assert.ErrorIs(t, err, payroll.ErrPreviewNotFound)

	_, err = f.svc.CommitBatch(context.Background(), payroll.CommitBatchRequest{RunID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestPayrollService_ListPayrollRecords(t *testing.T) {
	f := newFixture(cohort)
	_, err := f.svc.ListPayrollRecords(context.Background(), 0, 2024)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)

	f.repo.saved = []payroll.PayrollRecord{{ID: "p1", RunID: "r1", Result: payroll.Result{EmployeeID: "emp-1", NetSalary: decimal.RequireFromString("100.6")}}}
	got, err := f.svc.ListPayrollRecords(context.Background(), 12, 2024)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].NetSalary.Equal(decimal.NewFromInt(101)))
}

func TestPayrollService_RecalculateRecord(t *testing.T) {
	f := newFixture(cohort)
	ctx := context.Background()
	req := payroll.RecalculateRecordRequest{EmployeeID: "emp-1", Month: 12, Year: 2024}

	created, err := f.svc.RecalculateRecord(ctx, req)
	require.NoError(t, err)
	assert.False(t, created.Overwritten)
	assert.Equal(t, "rec-emp-1", created.ID)
	assert.Equal(t, payroll.CategoryRegular, created.Category)
	assert.Equal(t, []string{"emp-1"}, f.summaries.ids)
	assert.Equal(t, 1, f.repo.creates)

	_, err = f.svc.RecalculateRecord(ctx, req)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyExists)
	assert.Zero(t, f.repo.updates)

	req.Overwrite = true
	req.Bonuses = map[string]decimal.Decimal{"kpi": decimal.NewFromInt(1_000_000)}
	replaced, err := f.svc.RecalculateRecord(ctx, req)
	require.NoError(t, err)
	assert.True(t, replaced.Overwritten)
	assert.Equal(t, "rec-emp-1", replaced.ID)
	assert.NotEqual(t, created.RunID, replaced.RunID)
	assert.Equal(t, 1, f.repo.updates)

	stored := f.repo.records[payroll.RecordKey{EmployeeID: "emp-1", Month: 12, Year: 2024}]
	assert.True(t, stored.TotalBonuses.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, 3, f.tx.runs)
}

func TestPayrollService_RecalculateRecord_Rejects(t *testing.T) {
	f := newFixture(cohort)
	ctx := context.Background()

	_, err := f.svc.RecalculateRecord(ctx, payroll.RecalculateRecordRequest{EmployeeID: "emp-9", Month: 12, Year: 2024})
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)

	_, err = f.svc.RecalculateRecord(ctx, payroll.RecalculateRecordRequest{EmployeeID: "emp-3", Month: 12, Year: 2024})
	assert.ErrorIs(t, err, payroll.ErrEmployeeHasNoBaseSalary)

	_, err = f.svc.RecalculateRecord(ctx, payroll.RecalculateRecordRequest{EmployeeID: "emp-1", Month: 13, Year: 2024})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	assert.Zero(t, f.repo.creates)
	assert.Zero(t, f.tx.runs)
}
