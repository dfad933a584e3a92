package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers    = 8
	defaultPreviewTTL = 30 * time.Minute
)

type PayrollServiceImpl struct {
	payrollRepo      payroll.PayrollRepository
	regulationRepo   payroll.RegulationRepository
	compensationRepo payroll.CompensationRepository
	summaries        payroll.SummaryProvider
	previews         payroll.PreviewStore
	transactor       database.Transactor

	defaults   payroll.SalaryRegulations
	workers    int
	previewTTL time.Duration
	now        func() time.Time
}

// Options tunes a PayrollServiceImpl. Zero values fall back to defaults.
type Options struct {
	Defaults   *payroll.SalaryRegulations
	Workers    int
	PreviewTTL time.Duration
	Now        func() time.Time
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	regulationRepo payroll.RegulationRepository,
	compensationRepo payroll.CompensationRepository,
	summaries payroll.SummaryProvider,
	previews payroll.PreviewStore,
	transactor database.Transactor,
	opts Options,
) payroll.PayrollService {
	s := &PayrollServiceImpl{
		payrollRepo:      payrollRepo,
		regulationRepo:   regulationRepo,
		compensationRepo: compensationRepo,
		summaries:        summaries,
		previews:         previews,
		transactor:       transactor,
		defaults:         payroll.DefaultRegulations(),
		workers:          defaultWorkers,
		previewTTL:       defaultPreviewTTL,
		now:              time.Now,
	}
	if opts.Defaults != nil {
		s.defaults = *opts.Defaults
	}
	if opts.Workers > 0 {
		s.workers = opts.Workers
	}
	if opts.PreviewTTL > 0 {
		s.previewTTL = opts.PreviewTTL
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	return s
}

// Helper to get the operator's user_id from JWT context. Empty when the
// request carries no token.
func getOperatorFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}
	userID, _ := claims["user_id"].(string)
	return userID, nil
}

// ========== REGULATIONS ==========

func (s *PayrollServiceImpl) latestRegulations(ctx context.Context) (payroll.SalaryRegulations, error) {
	latest, err := s.regulationRepo.GetLatest(ctx)
	if err != nil && !errors.Is(err, payroll.ErrRegulationsNotFound) {
		return payroll.SalaryRegulations{}, fmt.Errorf("failed to get salary regulations: %w", err)
	}
	// If not found, use defaults
	if errors.Is(err, payroll.ErrRegulationsNotFound) {
		slog.Warn("payroll: no salary regulations configured, using defaults")
		return s.defaults, nil
	}
	return latest.Effective(s.defaults), nil
}

func (s *PayrollServiceImpl) GetLatestRegulations(ctx context.Context) (payroll.SalaryRegulations, error) {
	return s.latestRegulations(ctx)
}

// ========== BATCH ==========

type batchUnit struct {
	profile payroll.CompensationProfile
	summary attendance.MonthlySummary
}

func (s *PayrollServiceImpl) PreviewBatch(ctx context.Context, req payroll.PreviewBatchRequest) (payroll.BatchPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchPreviewResponse{}, err
	}

	operator, err := getOperatorFromContext(ctx)
	if err != nil {
		return payroll.BatchPreviewResponse{}, err
	}

	// One rate table for the whole run.
	regs, err := s.latestRegulations(ctx)
	if err != nil {
		return payroll.BatchPreviewResponse{}, err
	}

	profiles, err := s.compensationRepo.GetProfiles(ctx, req.EmployeeIDs)
	if err != nil {
		return payroll.BatchPreviewResponse{}, fmt.Errorf("failed to get compensation profiles: %w", err)
	}

	var (
		eligible []payroll.CompensationProfile
		skipped  []payroll.SkippedEmployee
	)
	found := make(map[string]bool, len(profiles))
	for _, profile := range profiles {
		found[profile.EmployeeID] = true
		p, prepErr := prepareProfile(profile, req.AdHocAllowances[profile.EmployeeID], req.Bonuses[profile.EmployeeID])
		if prepErr != nil {
			skipped = append(skipped, payroll.SkippedEmployee{EmployeeID: p.EmployeeID, Reason: prepErr.Error()})
			continue
		}
		eligible = append(eligible, p)
	}
	// Requested IDs with no active employee behind them.
	for _, id := range req.EmployeeIDs {
		if !found[id] {
			found[id] = true
			skipped = append(skipped, payroll.SkippedEmployee{EmployeeID: id, Reason: payroll.ErrEmployeeNotFound.Error()})
		}
	}
	if len(eligible) == 0 {
		return payroll.BatchPreviewResponse{}, payroll.ErrEmptyBatch
	}

	ids := make([]string, len(eligible))
	for i, p := range eligible {
		ids[i] = p.EmployeeID
	}
	period := attendance.Period{Month: req.Month, Year: req.Year}
	summaries, err := s.summaries.GetMonthlySummaries(ctx, period, ids)
	if err != nil {
		return payroll.BatchPreviewResponse{}, fmt.Errorf("failed to get attendance summaries: %w", err)
	}
	summaryMap := make(map[string]attendance.MonthlySummary, len(summaries))
	for _, sm := range summaries {
		summaryMap[sm.EmployeeID] = sm
	}

	units := make([]batchUnit, len(eligible))
	for i, p := range eligible {
		sm, ok := summaryMap[p.EmployeeID]
		if !ok {
			sm = attendance.MonthlySummary{EmployeeID: p.EmployeeID}
		}
		sm.Month, sm.Year = req.Month, req.Year
		units[i] = batchUnit{profile: p, summary: sm}
	}

	results, err := s.computeBatch(ctx, units, regs)
	if err != nil {
		return payroll.BatchPreviewResponse{}, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return payroll.BatchPreviewResponse{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	now := s.now().UTC()
	preview := payroll.BatchPreview{
		RunID:       runID.String(),
		Month:       req.Month,
		Year:        req.Year,
		Regulations: regs,
		Results:     results,
		Skipped:     skipped,
		CreatedBy:   operator,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.previewTTL),
	}
	if err := s.previews.Save(ctx, preview, s.previewTTL); err != nil {
		return payroll.BatchPreviewResponse{}, fmt.Errorf("failed to store payroll preview: %w", err)
	}

	slog.Info("payroll: batch computed",
		"run_id", preview.RunID,
		"month", req.Month,
		"year", req.Year,
		"employees", len(results),
		"skipped", len(skipped),
	)

	return mapToPreviewResponse(preview), nil
}

// prepareProfile classifies p and attaches the amounts entered for this run.
func prepareProfile(p payroll.CompensationProfile, adHoc, bonuses map[string]decimal.Decimal) (payroll.CompensationProfile, error) {
	if !p.BaseSalary.IsPositive() {
		return p, payroll.ErrEmployeeHasNoBaseSalary
	}
	p.Category = Classify(p.PositionTitle)
	p.AdHocAllowances = adHoc
	p.Bonuses = bonuses
	return p, nil
}

// computeBatch runs Compute for every unit on a bounded pool. Units are
// independent; results keep the input order.
func (s *PayrollServiceImpl) computeBatch(ctx context.Context, units []batchUnit, regs payroll.SalaryRegulations) ([]payroll.Result, error) {
	results := make([]payroll.Result, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, u := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Compute(u.profile, u.summary, regs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("payroll batch aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("payroll batch aborted: %w", err)
	}
	return results, nil
}

func (s *PayrollServiceImpl) CommitBatch(ctx context.Context, req payroll.CommitBatchRequest) (payroll.CommitBatchResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.CommitBatchResponse{}, err
	}

	operator, err := getOperatorFromContext(ctx)
	if err != nil {
		return payroll.CommitBatchResponse{}, err
	}

	preview, err := s.previews.Get(ctx, req.RunID)
	if err != nil {
		return payroll.CommitBatchResponse{}, err
	}

	var createdBy *string
	if operator != "" {
		createdBy = &operator
	} else if preview.CreatedBy != "" {
		createdBy = &preview.CreatedBy
	}
	var regulationID *string
	if preview.Regulations.RegulationID != "" {
		regulationID = &preview.Regulations.RegulationID
	}

	records := make([]payroll.PayrollRecord, len(preview.Results))
	keys := make([]payroll.RecordKey, len(preview.Results))
	for i, r := range preview.Results {
		records[i] = payroll.PayrollRecord{
			RunID:        preview.RunID,
			RegulationID: regulationID,
			Result:       r,
			CreatedBy:    createdBy,
		}
		keys[i] = records[i].Key()
	}

	existing, err := s.payrollRepo.ExistingKeys(ctx, keys)
	if err != nil {
		return payroll.CommitBatchResponse{}, fmt.Errorf("failed to check existing payroll records: %w", err)
	}
	if len(existing) > 0 && !req.Overwrite {
		return payroll.CommitBatchResponse{}, &payroll.BatchConflictError{Keys: existing}
	}

	var saved []payroll.PayrollRecord
	err = s.transactor.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.payrollRepo.CreateBatch(ctx, records, req.Overwrite)
		return err
	})
	if err != nil {
		var conflict *payroll.BatchConflictError
		if errors.As(err, &conflict) {
			return payroll.CommitBatchResponse{}, conflict
		}
		return payroll.CommitBatchResponse{}, fmt.Errorf("failed to save payroll batch: %w", err)
	}

	if err := s.previews.Delete(ctx, preview.RunID); err != nil {
		slog.Warn("payroll: failed to drop committed preview", "run_id", preview.RunID, "error", err)
	}

	slog.Info("payroll: batch committed",
		"run_id", preview.RunID,
		"month", preview.Month,
		"year", preview.Year,
		"saved", len(saved),
		"overwritten", len(existing),
	)

	return payroll.CommitBatchResponse{
		RunID:       preview.RunID,
		Month:       preview.Month,
		Year:        preview.Year,
		Saved:       len(saved),
		Overwritten: len(existing),
	}, nil
}

// ========== PAYROLL RECORDS ==========

// RecalculateRecord computes one employee outside the preview flow and
// writes the record in place. An existing record is only replaced with
// Overwrite set.
func (s *PayrollServiceImpl) RecalculateRecord(ctx context.Context, req payroll.RecalculateRecordRequest) (payroll.RecalculateRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RecalculateRecordResponse{}, err
	}

	operator, err := getOperatorFromContext(ctx)
	if err != nil {
		return payroll.RecalculateRecordResponse{}, err
	}

	regs, err := s.latestRegulations(ctx)
	if err != nil {
		return payroll.RecalculateRecordResponse{}, err
	}

	profiles, err := s.compensationRepo.GetProfiles(ctx, []string{req.EmployeeID})
	if err != nil {
		return payroll.RecalculateRecordResponse{}, fmt.Errorf("failed to get compensation profile: %w", err)
	}
	var profile *payroll.CompensationProfile
	for i := range profiles {
		if profiles[i].EmployeeID == req.EmployeeID {
			profile = &profiles[i]
			break
		}
	}
	if profile == nil {
		return payroll.RecalculateRecordResponse{}, payroll.ErrEmployeeNotFound
	}
	prepared, err := prepareProfile(*profile, req.AdHocAllowances, req.Bonuses)
	if err != nil {
		return payroll.RecalculateRecordResponse{}, err
	}

	period := attendance.Period{Month: req.Month, Year: req.Year}
	summaries, err := s.summaries.GetMonthlySummaries(ctx, period, []string{req.EmployeeID})
	if err != nil {
		return payroll.RecalculateRecordResponse{}, fmt.Errorf("failed to get attendance summary: %w", err)
	}
	summary := attendance.MonthlySummary{EmployeeID: req.EmployeeID}
	for _, sm := range summaries {
		if sm.EmployeeID == req.EmployeeID {
			summary = sm
			break
		}
	}
	summary.Month, summary.Year = req.Month, req.Year

	runID, err := uuid.NewV7()
	if err != nil {
		return payroll.RecalculateRecordResponse{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	record := payroll.PayrollRecord{
		RunID:  runID.String(),
		Result: Compute(prepared, summary, regs),
	}
	if regs.RegulationID != "" {
		record.RegulationID = &regs.RegulationID
	}
	if operator != "" {
		record.CreatedBy = &operator
	}

	var overwritten bool
	err = s.transactor.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.payrollRepo.GetPayrollRecordByEmployeePeriod(ctx, req.EmployeeID, req.Month, req.Year)
		if errors.Is(err, payroll.ErrPayrollRecordNotFound) {
			record, err = s.payrollRepo.CreatePayrollRecord(ctx, record)
			return err
		}
		if err != nil {
			return err
		}
		if !req.Overwrite {
			return payroll.ErrPayrollRecordAlreadyExists
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = s.now().UTC()
		overwritten = true
		return s.payrollRepo.UpdatePayrollRecord(ctx, record)
	})
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollRecordAlreadyExists) {
			return payroll.RecalculateRecordResponse{}, err
		}
		return payroll.RecalculateRecordResponse{}, fmt.Errorf("failed to save payroll record: %w", err)
	}

	slog.Info("payroll: record recalculated",
		"run_id", record.RunID,
		"employee_id", req.EmployeeID,
		"month", req.Month,
		"year", req.Year,
		"overwritten", overwritten,
	)

	return payroll.RecalculateRecordResponse{
		Overwritten:           overwritten,
		PayrollRecordResponse: mapToRecordResponse(record),
	}, nil
}

func (s *PayrollServiceImpl) ListPayrollRecords(ctx context.Context, month, year int) ([]payroll.PayrollRecordResponse, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, payroll.ErrInvalidPeriod
	}

	records, err := s.payrollRepo.ListPayrollRecords(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}
	return mapToRecordResponses(records), nil
}

func mapToPreviewResponse(p payroll.BatchPreview) payroll.BatchPreviewResponse {
	totals := payroll.BatchTotals{
		Employees:         len(p.Results),
		GrossSalary:       decimal.Zero,
		TotalInsurance:    decimal.Zero,
		EmployerInsurance: decimal.Zero,
		IncomeTax:         decimal.Zero,
		NetSalary:         decimal.Zero,
	}
	employees := make([]payroll.Result, len(p.Results))
	for i, r := range p.Results {
		totals.GrossSalary = totals.GrossSalary.Add(r.GrossSalary)
		totals.TotalInsurance = totals.TotalInsurance.Add(r.TotalInsurance)
		totals.EmployerInsurance = totals.EmployerInsurance.Add(r.TotalEmployerInsurance)
		totals.IncomeTax = totals.IncomeTax.Add(r.IncomeTax)
		totals.NetSalary = totals.NetSalary.Add(r.NetSalary)
		employees[i] = r.Rounded()
	}
	totals.GrossSalary = totals.GrossSalary.Round(0)
	totals.TotalInsurance = totals.TotalInsurance.Round(0)
	totals.EmployerInsurance = totals.EmployerInsurance.Round(0)
	totals.IncomeTax = totals.IncomeTax.Round(0)
	totals.NetSalary = totals.NetSalary.Round(0)

	return payroll.BatchPreviewResponse{
		RunID:       p.RunID,
		Month:       p.Month,
		Year:        p.Year,
		ExpiresAt:   p.ExpiresAt.Format(time.RFC3339),
		Regulations: p.Regulations,
		Employees:   employees,
		Skipped:     p.Skipped,
		Totals:      totals,
	}
}

func mapToRecordResponse(r payroll.PayrollRecord) payroll.PayrollRecordResponse {
	return payroll.PayrollRecordResponse{
		ID:           r.ID,
		RunID:        r.RunID,
		RegulationID: r.RegulationID,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt.Format("2006-01-02 15:04:05"),
		Result:       r.Result.Rounded(),
	}
}

func mapToRecordResponses(records []payroll.PayrollRecord) []payroll.PayrollRecordResponse {
	responses := make([]payroll.PayrollRecordResponse, len(records))
	for i, r := range records {
		responses[i] = mapToRecordResponse(r)
	}
	return responses
}
