package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/scoring"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/storage"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/errgroup"
)

var legacySections = []string{
	evaluation.LegacySectionA,
	evaluation.LegacySectionB,
	evaluation.LegacySectionC,
	evaluation.LegacySectionD,
}

// MonthSummary is the reconciliation outcome of one legacy month. In a check
// run Migrated counts the rows that would be created.
type MonthSummary struct {
	Month    evaluation.MonthKey `json:"month"`
	Logins   int                 `json:"logins"`
	Migrated int                 `json:"migrated"`
	Skipped  int                 `json:"skipped"`
	Errors   []string            `json:"errors"`
}

// ReconcileReport aggregates the per-month summaries of one run.
type ReconcileReport struct {
	DryRun   bool           `json:"dryRun"`
	Months   []MonthSummary `json:"months"`
	Migrated int            `json:"migrated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
}

// ReconciliationService copia os meses do blob store legado para o banco
// relacional de avaliações. Linhas existentes nunca são sobrescritas.
type ReconciliationService interface {
	Months(ctx context.Context) ([]evaluation.MonthKey, error)
	Reconcile(ctx context.Context, months ...evaluation.MonthKey) (*ReconcileReport, error)
	Check(ctx context.Context, months ...evaluation.MonthKey) (*ReconcileReport, error)
}

type reconciliationService struct {
	legacy      storage.KeyValueStore
	prefix      string
	repo        repositories.EvaluationRepository
	calc        *scoring.Calculator
	weights     evaluation.Weights
	concurrency int
	audit       AuditRecorder
	log         waLog.Logger
}

func NewReconciliationService(legacy storage.KeyValueStore, prefix string, repo repositories.EvaluationRepository, calc *scoring.Calculator, weights evaluation.Weights, concurrency int, audit AuditRecorder, log waLog.Logger) ReconciliationService {
	if calc == nil {
		calc = scoring.NewCalculator()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = waLog.Noop
	}
	return &reconciliationService{
		legacy:      legacy,
		prefix:      prefix,
		repo:        repo,
		calc:        calc,
		weights:     weights,
		concurrency: concurrency,
		audit:       audit,
		log:         log,
	}
}

// Months lista os meses presentes no store legado, do mais antigo ao mais novo.
func (s *reconciliationService) Months(ctx context.Context) ([]evaluation.MonthKey, error) {
	if s.legacy == nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, storage.ErrNotConfigured)
	}
	keys, err := s.legacy.ListKeys(ctx, s.prefix)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	seen := make(map[evaluation.MonthKey]struct{})
	var out []evaluation.MonthKey
	for _, key := range keys {
		rest := strings.TrimPrefix(key, s.prefix)
		segment, _, found := strings.Cut(rest, "/")
		if !found {
			continue
		}
		month, err := evaluation.ParseMonthKey(segment)
		if err != nil {
			s.log.Debugf("ignoring legacy key %s: %v", key, err)
			continue
		}
		if _, ok := seen[month]; ok {
			continue
		}
		seen[month] = struct{}{}
		out = append(out, month)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *reconciliationService) Reconcile(ctx context.Context, months ...evaluation.MonthKey) (*ReconcileReport, error) {
	return s.run(ctx, false, months)
}

func (s *reconciliationService) Check(ctx context.Context, months ...evaluation.MonthKey) (*ReconcileReport, error) {
	return s.run(ctx, true, months)
}

func (s *reconciliationService) run(ctx context.Context, dryRun bool, months []evaluation.MonthKey) (*ReconcileReport, error) {
	if s.legacy == nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, storage.ErrNotConfigured)
	}
	for _, m := range months {
		if err := checkMonth(m); err != nil {
			return nil, err
		}
	}
	if len(months) == 0 {
		found, err := s.Months(ctx)
		if err != nil {
			return nil, err
		}
		months = found
	}

	summaries := make([]MonthSummary, len(months))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, month := range months {
		i, month := i, month
		g.Go(func() error {
			summaries[i] = s.reconcileMonth(ctx, month, dryRun)
			return nil
		})
	}
	_ = g.Wait()

	report := &ReconcileReport{DryRun: dryRun, Months: summaries}
	for _, sum := range summaries {
		report.Migrated += sum.Migrated
		report.Skipped += sum.Skipped
		report.Errors += len(sum.Errors)
	}
	mode := "reconcile"
	if dryRun {
		mode = "check"
	}
	s.log.Infof("%s over %d month(s): %d migrated, %d skipped, %d error(s)", mode, len(months), report.Migrated, report.Skipped, report.Errors)
	return report, nil
}

func (s *reconciliationService) loadMonth(ctx context.Context, month evaluation.MonthKey) (*evaluation.LegacyMonth, error) {
	legacy := &evaluation.LegacyMonth{Month: month}
	for _, name := range legacySections {
		raw, err := s.legacy.Get(ctx, s.prefix+string(month)+"/"+name)
		if err != nil {
			return nil, apperr.Upstream(fmt.Errorf("read %s/%s: %w", month, name, err))
		}
		if err := legacy.DecodeSection(name, raw); err != nil {
			return nil, err
		}
	}
	return legacy, nil
}

// reconcileMonth nunca falha como um todo: cada problema vai para Errors e
// as linhas já gravadas permanecem.
func (s *reconciliationService) reconcileMonth(ctx context.Context, month evaluation.MonthKey, dryRun bool) MonthSummary {
	sum := MonthSummary{Month: month, Errors: []string{}}
	legacy, err := s.loadMonth(ctx, month)
	if err != nil {
		sum.Errors = append(sum.Errors, err.Error())
		return sum
	}

	logins := legacy.Logins()
	sum.Logins = len(logins)
	var migrated []string
	for _, login := range logins {
		if err := ctx.Err(); err != nil {
			sum.Errors = append(sum.Errors, err.Error())
			break
		}
		_, err := s.repo.FindByMemberAndMonth(ctx, login, month)
		if err == nil {
			sum.Skipped++
			continue
		}
		if !errors.Is(err, apperr.ErrEvaluationNotFound) {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", login, apperr.Upstream(err)))
			continue
		}
		if dryRun {
			sum.Migrated++
			continue
		}

		row := legacy.Build(login)
		row.Engagement = rateEngagement(s.calc, row.Engagement)
		totals := row.ComputeTotals(s.weights)
		patch := evaluation.Patch{
			Spotlights:        &row.Spotlights,
			Events:            &row.Events,
			RaidPoints:        &row.RaidPoints,
			SpotlightBonus:    &row.SpotlightBonus,
			Engagement:        &row.Engagement,
			FollowValidations: &row.FollowValidations,
			Bonuses:           &row.Bonuses,
			Totals:            &totals,
			UpdatedBy:         "legacy-reconcile",
		}
		if _, err := s.repo.Upsert(ctx, login, month, patch); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", login, apperr.Upstream(err)))
			continue
		}
		sum.Migrated++
		migrated = append(migrated, login)
	}

	if !dryRun && len(migrated) > 0 && s.audit != nil {
		if _, err := s.audit.Write("evaluations.reconcile", string(month), map[string]any{
			"migrated": migrated,
			"skipped":  sum.Skipped,
			"errors":   sum.Errors,
		}); err != nil {
			s.log.Warnf("reconcile audit for %s not written: %v", month, err)
		}
	}
	if len(sum.Errors) > 0 {
		s.log.Warnf("reconcile %s: %d error(s)", month, len(sum.Errors))
	}
	return sum
}
