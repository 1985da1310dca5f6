package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/scoring"
	"github.com/google/uuid"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// AuditRecorder grava ações administrativas. *eventlog.Writer satisfaz a interface.
type AuditRecorder interface {
	Write(action, subject string, record any) (string, error)
}

// SectionA é a visão entre membros da seção de presença de um mês.
type SectionA struct {
	Month          evaluation.MonthKey              `json:"month"`
	Spotlights     []evaluation.SpotlightAttendance `json:"spotlights"`
	Events         []evaluation.EventAttendance     `json:"events"`
	RaidPoints     map[string]int                   `json:"raidPoints"`
	SpotlightBonus map[string]int                   `json:"spotlightBonus"`
	Warnings       []string                         `json:"warnings,omitempty"`
}

// EngagementCounters sets the section B counters. Nil counters keep their
// stored value.
type EngagementCounters struct {
	Messages     *int `json:"messages,omitempty"`
	VoiceMinutes *int `json:"voiceMinutes,omitempty"`
}

// EntryWriteResult reports which member rows received a replicated entry.
type EntryWriteResult struct {
	Month  evaluation.MonthKey `json:"month"`
	ID     string              `json:"id"`
	Logins []string            `json:"logins"`
}

// BatchResult summarizes a month-wide operation made of independent row writes.
type BatchResult struct {
	Month   evaluation.MonthKey `json:"month"`
	Rows    int                 `json:"rows"`
	Updated int                 `json:"updated"`
	Errors  []string            `json:"errors"`
}

// EvaluationService agrega as quatro seções nas avaliações mensais.
// A linha de um membro só é criada na primeira escrita.
type EvaluationService interface {
	AddOrUpdateSpotlight(ctx context.Context, month evaluation.MonthKey, entry evaluation.SpotlightAttendance) (EntryWriteResult, error)
	AddOrUpdateEvent(ctx context.Context, month evaluation.MonthKey, entry evaluation.EventAttendance) (EntryWriteResult, error)
	RemoveSpotlight(ctx context.Context, month evaluation.MonthKey, id string) (int, error)
	RemoveEvent(ctx context.Context, month evaluation.MonthKey, id string) (int, error)
	RecordRaidPoints(ctx context.Context, month evaluation.MonthKey, login string, points int) (*evaluation.Evaluation, error)
	RecordSpotlightBonus(ctx context.Context, month evaluation.MonthKey, login string, points int) (*evaluation.Evaluation, error)
	ReadSectionA(ctx context.Context, month evaluation.MonthKey) (*SectionA, error)
	RecordEngagement(ctx context.Context, month evaluation.MonthKey, login string, counters EngagementCounters) (*evaluation.Evaluation, error)
	UpsertFollowValidation(ctx context.Context, month evaluation.MonthKey, login string, entry evaluation.FollowValidation) (*evaluation.Evaluation, error)
	AwardBonus(ctx context.Context, month evaluation.MonthKey, login string, entry evaluation.Bonus) (*evaluation.Evaluation, error)
	RemoveBonus(ctx context.Context, month evaluation.MonthKey, login, id string) (*evaluation.Evaluation, error)
	Get(ctx context.Context, month evaluation.MonthKey, login string) (*evaluation.Evaluation, error)
	ListMonth(ctx context.Context, month evaluation.MonthKey) ([]*evaluation.Evaluation, error)
	Recompute(ctx context.Context, month evaluation.MonthKey) (BatchResult, error)
	ResetMonth(ctx context.Context, month evaluation.MonthKey) (int, error)
	ReassignMember(ctx context.Context, from, to string) (int, error)
}

type evaluationService struct {
	repo       repositories.EvaluationRepository
	members    repositories.MemberRepository
	attendance AttendanceStore
	calc       *scoring.Calculator
	weights    evaluation.Weights
	audit      AuditRecorder
	log        waLog.Logger
	now        func() time.Time
}

// NewEvaluationService monta o agregador. Sem attendance store usa o layout
// replicado sobre repo.
func NewEvaluationService(repo repositories.EvaluationRepository, members repositories.MemberRepository, attendance AttendanceStore, calc *scoring.Calculator, weights evaluation.Weights, audit AuditRecorder, log waLog.Logger) EvaluationService {
	if attendance == nil {
		attendance = NewReplicatedAttendanceStore(repo)
	}
	if calc == nil {
		calc = scoring.NewCalculator()
	}
	if log == nil {
		log = waLog.Noop
	}
	return &evaluationService{
		repo:       repo,
		members:    members,
		attendance: attendance,
		calc:       calc,
		weights:    weights,
		audit:      audit,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func checkMonth(month evaluation.MonthKey) error {
	_, err := evaluation.ParseMonthKey(string(month))
	return err
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// requireMembers rejeita a escrita inteira se algum login não está no diretório.
func (s *evaluationService) requireMembers(ctx context.Context, logins ...string) error {
	for _, login := range logins {
		if login == "" {
			return fmt.Errorf("%w: login", apperr.ErrMissingField)
		}
		if _, err := s.members.FindByLogin(ctx, login); err != nil {
			if errors.Is(err, apperr.ErrMemberNotFound) {
				return fmt.Errorf("%w: %s", apperr.ErrUnknownMember, login)
			}
			return apperr.Upstream(err)
		}
	}
	return nil
}

func (s *evaluationService) load(ctx context.Context, login string, month evaluation.MonthKey) (*evaluation.Evaluation, error) {
	row, err := s.repo.FindByMemberAndMonth(ctx, login, month)
	if errors.Is(err, apperr.ErrEvaluationNotFound) {
		return evaluation.New(login, month), nil
	}
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return row, nil
}

func (s *evaluationService) write(ctx context.Context, login string, month evaluation.MonthKey, patch evaluation.Patch) (*evaluation.Evaluation, error) {
	if patch.UpdatedBy == "" {
		patch.UpdatedBy = ActorFrom(ctx)
	}
	row, err := s.repo.Upsert(ctx, login, month, patch)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return row.WithTotals(s.weights), nil
}

func (s *evaluationService) AddOrUpdateSpotlight(ctx context.Context, month evaluation.MonthKey, entry evaluation.SpotlightAttendance) (EntryWriteResult, error) {
	if err := checkMonth(month); err != nil {
		return EntryWriteResult{}, err
	}
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return EntryWriteResult{}, fmt.Errorf("%w: spotlight id", apperr.ErrMissingField)
	}
	entry.StreamerLogin = normalizeLogin(entry.StreamerLogin)
	entry.Roster = evaluation.NormalizeRoster(entry.Roster)
	known := evaluation.RosterLogins(entry.Roster)
	if entry.StreamerLogin != "" {
		known = append(known, entry.StreamerLogin)
	}
	if err := s.requireMembers(ctx, known...); err != nil {
		return EntryWriteResult{}, err
	}
	logins, err := s.attendance.UpsertSpotlight(ctx, month, entry, ActorFrom(ctx))
	if err != nil {
		return EntryWriteResult{}, err
	}
	s.log.Infof("spotlight %s stored for %d member(s) in %s", entry.ID, len(logins), month)
	return EntryWriteResult{Month: month, ID: entry.ID, Logins: logins}, nil
}

func (s *evaluationService) AddOrUpdateEvent(ctx context.Context, month evaluation.MonthKey, entry evaluation.EventAttendance) (EntryWriteResult, error) {
	if err := checkMonth(month); err != nil {
		return EntryWriteResult{}, err
	}
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return EntryWriteResult{}, fmt.Errorf("%w: event id", apperr.ErrMissingField)
	}
	entry.Roster = evaluation.NormalizeRoster(entry.Roster)
	if err := s.requireMembers(ctx, evaluation.RosterLogins(entry.Roster)...); err != nil {
		return EntryWriteResult{}, err
	}
	logins, err := s.attendance.UpsertEvent(ctx, month, entry, ActorFrom(ctx))
	if err != nil {
		return EntryWriteResult{}, err
	}
	s.log.Infof("event %s stored for %d member(s) in %s", entry.ID, len(logins), month)
	return EntryWriteResult{Month: month, ID: entry.ID, Logins: logins}, nil
}

func (s *evaluationService) RemoveSpotlight(ctx context.Context, month evaluation.MonthKey, id string) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	return s.attendance.RemoveSpotlight(ctx, month, strings.TrimSpace(id))
}

func (s *evaluationService) RemoveEvent(ctx context.Context, month evaluation.MonthKey, id string) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	return s.attendance.RemoveEvent(ctx, month, strings.TrimSpace(id))
}

func (s *evaluationService) RecordRaidPoints(ctx context.Context, month evaluation.MonthKey, login string, points int) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	if err := s.requireMembers(ctx, login); err != nil {
		return nil, err
	}
	return s.write(ctx, login, month, evaluation.Patch{RaidPoints: &points})
}

func (s *evaluationService) RecordSpotlightBonus(ctx context.Context, month evaluation.MonthKey, login string, points int) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	if err := s.requireMembers(ctx, login); err != nil {
		return nil, err
	}
	return s.write(ctx, login, month, evaluation.Patch{SpotlightBonus: &points})
}

func (s *evaluationService) ReadSectionA(ctx context.Context, month evaluation.MonthKey) (*SectionA, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	spotlights, spotWarnings, err := s.attendance.Spotlights(ctx, month)
	if err != nil {
		return nil, err
	}
	events, eventWarnings, err := s.attendance.Events(ctx, month)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	out := &SectionA{
		Month:          month,
		Spotlights:     spotlights,
		Events:         events,
		RaidPoints:     make(map[string]int),
		SpotlightBonus: make(map[string]int),
		Warnings:       append(spotWarnings, eventWarnings...),
	}
	for _, row := range rows {
		if row.RaidPoints != 0 {
			out.RaidPoints[row.Login] = row.RaidPoints
		}
		if row.SpotlightBonus != 0 {
			out.SpotlightBonus[row.Login] = row.SpotlightBonus
		}
	}
	for _, w := range out.Warnings {
		s.log.Warnf("section A %s: %s", month, w)
	}
	return out, nil
}

func (s *evaluationService) RecordEngagement(ctx context.Context, month evaluation.MonthKey, login string, counters EngagementCounters) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	if err := s.requireMembers(ctx, login); err != nil {
		return nil, err
	}
	if (counters.Messages != nil && *counters.Messages < 0) || (counters.VoiceMinutes != nil && *counters.VoiceMinutes < 0) {
		return nil, apperr.Validationf("counters must not be negative")
	}
	row, err := s.load(ctx, login, month)
	if err != nil {
		return nil, err
	}
	eng := row.Engagement
	if counters.Messages != nil {
		eng.Messages = *counters.Messages
	}
	if counters.VoiceMinutes != nil {
		eng.VoiceMinutes = *counters.VoiceMinutes
	}
	eng = rateEngagement(s.calc, eng)
	return s.write(ctx, login, month, evaluation.Patch{Engagement: &eng})
}

func rateEngagement(calc *scoring.Calculator, eng evaluation.Engagement) evaluation.Engagement {
	res := calc.Rate(eng.Messages, eng.VoiceMinutes)
	eng.TextScore = res.TextScore
	eng.VoiceScore = res.VoiceScore
	eng.FinalScore = res.FinalScore
	eng.Label = res.Label
	return eng
}

func (s *evaluationService) UpsertFollowValidation(ctx context.Context, month evaluation.MonthKey, login string, entry evaluation.FollowValidation) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	if err := s.requireMembers(ctx, login); err != nil {
		return nil, err
	}
	if entry.Score < 0 || entry.Score > scoring.MaxScore {
		return nil, fmt.Errorf("%w: follow score %d", apperr.ErrInvalidScore, entry.Score)
	}
	if entry.Followed < 0 || entry.Total < 0 {
		return nil, apperr.Validationf("follow counters must not be negative")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ValidatedAt.IsZero() {
		entry.ValidatedAt = s.now()
	}
	entry.StaffLogin = normalizeLogin(entry.StaffLogin)

	row, err := s.load(ctx, login, month)
	if err != nil {
		return nil, err
	}
	row.UpsertFollowValidation(entry)
	return s.write(ctx, login, month, evaluation.Patch{FollowValidations: &row.FollowValidations, UpdatedBy: entry.StaffLogin})
}

func (s *evaluationService) AwardBonus(ctx context.Context, month evaluation.MonthKey, login string, entry evaluation.Bonus) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	if err := s.requireMembers(ctx, login); err != nil {
		return nil, err
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AwardedAt.IsZero() {
		entry.AwardedAt = s.now()
	}
	if entry.AwardedBy == "" {
		entry.AwardedBy = ActorFrom(ctx)
	}

	row, err := s.load(ctx, login, month)
	if err != nil {
		return nil, err
	}
	row.UpsertBonus(entry)
	return s.write(ctx, login, month, evaluation.Patch{Bonuses: &row.Bonuses, UpdatedBy: entry.AwardedBy})
}

func (s *evaluationService) RemoveBonus(ctx context.Context, month evaluation.MonthKey, login, id string) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	login = normalizeLogin(login)
	row, err := s.repo.FindByMemberAndMonth(ctx, login, month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if !row.RemoveBonus(strings.TrimSpace(id)) {
		return nil, fmt.Errorf("%w: bonus %s", apperr.ErrEntryNotFound, id)
	}
	return s.write(ctx, login, month, evaluation.Patch{Bonuses: &row.Bonuses})
}

func (s *evaluationService) Get(ctx context.Context, month evaluation.MonthKey, login string) (*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	row, err := s.repo.FindByMemberAndMonth(ctx, normalizeLogin(login), month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return row.WithTotals(s.weights), nil
}

func (s *evaluationService) ListMonth(ctx context.Context, month evaluation.MonthKey) ([]*evaluation.Evaluation, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	out := make([]*evaluation.Evaluation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.WithTotals(s.weights))
	}
	return out, nil
}

// Recompute persiste os totais de cada linha cujo total salvo está defasado.
// Uma linha com erro é reportada e a varredura continua.
func (s *evaluationService) Recompute(ctx context.Context, month evaluation.MonthKey) (BatchResult, error) {
	result := BatchResult{Month: month, Errors: []string{}}
	if err := checkMonth(month); err != nil {
		return result, err
	}
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return result, apperr.Upstream(err)
	}
	result.Rows = len(rows)
	for _, row := range rows {
		totals := row.ComputeTotals(s.weights)
		if totals == row.Totals {
			continue
		}
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Totals: &totals, UpdatedBy: ActorFrom(ctx)}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", row.Login, err))
			continue
		}
		result.Updated++
	}
	s.log.Infof("recomputed %s: %d/%d row(s) updated, %d error(s)", month, result.Updated, result.Rows, len(result.Errors))
	return result, nil
}

func (s *evaluationService) ResetMonth(ctx context.Context, month evaluation.MonthKey) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return 0, apperr.Upstream(err)
	}
	s.recordAudit("evaluations.reset", string(month), map[string]any{"actor": ActorFrom(ctx), "rows": rows})
	n, err := s.repo.DeleteByMonth(ctx, month)
	if err != nil {
		return 0, apperr.Upstream(err)
	}
	s.log.Warnf("month %s reset, %d row(s) deleted", month, n)
	return n, nil
}

// ReassignMember funde cada linha de from na linha de to do mesmo mês e
// depois renomeia from nos rosters e nos hosts de spotlight das outras
// linhas, em qualquer mês. Retorna o número de meses movidos.
func (s *evaluationService) ReassignMember(ctx context.Context, from, to string) (int, error) {
	from, to = normalizeLogin(from), normalizeLogin(to)
	if from == "" || to == "" {
		return 0, fmt.Errorf("%w: login", apperr.ErrMissingField)
	}
	if from == to {
		return 0, nil
	}
	loserRows, err := s.repo.FindByMember(ctx, from)
	if err != nil {
		return 0, apperr.Upstream(err)
	}

	moved := 0
	for _, loser := range loserRows {
		month := loser.Month
		target, err := s.load(ctx, to, month)
		if err != nil {
			return moved, err
		}
		merged := mergeRows(target, loser, from, to)
		merged.Engagement = rateEngagement(s.calc, merged.Engagement)
		totals := merged.ComputeTotals(s.weights)
		patch := evaluation.Patch{
			Spotlights:        &merged.Spotlights,
			Events:            &merged.Events,
			RaidPoints:        &merged.RaidPoints,
			SpotlightBonus:    &merged.SpotlightBonus,
			Engagement:        &merged.Engagement,
			FollowValidations: &merged.FollowValidations,
			Bonuses:           &merged.Bonuses,
			Totals:            &totals,
			UpdatedBy:         ActorFrom(ctx),
		}
		if _, err := s.repo.Upsert(ctx, to, month, patch); err != nil {
			return moved, apperr.Upstream(fmt.Errorf("merge %s into %s for %s: %w", from, to, month, err))
		}
		if err := s.repo.Delete(ctx, from, month); err != nil && !errors.Is(err, apperr.ErrEvaluationNotFound) {
			return moved, apperr.Upstream(err)
		}
		moved++
	}

	months, err := s.repo.ListMonths(ctx)
	if err != nil {
		return moved, apperr.Upstream(err)
	}
	for _, month := range months {
		if err := s.renameInMonth(ctx, month, from, to); err != nil {
			return moved, err
		}
	}
	if moved > 0 {
		s.log.Infof("reassigned %d month(s) from %s to %s", moved, from, to)
	}
	return moved, nil
}

func (s *evaluationService) renameInMonth(ctx context.Context, month evaluation.MonthKey, from, to string) error {
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return apperr.Upstream(err)
	}
	for _, row := range rows {
		if !mentions(row, from) {
			continue
		}
		row.RenameAttendee(from, to)
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Spotlights: &row.Spotlights, Events: &row.Events}); err != nil {
			return apperr.Upstream(err)
		}
	}
	return nil
}

func mentions(row *evaluation.Evaluation, login string) bool {
	for _, sp := range row.Spotlights {
		if normalizeLogin(sp.StreamerLogin) == login {
			return true
		}
		for _, a := range sp.Roster {
			if normalizeLogin(a.Login) == login {
				return true
			}
		}
	}
	for _, ev := range row.Events {
		for _, a := range ev.Roster {
			if normalizeLogin(a.Login) == login {
				return true
			}
		}
	}
	return false
}

// mergeRows unions collections by entry ID (the target copy wins) and sums
// scalar points and counters.
func mergeRows(target, loser *evaluation.Evaluation, from, to string) *evaluation.Evaluation {
	out := target.Clone()
	for _, sp := range loser.Spotlights {
		if !hasID(len(out.Spotlights), func(i int) string { return out.Spotlights[i].ID }, sp.ID) {
			out.Spotlights = append(out.Spotlights, sp)
		}
	}
	for _, ev := range loser.Events {
		if !hasID(len(out.Events), func(i int) string { return out.Events[i].ID }, ev.ID) {
			out.Events = append(out.Events, ev)
		}
	}
	for _, fv := range loser.FollowValidations {
		if !hasID(len(out.FollowValidations), func(i int) string { return out.FollowValidations[i].ID }, fv.ID) {
			out.FollowValidations = append(out.FollowValidations, fv)
		}
	}
	for _, b := range loser.Bonuses {
		if !hasID(len(out.Bonuses), func(i int) string { return out.Bonuses[i].ID }, b.ID) {
			out.Bonuses = append(out.Bonuses, b)
		}
	}
	out.RaidPoints += loser.RaidPoints
	out.SpotlightBonus += loser.SpotlightBonus
	out.Engagement.Messages += loser.Engagement.Messages
	out.Engagement.VoiceMinutes += loser.Engagement.VoiceMinutes
	out.RenameAttendee(from, to)
	return out
}

func hasID(n int, idAt func(int) string, id string) bool {
	for i := 0; i < n; i++ {
		if idAt(i) == id {
			return true
		}
	}
	return false
}

func (s *evaluationService) recordAudit(action, subject string, record any) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Write(action, subject, record); err != nil {
		s.log.Warnf("audit %s for %s not written: %v", action, subject, err)
	}
}
