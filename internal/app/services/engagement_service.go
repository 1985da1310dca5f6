package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/engagement"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// ImportResult is the parser report plus what was written to section B.
type ImportResult struct {
	Month   evaluation.MonthKey `json:"month"`
	DryRun  bool                `json:"dryRun"`
	Report  engagement.Report   `json:"report"`
	Applied int                 `json:"applied"`
	Errors  []string            `json:"errors"`
}

// EngagementService importa exports de atividade do chat para a seção B.
type EngagementService interface {
	Preview(ctx context.Context, month evaluation.MonthKey, kind engagement.CounterKind, raw string) (*ImportResult, error)
	Import(ctx context.Context, month evaluation.MonthKey, kind engagement.CounterKind, raw string) (*ImportResult, error)
}

type engagementService struct {
	members     repositories.MemberRepository
	evaluations EvaluationService
	log         waLog.Logger
}

func NewEngagementService(members repositories.MemberRepository, evaluations EvaluationService, log waLog.Logger) EngagementService {
	if log == nil {
		log = waLog.Noop
	}
	return &engagementService{members: members, evaluations: evaluations, log: log}
}

func (s *engagementService) Preview(ctx context.Context, month evaluation.MonthKey, kind engagement.CounterKind, raw string) (*ImportResult, error) {
	return s.run(ctx, month, kind, raw, true)
}

// Import grava o maior valor visto por membro encontrado. Cada membro é
// aplicado de forma independente; uma falha não interrompe o lote.
func (s *engagementService) Import(ctx context.Context, month evaluation.MonthKey, kind engagement.CounterKind, raw string) (*ImportResult, error) {
	return s.run(ctx, month, kind, raw, false)
}

func (s *engagementService) run(ctx context.Context, month evaluation.MonthKey, kind engagement.CounterKind, raw string, dryRun bool) (*ImportResult, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	kind, err := engagement.ParseCounterKind(string(kind))
	if err != nil {
		return nil, apperr.Validationf("%v", err)
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	report := engagement.Process(raw, kind, dir)
	result := &ImportResult{Month: month, DryRun: dryRun, Report: report, Errors: []string{}}
	s.log.Infof("engagement %s %s: %d line(s), %d matched, %d unmatched, %d parse error(s)",
		kind, month, report.TotalLinesRead, len(report.Matched), len(report.Unmatched), len(report.ParseErrors))
	if dryRun {
		return result, nil
	}

	totals := report.Totals()
	logins := make([]string, 0, len(totals))
	for login := range totals {
		logins = append(logins, login)
	}
	sort.Strings(logins)

	for _, login := range logins {
		value := totals[login]
		var counters EngagementCounters
		if kind == engagement.KindVoice {
			counters.VoiceMinutes = &value
		} else {
			counters.Messages = &value
		}
		if _, err := s.evaluations.RecordEngagement(ctx, month, login, counters); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", login, err))
			continue
		}
		result.Applied++
	}
	if len(result.Errors) > 0 {
		s.log.Warnf("engagement %s %s: %d member(s) not written", kind, month, len(result.Errors))
	}
	return result, nil
}

func (s *engagementService) directory(ctx context.Context) (*engagement.Directory, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	entries := make([]engagement.DirectoryEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, engagement.DirectoryEntry{
			Login:       m.Login,
			DisplayName: m.DisplayName,
			ChatHandle:  m.ChatHandle,
			ChatID:      m.ChatID,
		})
	}
	return engagement.NewDirectory(entries), nil
}
