package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/identity"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// DuplicateService finds suspected duplicate members and merges them.
type DuplicateService interface {
	Detect(ctx context.Context) ([]member.DuplicateGroup, error)
	Merge(ctx context.Context, in member.MergeInput) (*member.MergeResult, error)
}

type duplicateService struct {
	members     repositories.MemberRepository
	evaluations EvaluationService
	audit       AuditRecorder
	events      MergeEventsDispatcher
	log         waLog.Logger
	now         func() time.Time
}

func NewDuplicateService(members repositories.MemberRepository, evaluations EvaluationService, audit AuditRecorder, events MergeEventsDispatcher, log waLog.Logger) DuplicateService {
	if log == nil {
		log = waLog.Noop
	}
	return &duplicateService{
		members:     members,
		evaluations: evaluations,
		audit:       audit,
		events:      events,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Detect recalcula os grupos de duplicados a partir do diretório atual.
func (s *duplicateService) Detect(ctx context.Context) ([]member.DuplicateGroup, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	byLogin := make(map[string]*member.Member, len(members))
	records := make([]identity.Record, 0, len(members))
	for _, m := range members {
		byLogin[m.Login] = m
		records = append(records, identity.Record{
			Login:       m.Login,
			DisplayName: m.DisplayName,
			ChatHandle:  m.ChatHandle,
			ChatID:      m.ChatID,
		})
	}

	groups := identity.DetectDuplicates(records)
	out := make([]member.DuplicateGroup, 0, len(groups))
	for _, g := range groups {
		dg := member.DuplicateGroup{Key: g.Key, KeyType: string(g.KeyType), Members: make([]member.Member, 0, len(g.Logins))}
		for _, login := range g.Logins {
			if m, ok := byLogin[login]; ok {
				dg.Members = append(dg.Members, *m)
			}
		}
		out = append(out, dg)
	}
	s.log.Debugf("duplicate scan over %d member(s) found %d group(s)", len(members), len(out))
	return out, nil
}

// Merge folds every member of in.Logins into one record keyed by
// in.MergedLogin. Field values come from the selected members; unselected
// fields keep the merged member's value.
func (s *duplicateService) Merge(ctx context.Context, in member.MergeInput) (*member.MergeResult, error) {
	logins := uniqueLogins(in.Logins)
	if len(logins) < 2 {
		return nil, apperr.ErrInsufficientMembers
	}
	target := identity.NormalizeLogin(in.MergedLogin)
	if target == "" {
		return nil, apperr.ErrMissingMergedLogin
	}

	sources := make(map[string]*member.Member, len(logins))
	for _, login := range logins {
		m, err := s.members.FindByLogin(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", login, apperr.Upstream(err))
		}
		sources[login] = m
	}
	base, ok := sources[target]
	if !ok {
		return nil, apperr.Validationf("merged login %s is not part of the group", target)
	}

	winner := *base
	winner.Badges = append([]string(nil), base.Badges...)
	for field, from := range in.Selections {
		if !member.ValidField(field) {
			return nil, apperr.Validationf("unknown merge field %q", field)
		}
		src, ok := sources[identity.NormalizeLogin(from)]
		if !ok {
			return nil, apperr.Validationf("field %s selects %q outside the group", field, from)
		}
		if field == member.FieldLogin && src.Login != target {
			return nil, apperr.Validationf("login selection %s must match merged login %s", src.Login, target)
		}
		member.CopyField(&winner, src, field)
	}

	removed := make([]string, 0, len(logins)-1)
	for _, login := range logins {
		if login == target {
			continue
		}
		removed = append(removed, login)
		if sources[login].CreatedAt.Before(winner.CreatedAt) && !sources[login].CreatedAt.IsZero() {
			winner.CreatedAt = sources[login].CreatedAt
		}
		if sources[login].Active {
			winner.Active = true
		}
	}
	winner.Login = target
	winner.ManualOverride = true
	winner.UpdatedAt = s.now()

	if err := s.members.Merge(ctx, &winner, removed); err != nil {
		return nil, apperr.Upstream(err)
	}

	// A partir daqui o merge do diretório já foi gravado: auditoria e evento
	// saem mesmo se mover as avaliações falhar.
	result := &member.MergeResult{Member: winner, RemovedLogins: removed}
	var reassignErr error
	for _, login := range removed {
		moved, err := s.evaluations.ReassignMember(ctx, login, target)
		result.MovedEvaluations += moved
		if err != nil {
			reassignErr = fmt.Errorf("reassign evaluations of %s: %w", login, err)
			result.Partial = true
			break
		}
	}
	if reassignErr != nil {
		s.log.Errorf("merged %v into %s but evaluations were not fully moved: %v", removed, target, reassignErr)
	} else {
		s.log.Infof("merged %v into %s, %d evaluation month(s) moved", removed, target, result.MovedEvaluations)
	}

	before := make([]member.Member, 0, len(logins))
	for _, login := range logins {
		before = append(before, *sources[login])
	}
	if s.audit != nil {
		record := map[string]any{
			"actor":  ActorFrom(ctx),
			"input":  in,
			"before": before,
			"after":  winner,
		}
		if reassignErr != nil {
			record["partial"] = true
			record["error"] = reassignErr.Error()
		}
		if _, err := s.audit.Write("members.merge", target, record); err != nil {
			s.log.Warnf("merge audit for %s not written: %v", target, err)
		}
	}
	if s.events != nil {
		event := member.MergeEvent{
			Type:          member.EventMerged,
			MergedLogin:   target,
			RemovedLogins: removed,
			Selections:    in.Selections,
			Actor:         ActorFrom(ctx),
			OccurredAt:    winner.UpdatedAt,
			Partial:       result.Partial,
		}
		if err := s.events.Dispatch(ctx, []member.MergeEvent{event}); err != nil {
			s.log.Warnf("merge event for %s not delivered: %v", target, err)
		}
	}
	return result, reassignErr
}

func uniqueLogins(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = identity.NormalizeLogin(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
