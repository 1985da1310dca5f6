package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/repositories"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
)

// AttendanceStore keeps spotlight and event entries for a month. Callers do
// not know whether one entry is stored once or copied per attendee.
type AttendanceStore interface {
	UpsertSpotlight(ctx context.Context, month evaluation.MonthKey, entry evaluation.SpotlightAttendance, actor string) ([]string, error)
	UpsertEvent(ctx context.Context, month evaluation.MonthKey, entry evaluation.EventAttendance, actor string) ([]string, error)
	RemoveSpotlight(ctx context.Context, month evaluation.MonthKey, id string) (int, error)
	RemoveEvent(ctx context.Context, month evaluation.MonthKey, id string) (int, error)
	// Spotlights and Events return one copy per entry ID, with a warning for
	// every ID whose copies disagree.
	Spotlights(ctx context.Context, month evaluation.MonthKey) ([]evaluation.SpotlightAttendance, []string, error)
	Events(ctx context.Context, month evaluation.MonthKey) ([]evaluation.EventAttendance, []string, error)
}

type replicatedAttendanceStore struct {
	repo repositories.EvaluationRepository
}

// NewReplicatedAttendanceStore copies each entry into the evaluation row of
// every member listed in its roster.
func NewReplicatedAttendanceStore(repo repositories.EvaluationRepository) AttendanceStore {
	return &replicatedAttendanceStore{repo: repo}
}

func (s *replicatedAttendanceStore) loadOrNew(ctx context.Context, login string, month evaluation.MonthKey) (*evaluation.Evaluation, error) {
	row, err := s.repo.FindByMemberAndMonth(ctx, login, month)
	if errors.Is(err, apperr.ErrEvaluationNotFound) {
		return evaluation.New(login, month), nil
	}
	return row, err
}

func (s *replicatedAttendanceStore) UpsertSpotlight(ctx context.Context, month evaluation.MonthKey, entry evaluation.SpotlightAttendance, actor string) ([]string, error) {
	roster := evaluation.RosterLogins(entry.Roster)
	inRoster := make(map[string]struct{}, len(roster))
	for _, login := range roster {
		inRoster[login] = struct{}{}
		row, err := s.loadOrNew(ctx, login, month)
		if err != nil {
			return nil, apperr.Upstream(err)
		}
		row.UpsertSpotlight(entry)
		if _, err := s.repo.Upsert(ctx, login, month, evaluation.Patch{Spotlights: &row.Spotlights, UpdatedBy: actor}); err != nil {
			return nil, apperr.Upstream(fmt.Errorf("write spotlight %s for %s: %w", entry.ID, login, err))
		}
	}

	// Membros removidos do roster perdem sua cópia.
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	for _, row := range rows {
		if _, ok := inRoster[row.Login]; ok {
			continue
		}
		if !row.RemoveSpotlight(entry.ID) {
			continue
		}
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Spotlights: &row.Spotlights, UpdatedBy: actor}); err != nil {
			return nil, apperr.Upstream(err)
		}
	}
	return roster, nil
}

func (s *replicatedAttendanceStore) UpsertEvent(ctx context.Context, month evaluation.MonthKey, entry evaluation.EventAttendance, actor string) ([]string, error) {
	roster := evaluation.RosterLogins(entry.Roster)
	inRoster := make(map[string]struct{}, len(roster))
	for _, login := range roster {
		inRoster[login] = struct{}{}
		row, err := s.loadOrNew(ctx, login, month)
		if err != nil {
			return nil, apperr.Upstream(err)
		}
		row.UpsertEvent(entry)
		if _, err := s.repo.Upsert(ctx, login, month, evaluation.Patch{Events: &row.Events, UpdatedBy: actor}); err != nil {
			return nil, apperr.Upstream(fmt.Errorf("write event %s for %s: %w", entry.ID, login, err))
		}
	}

	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	for _, row := range rows {
		if _, ok := inRoster[row.Login]; ok {
			continue
		}
		if !row.RemoveEvent(entry.ID) {
			continue
		}
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Events: &row.Events, UpdatedBy: actor}); err != nil {
			return nil, apperr.Upstream(err)
		}
	}
	return roster, nil
}

func (s *replicatedAttendanceStore) RemoveSpotlight(ctx context.Context, month evaluation.MonthKey, id string) (int, error) {
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return 0, apperr.Upstream(err)
	}
	removed := 0
	for _, row := range rows {
		if !row.RemoveSpotlight(id) {
			continue
		}
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Spotlights: &row.Spotlights}); err != nil {
			return removed, apperr.Upstream(err)
		}
		removed++
	}
	if removed == 0 {
		return 0, fmt.Errorf("%w: spotlight %s", apperr.ErrEntryNotFound, id)
	}
	return removed, nil
}

func (s *replicatedAttendanceStore) RemoveEvent(ctx context.Context, month evaluation.MonthKey, id string) (int, error) {
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return 0, apperr.Upstream(err)
	}
	removed := 0
	for _, row := range rows {
		if !row.RemoveEvent(id) {
			continue
		}
		if _, err := s.repo.Upsert(ctx, row.Login, month, evaluation.Patch{Events: &row.Events}); err != nil {
			return removed, apperr.Upstream(err)
		}
		removed++
	}
	if removed == 0 {
		return 0, fmt.Errorf("%w: event %s", apperr.ErrEntryNotFound, id)
	}
	return removed, nil
}

func (s *replicatedAttendanceStore) Spotlights(ctx context.Context, month evaluation.MonthKey) ([]evaluation.SpotlightAttendance, []string, error) {
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, nil, apperr.Upstream(err)
	}
	byID := make(map[string]evaluation.SpotlightAttendance)
	var warnings []string
	for _, row := range rows {
		for _, entry := range row.Spotlights {
			if prev, ok := byID[entry.ID]; ok && !reflect.DeepEqual(prev, entry) {
				warnings = append(warnings, divergenceWarning("spotlight", entry.ID, row.Login))
			}
			byID[entry.ID] = entry
		}
	}
	out := make([]evaluation.SpotlightAttendance, 0, len(byID))
	for _, entry := range byID {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, warnings, nil
}

func (s *replicatedAttendanceStore) Events(ctx context.Context, month evaluation.MonthKey) ([]evaluation.EventAttendance, []string, error) {
	rows, err := s.repo.FindByMonth(ctx, month)
	if err != nil {
		return nil, nil, apperr.Upstream(err)
	}
	byID := make(map[string]evaluation.EventAttendance)
	var warnings []string
	for _, row := range rows {
		for _, entry := range row.Events {
			if prev, ok := byID[entry.ID]; ok && !reflect.DeepEqual(prev, entry) {
				warnings = append(warnings, divergenceWarning("event", entry.ID, row.Login))
			}
			byID[entry.ID] = entry
		}
	}
	out := make([]evaluation.EventAttendance, 0, len(byID))
	for _, entry := range byID {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, warnings, nil
}

func divergenceWarning(kind, id, login string) string {
	return fmt.Sprintf("%v: %s %s diverges in row %s, keeping that copy", apperr.ErrDataIntegrity, kind, id, login)
}
