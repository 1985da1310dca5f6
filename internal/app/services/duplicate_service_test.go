package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type fakeMergeEvents struct {
	events []member.MergeEvent
	err    error
}

func (f *fakeMergeEvents) Dispatch(ctx context.Context, events []member.MergeEvent) error {
	f.events = append(f.events, events...)
	return f.err
}

func newDuplicateFixture(t *testing.T, seed ...*member.Member) (DuplicateService, evaluationFixture, *fakeMergeEvents) {
	t.Helper()
	f := newEvaluationFixture(t)
	for _, m := range seed {
		if err := f.members.Create(context.Background(), m); err != nil {
			t.Fatalf("seed %s: %v", m.Login, err)
		}
	}
	events := &fakeMergeEvents{}
	return NewDuplicateService(f.members, f.svc, f.audit, events, waLog.Noop), f, events
}

func TestDetectReportsDivergentGroups(t *testing.T) {
	svc, _, _ := newDuplicateFixture(t,
		&member.Member{Login: "redshadow", DisplayName: "Red Shadow", ChatHandle: "red"},
		&member.Member{Login: "red_shadow_tv", DisplayName: "red shadow", ChatHandle: "redtv"},
		&member.Member{Login: "bob", DisplayName: "Bob"},
		&member.Member{Login: "bobby", DisplayName: "Bob"},
	)

	groups, err := svc.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if len(groups) != 2 || groups[0].Key != "bob" {
		t.Fatalf("expected two display name groups, got %+v", groups)
	}
	g := groups[1]
	if g.KeyType != "displayName" || len(g.Members) != 2 || g.Members[0].Login != "red_shadow_tv" {
		t.Fatalf("unexpected group %+v", g)
	}
}

func TestMergeFoldsMembersAndEvaluations(t *testing.T) {
	svc, f, events := newDuplicateFixture(t,
		&member.Member{Login: "alice", DisplayName: "Alice", Bio: "old bio", Role: member.RoleAffiliate},
		&member.Member{Login: "alice_alt", DisplayName: "Alice Alt", Bio: "new bio", ChatID: "111111111111111111", Role: member.RoleCommunity, VIP: true},
	)
	ctx := WithActor(context.Background(), "admin")
	if _, err := f.svc.RecordRaidPoints(ctx, testMonth, "alice_alt", 3); err != nil {
		t.Fatalf("seed raid: %v", err)
	}

	res, err := svc.Merge(ctx, member.MergeInput{
		Logins:      []string{"alice", "Alice_Alt"},
		MergedLogin: "alice",
		Selections: map[member.Field]string{
			member.FieldBio:    "alice_alt",
			member.FieldChatID: "alice_alt",
			member.FieldVIP:    "alice_alt",
		},
	})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	all, _ := f.members.List(ctx)
	if len(all) != 1 || all[0].Login != "alice" || !all[0].ManualOverride {
		t.Fatalf("expected one surviving alice with manual override, got %+v", all)
	}
	got := all[0]
	if got.Bio != "new bio" || got.ChatID != "111111111111111111" || !got.VIP || got.DisplayName != "Alice" || got.Role != member.RoleAffiliate {
		t.Fatalf("selections not applied: %+v", got)
	}
	if res.MovedEvaluations != 1 || len(res.RemovedLogins) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	row, err := f.svc.Get(ctx, testMonth, "alice")
	if err != nil || row.RaidPoints != 3 {
		t.Fatalf("evaluation not moved: %+v %v", row, err)
	}
	if len(events.events) != 1 || events.events[0].Type != member.EventMerged || events.events[0].Actor != "admin" {
		t.Fatalf("unexpected merge events %+v", events.events)
	}
	if len(f.audit.records) != 1 || f.audit.records[0].action != "members.merge" {
		t.Fatalf("unexpected audit records %+v", f.audit.records)
	}
}

func TestMergeValidation(t *testing.T) {
	svc, _, events := newDuplicateFixture(t,
		&member.Member{Login: "alice"},
		&member.Member{Login: "bob"},
	)
	ctx := context.Background()

	tests := []struct {
		name string
		in   member.MergeInput
		want error
	}{
		{name: "single login", in: member.MergeInput{Logins: []string{"alice", "ALICE"}, MergedLogin: "alice"}, want: apperr.ErrInsufficientMembers},
		{name: "missing target", in: member.MergeInput{Logins: []string{"alice", "bob"}}, want: apperr.ErrMissingMergedLogin},
		{name: "unknown source", in: member.MergeInput{Logins: []string{"alice", "ghost"}, MergedLogin: "alice"}, want: apperr.ErrMemberNotFound},
		{name: "target outside group", in: member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "carol"}, want: apperr.ErrValidation},
		{
			name: "selection outside group",
			in:   member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "alice", Selections: map[member.Field]string{member.FieldBio: "carol"}},
			want: apperr.ErrValidation,
		},
		{
			name: "login selection mismatch",
			in:   member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "alice", Selections: map[member.Field]string{member.FieldLogin: "bob"}},
			want: apperr.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Merge(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(events.events) != 0 {
		t.Fatalf("failed merges must not publish events")
	}
}

func TestMergeSurvivesWebhookFailure(t *testing.T) {
	svc, f, events := newDuplicateFixture(t,
		&member.Member{Login: "alice"},
		&member.Member{Login: "bob"},
	)
	events.err = errors.New("webhook down")
	if _, err := svc.Merge(context.Background(), member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "bob"}); err != nil {
		t.Fatalf("webhook failure should not fail the merge: %v", err)
	}
	if _, err := f.members.FindByLogin(context.Background(), "alice"); !errors.Is(err, apperr.ErrMemberNotFound) {
		t.Fatalf("alice should be removed, got %v", err)
	}
	if rows, _ := f.repo.FindByMonth(context.Background(), evaluation.MonthKey("2024-03")); len(rows) != 0 {
		t.Fatalf("no evaluation rows expected")
	}
}

func TestMergeRenamesHostedSpotlights(t *testing.T) {
	svc, f, _ := newDuplicateFixture(t,
		&member.Member{Login: "alice"},
		&member.Member{Login: "bob"},
		&member.Member{Login: "carol"},
	)
	ctx := context.Background()
	s1 := evaluation.SpotlightAttendance{ID: "s1", StreamerLogin: "carol", Roster: []evaluation.Attendee{
		{Login: "bob", Present: true}, {Login: "alice"}, {Login: "carol", Present: true},
	}}
	s2 := evaluation.SpotlightAttendance{ID: "s2", StreamerLogin: "bob", Roster: []evaluation.Attendee{{Login: "carol", Present: true}}}
	s3 := evaluation.SpotlightAttendance{ID: "s3", StreamerLogin: "bob", Roster: []evaluation.Attendee{{Login: "carol"}}}
	for _, w := range []struct {
		month evaluation.MonthKey
		entry evaluation.SpotlightAttendance
	}{{testMonth, s1}, {testMonth, s2}, {"2024-04", s3}} {
		if _, err := f.svc.AddOrUpdateSpotlight(ctx, w.month, w.entry); err != nil {
			t.Fatalf("seed %s: %v", w.entry.ID, err)
		}
	}

	if _, err := svc.Merge(ctx, member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "alice"}); err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	carol, err := f.repo.FindByMemberAndMonth(ctx, "carol", testMonth)
	if err != nil {
		t.Fatalf("carol row: %v", err)
	}
	for _, sp := range carol.Spotlights {
		if sp.StreamerLogin == "bob" {
			t.Fatalf("spotlight %s still hosted by merged member", sp.ID)
		}
		for _, a := range sp.Roster {
			if a.Login == "bob" {
				t.Fatalf("spotlight %s still lists merged member", sp.ID)
			}
		}
	}
	if carol.Spotlights[1].StreamerLogin != "alice" {
		t.Fatalf("expected s2 hosted by alice, got %+v", carol.Spotlights[1])
	}
	if r := carol.Spotlights[0].Roster; len(r) != 2 || r[0].Login != "alice" || !r[0].Present {
		t.Fatalf("unexpected s1 roster %+v", r)
	}
	april, err := f.repo.FindByMemberAndMonth(ctx, "carol", "2024-04")
	if err != nil || april.Spotlights[0].StreamerLogin != "alice" {
		t.Fatalf("host outside the merged months not renamed: %+v %v", april, err)
	}
}

func TestAddOrUpdateSpotlightRejectsUnknownStreamer(t *testing.T) {
	_, f, _ := newDuplicateFixture(t, &member.Member{Login: "alice"})
	entry := evaluation.SpotlightAttendance{ID: "s1", StreamerLogin: "ghost", Roster: []evaluation.Attendee{{Login: "alice", Present: true}}}
	if _, err := f.svc.AddOrUpdateSpotlight(context.Background(), testMonth, entry); !errors.Is(err, apperr.ErrUnknownMember) {
		t.Fatalf("expected unknown streamer to be rejected, got %v", err)
	}
}

type failingReassign struct {
	EvaluationService
	err error
}

func (f failingReassign) ReassignMember(ctx context.Context, from, to string) (int, error) {
	return 0, f.err
}

func TestMergeRecordsPartialReassign(t *testing.T) {
	f := newEvaluationFixture(t, "alice", "bob")
	events := &fakeMergeEvents{}
	svc := NewDuplicateService(f.members, failingReassign{EvaluationService: f.svc, err: apperr.ErrUpstreamUnavailable}, f.audit, events, waLog.Noop)

	res, err := svc.Merge(context.Background(), member.MergeInput{Logins: []string{"alice", "bob"}, MergedLogin: "alice"})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected reassign error to surface, got %v", err)
	}
	if res == nil || !res.Partial {
		t.Fatalf("expected partial result, got %+v", res)
	}
	if _, err := f.members.FindByLogin(context.Background(), "bob"); !errors.Is(err, apperr.ErrMemberNotFound) {
		t.Fatalf("directory merge should stay committed, got %v", err)
	}
	if len(f.audit.records) != 1 || f.audit.records[0].action != "members.merge" {
		t.Fatalf("expected audit record, got %+v", f.audit.records)
	}
	record, _ := f.audit.records[0].record.(map[string]any)
	if record["partial"] != true {
		t.Fatalf("audit record should be marked partial: %+v", record)
	}
	if len(events.events) != 1 || !events.events[0].Partial {
		t.Fatalf("expected one partial merge event, got %+v", events.events)
	}
}
