package evaluation

import (
	"errors"
	"testing"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
)

func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2024-03"},
		{in: " 2024-12 "},
		{in: "2024-13", wantErr: true},
		{in: "2024-3", wantErr: true},
		{in: "1999-01", wantErr: true},
		{in: "2024/03", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseMonthKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidMonthKey) || !errors.Is(err, apperr.ErrValidation) {
					t.Fatalf("expected invalid month key, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestUpsertSpotlightIsIdempotent(t *testing.T) {
	e := New("Alice", "2024-03")
	entry := SpotlightAttendance{ID: "s1", StreamerLogin: "bob", Roster: []Attendee{{Login: "alice", Present: true}}}
	if replaced := e.UpsertSpotlight(entry); replaced {
		t.Fatalf("first upsert should append")
	}
	if replaced := e.UpsertSpotlight(entry); !replaced {
		t.Fatalf("second upsert should replace")
	}
	if len(e.Spotlights) != 1 {
		t.Fatalf("expected one spotlight, got %d", len(e.Spotlights))
	}
	if e.Spotlights[0].Kind != KindSpotlightAttendance {
		t.Fatalf("kind not stamped: %q", e.Spotlights[0].Kind)
	}
}

func TestComputeTotals(t *testing.T) {
	e := New("alice", "2024-03")
	e.UpsertSpotlight(SpotlightAttendance{ID: "s1", Roster: []Attendee{{Login: "alice", Present: true}}})
	e.UpsertSpotlight(SpotlightAttendance{ID: "s2", Roster: []Attendee{{Login: "alice", Present: false}}})
	e.UpsertEvent(EventAttendance{ID: "e1", Roster: []Attendee{{Login: "ALICE", Present: true}}})
	e.RaidPoints = 4
	e.SpotlightBonus = 2
	e.Engagement = Engagement{FinalScore: 3}
	e.UpsertFollowValidation(FollowValidation{ID: "f1", Score: 2})
	e.UpsertFollowValidation(FollowValidation{ID: "f2", Score: 4})
	e.UpsertBonus(Bonus{ID: "b1", Points: 5})
	e.UpsertBonus(Bonus{ID: "b2", Points: -1})

	got := e.ComputeTotals(Weights{SpotlightPoints: 2, EventPoints: 3})
	want := Totals{SectionA: 2 + 3 + 4 + 2, SectionB: 3, SectionC: 4, SectionD: 4}
	want.Total = want.SectionA + want.SectionB + want.SectionC + want.SectionD
	if got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
	if e.Totals != (Totals{}) {
		t.Fatalf("ComputeTotals must not mutate the evaluation")
	}
}

func TestPatchApplyOnlySetFields(t *testing.T) {
	e := New("alice", "2024-03")
	e.RaidPoints = 7
	e.UpsertBonus(Bonus{ID: "b1", Points: 1})

	engagement := Engagement{Messages: 10, FinalScore: 1}
	Patch{Engagement: &engagement}.Apply(e)

	if e.RaidPoints != 7 || len(e.Bonuses) != 1 {
		t.Fatalf("unset fields changed: %+v", e)
	}
	if e.Engagement.Messages != 10 {
		t.Fatalf("engagement not applied")
	}
}

func TestRenameAttendeeMergesRosterLines(t *testing.T) {
	e := New("alice", "2024-03")
	e.UpsertSpotlight(SpotlightAttendance{ID: "s1", Roster: []Attendee{
		{Login: "old", Present: true},
		{Login: "alice", Present: false},
		{Login: "carol", Present: true},
	}})
	e.RenameAttendee("old", "alice")
	roster := e.Spotlights[0].Roster
	if len(roster) != 2 {
		t.Fatalf("expected merged roster of 2, got %+v", roster)
	}
	if roster[0].Login != "alice" || !roster[0].Present {
		t.Fatalf("expected alice present, got %+v", roster[0])
	}
}

func TestRenameAttendeeRewritesStreamer(t *testing.T) {
	e := New("carol", "2024-03")
	e.UpsertSpotlight(SpotlightAttendance{ID: "s1", StreamerLogin: " Old ", Roster: []Attendee{{Login: "carol", Present: true}}})
	e.UpsertSpotlight(SpotlightAttendance{ID: "s2", StreamerLogin: "dave", Roster: []Attendee{{Login: "carol"}}})
	e.RenameAttendee("old", "alice")
	if e.Spotlights[0].StreamerLogin != "alice" {
		t.Fatalf("streamer not renamed: %q", e.Spotlights[0].StreamerLogin)
	}
	if e.Spotlights[1].StreamerLogin != "dave" {
		t.Fatalf("unrelated streamer changed: %q", e.Spotlights[1].StreamerLogin)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	raw := []byte(`[{"kind":"bonus","id":"x","points":1}]`)
	if _, err := DecodeSpotlights(raw); !errors.Is(err, apperr.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
	if _, err := DecodeBonuses([]byte(`[{"kind":"bonus","points":1}]`)); !errors.Is(err, apperr.ErrDataIntegrity) {
		t.Fatalf("expected missing id to be rejected, got %v", err)
	}
	items, err := DecodeBonuses(raw)
	if err != nil || len(items) != 1 || items[0].Points != 1 {
		t.Fatalf("unexpected decode result %+v %v", items, err)
	}
	if items, err := DecodeEvents(nil); err != nil || items != nil {
		t.Fatalf("empty payload should decode to nil, got %+v %v", items, err)
	}
}
