package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
)

// EntryKind discriminates the items stored in section collections.
type EntryKind string

const (
	KindSpotlightAttendance EntryKind = "spotlight-attendance"
	KindEventAttendance     EntryKind = "event-attendance"
	KindRaidPoints          EntryKind = "raid-points"
	KindFollowValidation    EntryKind = "follow-validation"
	KindBonus               EntryKind = "bonus"
)

// Attendee is one line of an attendance roster.
type Attendee struct {
	Login   string `json:"login"`
	Present bool   `json:"present"`
}

// SpotlightAttendance is one featured-streamer session. The same entry is
// replicated in the row of every member listed in Roster.
type SpotlightAttendance struct {
	Kind            EntryKind  `json:"kind"`
	ID              string     `json:"id"`
	StreamerLogin   string     `json:"streamerLogin"`
	StartedAt       time.Time  `json:"startedAt"`
	DurationMinutes int        `json:"durationMinutes"`
	Roster          []Attendee `json:"roster"`
}

// EventAttendance is one community event with its roster.
type EventAttendance struct {
	Kind     EntryKind  `json:"kind"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Category string     `json:"category,omitempty"`
	StartsAt time.Time  `json:"startsAt"`
	Roster   []Attendee `json:"roster"`
}

// RaidPoints is the scalar raid contribution of one member.
type RaidPoints struct {
	Kind   EntryKind `json:"kind"`
	Login  string    `json:"login"`
	Points int       `json:"points"`
}

// FollowValidation records a staff check of how many members the evaluated
// member follows.
type FollowValidation struct {
	Kind        EntryKind `json:"kind"`
	ID          string    `json:"id"`
	StaffLogin  string    `json:"staffLogin"`
	ValidatedAt time.Time `json:"validatedAt"`
	Followed    int       `json:"followed"`
	Total       int       `json:"total"`
	Score       int       `json:"score"`
}

// Bonus is a discretionary award.
type Bonus struct {
	Kind      EntryKind `json:"kind"`
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason,omitempty"`
	AwardedBy string    `json:"awardedBy,omitempty"`
	AwardedAt time.Time `json:"awardedAt"`
}

func (e SpotlightAttendance) entryKind() EntryKind { return e.Kind }
func (e SpotlightAttendance) entryID() string      { return e.ID }
func (e EventAttendance) entryKind() EntryKind     { return e.Kind }
func (e EventAttendance) entryID() string          { return e.ID }
func (e FollowValidation) entryKind() EntryKind    { return e.Kind }
func (e FollowValidation) entryID() string         { return e.ID }
func (e Bonus) entryKind() EntryKind               { return e.Kind }
func (e Bonus) entryID() string                    { return e.ID }

// PresentIn reports whether login is marked present in roster.
func PresentIn(roster []Attendee, login string) bool {
	for _, a := range roster {
		if strings.EqualFold(a.Login, login) && a.Present {
			return true
		}
	}
	return false
}

// NormalizeRoster lowercases logins, drops blank lines and folds repeated
// logins into one line that is present if any of them was.
func NormalizeRoster(roster []Attendee) []Attendee {
	out := make([]Attendee, 0, len(roster))
	index := make(map[string]int, len(roster))
	for _, a := range roster {
		login := strings.ToLower(strings.TrimSpace(a.Login))
		if login == "" {
			continue
		}
		if pos, ok := index[login]; ok {
			out[pos].Present = out[pos].Present || a.Present
			continue
		}
		index[login] = len(out)
		out = append(out, Attendee{Login: login, Present: a.Present})
	}
	return out
}

// RosterLogins returns the lowercase logins listed in roster, in order, without repeats.
func RosterLogins(roster []Attendee) []string {
	seen := make(map[string]struct{}, len(roster))
	out := make([]string, 0, len(roster))
	for _, a := range roster {
		login := strings.ToLower(strings.TrimSpace(a.Login))
		if login == "" {
			continue
		}
		if _, ok := seen[login]; ok {
			continue
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}
	return out
}

type taggedEntry interface {
	entryKind() EntryKind
	entryID() string
}

func decodeTagged[T taggedEntry](raw []byte, kind EntryKind) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrDataIntegrity, kind, err)
	}
	for i, item := range items {
		if item.entryKind() != kind {
			return nil, fmt.Errorf("%w: item %d has kind %q, want %q", apperr.ErrDataIntegrity, i, item.entryKind(), kind)
		}
		if strings.TrimSpace(item.entryID()) == "" {
			return nil, fmt.Errorf("%w: %s item %d has no id", apperr.ErrDataIntegrity, kind, i)
		}
	}
	return items, nil
}

func DecodeSpotlights(raw []byte) ([]SpotlightAttendance, error) {
	return decodeTagged[SpotlightAttendance](raw, KindSpotlightAttendance)
}

func DecodeEvents(raw []byte) ([]EventAttendance, error) {
	return decodeTagged[EventAttendance](raw, KindEventAttendance)
}

func DecodeFollowValidations(raw []byte) ([]FollowValidation, error) {
	return decodeTagged[FollowValidation](raw, KindFollowValidation)
}

func DecodeBonuses(raw []byte) ([]Bonus, error) {
	return decodeTagged[Bonus](raw, KindBonus)
}

// EncodeEntries marshals a collection for storage. Nil encodes as an empty array.
func EncodeEntries[T taggedEntry](items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}
