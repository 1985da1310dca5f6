package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
)

// Legacy section document names under <prefix><YYYY-MM>/.
const (
	LegacySectionA = "section-a.json"
	LegacySectionB = "section-b.json"
	LegacySectionC = "section-c.json"
	LegacySectionD = "section-d.json"
)

// LegacySectionADoc is the presence document of the blob store.
type LegacySectionADoc struct {
	Spotlights     []SpotlightAttendance `json:"spotlights"`
	Events         []EventAttendance     `json:"events"`
	RaidPoints     map[string]int        `json:"raidPoints"`
	SpotlightBonus map[string]int        `json:"spotlightBonus"`
}

// LegacyCounters are the section B counters of one member.
type LegacyCounters struct {
	Messages     int `json:"messages"`
	VoiceMinutes int `json:"voiceMinutes"`
}

type LegacySectionBDoc struct {
	Members map[string]LegacyCounters `json:"members"`
}

type LegacySectionCDoc struct {
	Validations map[string][]FollowValidation `json:"validations"`
}

type LegacySectionDDoc struct {
	Bonuses map[string][]Bonus `json:"bonuses"`
}

// LegacyMonth gathers the four legacy documents of one month. A missing
// document is left zero.
type LegacyMonth struct {
	Month    MonthKey
	SectionA LegacySectionADoc
	SectionB LegacySectionBDoc
	SectionC LegacySectionCDoc
	SectionD LegacySectionDDoc
}

// DecodeSection unmarshals one legacy document into l. Legacy items
// carry no kind; a present kind must match. Items without an ID are rejected.
func (l *LegacyMonth) DecodeSection(name string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var err error
	switch name {
	case LegacySectionA:
		err = json.Unmarshal(raw, &l.SectionA)
		if err == nil {
			err = checkLegacyA(&l.SectionA)
		}
	case LegacySectionB:
		err = json.Unmarshal(raw, &l.SectionB)
	case LegacySectionC:
		err = json.Unmarshal(raw, &l.SectionC)
		if err == nil {
			err = checkLegacyC(&l.SectionC)
		}
	case LegacySectionD:
		err = json.Unmarshal(raw, &l.SectionD)
		if err == nil {
			err = checkLegacyD(&l.SectionD)
		}
	default:
		return fmt.Errorf("%w: unknown legacy section %q", apperr.ErrDataIntegrity, name)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		err = fmt.Errorf("%w: %v", apperr.ErrDataIntegrity, err)
	}
	if err != nil {
		return fmt.Errorf("%s/%s: %w", l.Month, name, err)
	}
	return nil
}

func stampKind(got *EntryKind, want EntryKind, id string) error {
	if *got != "" && *got != want {
		return fmt.Errorf("%w: entry %s has kind %q, want %q", apperr.ErrDataIntegrity, id, *got, want)
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s entry without id", apperr.ErrDataIntegrity, want)
	}
	*got = want
	return nil
}

func checkLegacyA(doc *LegacySectionADoc) error {
	for i := range doc.Spotlights {
		if err := stampKind(&doc.Spotlights[i].Kind, KindSpotlightAttendance, doc.Spotlights[i].ID); err != nil {
			return err
		}
		doc.Spotlights[i].Roster = NormalizeRoster(doc.Spotlights[i].Roster)
	}
	for i := range doc.Events {
		if err := stampKind(&doc.Events[i].Kind, KindEventAttendance, doc.Events[i].ID); err != nil {
			return err
		}
		doc.Events[i].Roster = NormalizeRoster(doc.Events[i].Roster)
	}
	return nil
}

func checkLegacyC(doc *LegacySectionCDoc) error {
	for login, items := range doc.Validations {
		for i := range items {
			if err := stampKind(&items[i].Kind, KindFollowValidation, items[i].ID); err != nil {
				return fmt.Errorf("%s: %w", login, err)
			}
		}
	}
	return nil
}

func checkLegacyD(doc *LegacySectionDDoc) error {
	for login, items := range doc.Bonuses {
		for i := range items {
			if err := stampKind(&items[i].Kind, KindBonus, items[i].ID); err != nil {
				return fmt.Errorf("%s: %w", login, err)
			}
		}
	}
	return nil
}

// Logins returns every member login referenced anywhere in the month, sorted.
func (l *LegacyMonth) Logins() []string {
	set := make(map[string]struct{})
	add := func(login string) {
		if login = strings.ToLower(strings.TrimSpace(login)); login != "" {
			set[login] = struct{}{}
		}
	}
	for _, s := range l.SectionA.Spotlights {
		for _, a := range s.Roster {
			add(a.Login)
		}
	}
	for _, ev := range l.SectionA.Events {
		for _, a := range ev.Roster {
			add(a.Login)
		}
	}
	for login := range l.SectionA.RaidPoints {
		add(login)
	}
	for login := range l.SectionA.SpotlightBonus {
		add(login)
	}
	for login := range l.SectionB.Members {
		add(login)
	}
	for login := range l.SectionC.Validations {
		add(login)
	}
	for login := range l.SectionD.Bonuses {
		add(login)
	}
	out := make([]string, 0, len(set))
	for login := range set {
		out = append(out, login)
	}
	sort.Strings(out)
	return out
}

// lookup finds a login-keyed value regardless of the key's case.
func lookup[V any](m map[string]V, login string) (V, bool) {
	if v, ok := m[login]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), login) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Build returns the evaluation row of login for the month. Spotlights and
// events are copied when login is on their roster. Engagement scores are left
// for the caller to rate.
func (l *LegacyMonth) Build(login string) *Evaluation {
	e := New(login, l.Month)
	for _, s := range l.SectionA.Spotlights {
		if onRoster(s.Roster, e.Login) {
			e.UpsertSpotlight(s)
		}
	}
	for _, ev := range l.SectionA.Events {
		if onRoster(ev.Roster, e.Login) {
			e.UpsertEvent(ev)
		}
	}
	e.RaidPoints, _ = lookup(l.SectionA.RaidPoints, e.Login)
	e.SpotlightBonus, _ = lookup(l.SectionA.SpotlightBonus, e.Login)
	if c, ok := lookup(l.SectionB.Members, e.Login); ok {
		e.Engagement.Messages = c.Messages
		e.Engagement.VoiceMinutes = c.VoiceMinutes
	}
	if items, ok := lookup(l.SectionC.Validations, e.Login); ok {
		for _, fv := range items {
			e.UpsertFollowValidation(fv)
		}
	}
	if items, ok := lookup(l.SectionD.Bonuses, e.Login); ok {
		for _, b := range items {
			e.UpsertBonus(b)
		}
	}
	return e
}

func onRoster(roster []Attendee, login string) bool {
	for _, a := range roster {
		if strings.EqualFold(a.Login, login) {
			return true
		}
	}
	return false
}
