package evaluation

import (
	"strings"
	"time"
)

// Engagement holds the chat-platform counters of section B and the scores
// derived from them.
type Engagement struct {
	Messages     int    `json:"messages"`
	VoiceMinutes int    `json:"voiceMinutes"`
	TextScore    int    `json:"textScore"`
	VoiceScore   int    `json:"voiceScore"`
	FinalScore   int    `json:"finalScore"`
	Label        string `json:"label"`
}

// Totals are the per-section point totals of an evaluation.
type Totals struct {
	SectionA int `json:"sectionA"`
	SectionB int `json:"sectionB"`
	SectionC int `json:"sectionC"`
	SectionD int `json:"sectionD"`
	Total    int `json:"total"`
}

// Evaluation is the monthly record of one member.
type Evaluation struct {
	Login             string                `json:"login"`
	Month             MonthKey              `json:"month"`
	Spotlights        []SpotlightAttendance `json:"spotlights"`
	Events            []EventAttendance     `json:"events"`
	RaidPoints        int                   `json:"raidPoints"`
	SpotlightBonus    int                   `json:"spotlightBonus"`
	Engagement        Engagement            `json:"engagement"`
	FollowValidations []FollowValidation    `json:"followValidations"`
	Bonuses           []Bonus               `json:"bonuses"`
	Totals            Totals                `json:"totals"`
	UpdatedBy         string                `json:"updatedBy,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// New returns an empty evaluation for login and month.
func New(login string, month MonthKey) *Evaluation {
	return &Evaluation{Login: strings.ToLower(strings.TrimSpace(login)), Month: month}
}

// Clone returns a deep copy of e.
func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	out := *e
	out.Spotlights = nil
	for _, s := range e.Spotlights {
		s.Roster = append([]Attendee(nil), s.Roster...)
		out.Spotlights = append(out.Spotlights, s)
	}
	out.Events = nil
	for _, ev := range e.Events {
		ev.Roster = append([]Attendee(nil), ev.Roster...)
		out.Events = append(out.Events, ev)
	}
	out.FollowValidations = append([]FollowValidation(nil), e.FollowValidations...)
	out.Bonuses = append([]Bonus(nil), e.Bonuses...)
	return &out
}

// Patch lists the fields a section writer wants to set. Nil fields are left
// untouched by the store.
type Patch struct {
	Spotlights        *[]SpotlightAttendance
	Events            *[]EventAttendance
	RaidPoints        *int
	SpotlightBonus    *int
	Engagement        *Engagement
	FollowValidations *[]FollowValidation
	Bonuses           *[]Bonus
	Totals            *Totals
	UpdatedBy         string
}

// Empty reports whether the patch sets nothing.
func (p Patch) Empty() bool {
	return p.Spotlights == nil && p.Events == nil && p.RaidPoints == nil && p.SpotlightBonus == nil &&
		p.Engagement == nil && p.FollowValidations == nil && p.Bonuses == nil && p.Totals == nil
}

// Apply copies the set fields of p into e.
func (p Patch) Apply(e *Evaluation) {
	if p.Spotlights != nil {
		e.Spotlights = append([]SpotlightAttendance(nil), (*p.Spotlights)...)
	}
	if p.Events != nil {
		e.Events = append([]EventAttendance(nil), (*p.Events)...)
	}
	if p.RaidPoints != nil {
		e.RaidPoints = *p.RaidPoints
	}
	if p.SpotlightBonus != nil {
		e.SpotlightBonus = *p.SpotlightBonus
	}
	if p.Engagement != nil {
		e.Engagement = *p.Engagement
	}
	if p.FollowValidations != nil {
		e.FollowValidations = append([]FollowValidation(nil), (*p.FollowValidations)...)
	}
	if p.Bonuses != nil {
		e.Bonuses = append([]Bonus(nil), (*p.Bonuses)...)
	}
	if p.Totals != nil {
		e.Totals = *p.Totals
	}
	if p.UpdatedBy != "" {
		e.UpdatedBy = p.UpdatedBy
	}
}

// UpsertSpotlight replaces the spotlight with the same ID or appends it.
// It reports whether an existing entry was replaced.
func (e *Evaluation) UpsertSpotlight(entry SpotlightAttendance) bool {
	entry.Kind = KindSpotlightAttendance
	for i := range e.Spotlights {
		if e.Spotlights[i].ID == entry.ID {
			e.Spotlights[i] = entry
			return true
		}
	}
	e.Spotlights = append(e.Spotlights, entry)
	return false
}

func (e *Evaluation) UpsertEvent(entry EventAttendance) bool {
	entry.Kind = KindEventAttendance
	for i := range e.Events {
		if e.Events[i].ID == entry.ID {
			e.Events[i] = entry
			return true
		}
	}
	e.Events = append(e.Events, entry)
	return false
}

func (e *Evaluation) UpsertFollowValidation(entry FollowValidation) bool {
	entry.Kind = KindFollowValidation
	for i := range e.FollowValidations {
		if e.FollowValidations[i].ID == entry.ID {
			e.FollowValidations[i] = entry
			return true
		}
	}
	e.FollowValidations = append(e.FollowValidations, entry)
	return false
}

func (e *Evaluation) UpsertBonus(entry Bonus) bool {
	entry.Kind = KindBonus
	for i := range e.Bonuses {
		if e.Bonuses[i].ID == entry.ID {
			e.Bonuses[i] = entry
			return true
		}
	}
	e.Bonuses = append(e.Bonuses, entry)
	return false
}

// RemoveSpotlight drops the spotlight with id and reports whether it existed.
func (e *Evaluation) RemoveSpotlight(id string) bool {
	for i := range e.Spotlights {
		if e.Spotlights[i].ID == id {
			e.Spotlights = append(e.Spotlights[:i], e.Spotlights[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Evaluation) RemoveEvent(id string) bool {
	for i := range e.Events {
		if e.Events[i].ID == id {
			e.Events = append(e.Events[:i], e.Events[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Evaluation) RemoveBonus(id string) bool {
	for i := range e.Bonuses {
		if e.Bonuses[i].ID == id {
			e.Bonuses = append(e.Bonuses[:i], e.Bonuses[i+1:]...)
			return true
		}
	}
	return false
}

// RenameAttendee rewrites from into to inside every roster of e and on the
// spotlights from hosted. A roster already listing to keeps a single line,
// present if either was present.
func (e *Evaluation) RenameAttendee(from, to string) {
	for i := range e.Spotlights {
		if strings.EqualFold(strings.TrimSpace(e.Spotlights[i].StreamerLogin), from) {
			e.Spotlights[i].StreamerLogin = to
		}
		e.Spotlights[i].Roster = renameInRoster(e.Spotlights[i].Roster, from, to)
	}
	for i := range e.Events {
		e.Events[i].Roster = renameInRoster(e.Events[i].Roster, from, to)
	}
}

func renameInRoster(roster []Attendee, from, to string) []Attendee {
	out := make([]Attendee, 0, len(roster))
	index := make(map[string]int, len(roster))
	for _, a := range roster {
		login := strings.ToLower(strings.TrimSpace(a.Login))
		if login == from {
			login = to
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
