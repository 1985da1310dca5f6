package evaluation

// Weights are the points granted per attended session in section A.
type Weights struct {
	SpotlightPoints int `yaml:"spotlightPoints" json:"spotlightPoints"`
	EventPoints     int `yaml:"eventPoints" json:"eventPoints"`
}

// DefaultWeights grants one point per attended spotlight or event.
var DefaultWeights = Weights{SpotlightPoints: 1, EventPoints: 1}

// ComputeTotals derives the section totals from the stored entries. It does
// not modify e.
func (e *Evaluation) ComputeTotals(w Weights) Totals {
	var t Totals

	present := 0
	for _, s := range e.Spotlights {
		if PresentIn(s.Roster, e.Login) {
			present++
		}
	}
	attended := 0
	for _, ev := range e.Events {
		if PresentIn(ev.Roster, e.Login) {
			attended++
		}
	}
	t.SectionA = present*w.SpotlightPoints + attended*w.EventPoints + e.RaidPoints + e.SpotlightBonus

	t.SectionB = e.Engagement.FinalScore

	for _, f := range e.FollowValidations {
		if f.Score > t.SectionC {
			t.SectionC = f.Score
		}
	}

	for _, b := range e.Bonuses {
		t.SectionD += b.Points
	}

	t.Total = t.SectionA + t.SectionB + t.SectionC + t.SectionD
	return t
}

// WithTotals returns a copy of e whose Totals are recomputed.
func (e *Evaluation) WithTotals(w Weights) *Evaluation {
	out := e.Clone()
	out.Totals = e.ComputeTotals(w)
	return out
}
