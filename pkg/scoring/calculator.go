// Package scoring converts raw activity counters into bounded engagement scores.
package scoring

import (
	"errors"
	"fmt"
)

const (
	MinScore = 0
	MaxScore = 5
)

// ErrInvalidScore is returned when a score outside MinScore..MaxScore is used.
var ErrInvalidScore = errors.New("invalid score")

// TierTable is a minimum floor plus five ascending thresholds.
type TierTable struct {
	Floor      int    `yaml:"floor" json:"floor"`
	Thresholds [5]int `yaml:"thresholds" json:"thresholds"`
}

// Validate checks that the thresholds are ascending.
func (t TierTable) Validate() error {
	for i := 1; i < len(t.Thresholds); i++ {
		if t.Thresholds[i] < t.Thresholds[i-1] {
			return fmt.Errorf("thresholds must be ascending: %v", t.Thresholds)
		}
	}
	if t.Floor < 0 {
		return fmt.Errorf("floor must be >= 0: %d", t.Floor)
	}
	return nil
}

// Score applies ScoreFromCount with the table's floor and thresholds.
func (t TierTable) Score(count int) int {
	return ScoreFromCount(count, t.Floor, t.Thresholds)
}

var (
	// DefaultTextTiers rates monthly message counts.
	DefaultTextTiers = TierTable{Floor: 10, Thresholds: [5]int{10, 50, 150, 300, 500}}
	// DefaultVoiceTiers rates monthly voice minutes.
	DefaultVoiceTiers = TierTable{Floor: 30, Thresholds: [5]int{30, 120, 300, 600, 1200}}
)

// ScoreFromCount returns 0 when count is below floor, otherwise the highest
// 1-based tier whose threshold count reaches. A count equal to a threshold
// qualifies for that tier.
func ScoreFromCount(count, floor int, thresholds [5]int) int {
	if count < floor {
		return 0
	}
	for i := len(thresholds) - 1; i >= 0; i-- {
		if count >= thresholds[i] {
			return i + 1
		}
	}
	return 0
}

// FinalScore combines the text and voice sub-scores. A member strong in one
// channel is not penalized for the other.
func FinalScore(textScore, voiceScore int) int {
	if textScore > voiceScore {
		return textScore
	}
	return voiceScore
}

var labels = [...]string{
	"Aucune activité",
	"Très faible",
	"Faible",
	"Correct",
	"Bon",
	"Excellent",
}

// AppreciationLabel returns the fixed appreciation phrase for a score.
func AppreciationLabel(score int) (string, error) {
	if score < MinScore || score > MaxScore {
		return "", fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	return labels[score], nil
}

// Result is the outcome of rating one member's counters.
type Result struct {
	TextScore  int    `json:"textScore"`
	VoiceScore int    `json:"voiceScore"`
	FinalScore int    `json:"finalScore"`
	Label      string `json:"label"`
}

// Calculator rates text and voice activity with independent tier tables.
type Calculator struct {
	Text  TierTable
	Voice TierTable
}

// NewCalculator returns a calculator using the default tier tables.
func NewCalculator() *Calculator {
	return &Calculator{Text: DefaultTextTiers, Voice: DefaultVoiceTiers}
}

// Rate scores a pair of counters.
func (c *Calculator) Rate(messages, voiceMinutes int) Result {
	text := c.Text.Score(messages)
	voice := c.Voice.Score(voiceMinutes)
	final := FinalScore(text, voice)
	label, _ := AppreciationLabel(final)
	return Result{TextScore: text, VoiceScore: voice, FinalScore: final, Label: label}
}
