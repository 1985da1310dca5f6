// Package engagement parses tabular activity exports (message counts, voice
// minutes) and matches their rows against the member directory.
package engagement

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/pkg/identity"
)

// CounterKind names the activity counter carried by an export.
type CounterKind string

const (
	KindMessages CounterKind = "messages"
	KindVoice    CounterKind = "voice"
)

// ParseCounterKind accepts the usual aliases for each counter kind.
func ParseCounterKind(raw string) (CounterKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "messages", "message", "text", "msg":
		return KindMessages, nil
	case "voice", "vocal", "minutes", "voice_minutes":
		return KindVoice, nil
	default:
		return "", fmt.Errorf("unknown counter kind %q", raw)
	}
}

// Row is one successfully parsed export line.
type Row struct {
	Line       int    `json:"line"`
	Rank       int    `json:"rank,omitempty"`
	Handle     string `json:"handle"`
	PlatformID string `json:"platformId,omitempty"`
	Value      int    `json:"value"`
}

// ParseError describes a line that could not be turned into a Row.
type ParseError struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

var (
	columnSeparator = regexp.MustCompile(`\t|\s{2,}`)
	rankPattern     = regexp.MustCompile(`^#?[0-9]+\.?$`)
	dotGrouping     = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{3})+$`)
	exponentPattern = regexp.MustCompile(`[eE]([+-]?[0-9]+)$`)

	errMissingHandle     = errors.New("row has a rank and a value but no handle")
	errInvalidPlatformID = errors.New("platform id must be 17 to 20 digits")
	errColumnCount       = errors.New("unexpected column count")
	errEmptyValue        = errors.New("empty value")
	errExponent          = errors.New("value looks like a mis-split platform id (exponent >= 10)")
	errNegative          = errors.New("value must not be negative")
)

// ParseLines splits raw export text into rows. Blank lines are ignored and
// not counted; every other line is either a Row or a ParseError.
func ParseLines(raw string) (rows []Row, errs []ParseError, totalLines int) {
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		totalLines++
		row, err := parseLine(line)
		if err != nil {
			errs = append(errs, ParseError{Line: i + 1, Raw: line, Reason: err.Error()})
			continue
		}
		row.Line = i + 1
		rows = append(rows, row)
	}
	return rows, errs, totalLines
}

func splitColumns(line string) []string {
	parts := columnSeparator.Split(strings.TrimSpace(line), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isRank(s string) bool {
	return rankPattern.MatchString(s)
}

func parseRank(s string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "#"), "."))
	return n
}

func parseLine(line string) (Row, error) {
	cols := splitColumns(line)
	var row Row
	var rawValue string

	switch len(cols) {
	case 4:
		row.Rank = parseRank(cols[0])
		row.Handle = cols[1]
		row.PlatformID = cols[2]
		rawValue = cols[3]
		if !identity.IsValidPlatformID(row.PlatformID) {
			return Row{}, errInvalidPlatformID
		}
	case 3:
		if isRank(cols[0]) {
			row.Rank = parseRank(cols[0])
			row.Handle = cols[1]
		} else {
			row.Handle = cols[0]
			row.PlatformID = cols[1]
			if !identity.IsValidPlatformID(row.PlatformID) {
				return Row{}, errInvalidPlatformID
			}
		}
		rawValue = cols[2]
	case 2:
		if isRank(cols[0]) {
			return Row{}, errMissingHandle
		}
		row.Handle = cols[0]
		rawValue = cols[1]
	default:
		return Row{}, fmt.Errorf("%w: %d", errColumnCount, len(cols))
	}

	value, err := ParseCounter(rawValue)
	if err != nil {
		return Row{}, err
	}
	row.Value = value
	return row, nil
}

// ParseCounter cleans a counter cell: thousands separators and whitespace are
// stripped, small decimals are rounded, and anything written with an exponent
// of 10 or more is rejected.
func ParseCounter(raw string) (int, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f', ',', '\'':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return 0, errEmptyValue
	}
	if dotGrouping.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	if m := exponentPattern.FindStringSubmatch(s); m != nil {
		exp, err := strconv.Atoi(m[1])
		if err != nil || exp >= 10 {
			return 0, errExponent
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	if f < 0 {
		return 0, errNegative
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("value out of range %q", raw)
	}
	return int(math.Round(f)), nil
}
