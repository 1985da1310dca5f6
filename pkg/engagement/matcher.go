package engagement

import (
	"sort"

	"github.com/Redshadow31/tenf-v2-sub004/pkg/identity"
)

// Match strategies reported on MatchedRow.MatchedBy.
const (
	MatchByPlatformID  = "platform_id"
	MatchByDisplayName = "display_name"
	MatchByChatHandle  = "chat_handle"
)

// DirectoryEntry is the subset of a member record the matcher needs.
type DirectoryEntry struct {
	Login       string
	DisplayName string
	ChatHandle  string
	ChatID      string
}

// MatchedRow is a row attributed to a known member.
type MatchedRow struct {
	Row
	MemberLogin string `json:"memberLogin"`
	MatchedBy   string `json:"matchedBy"`
}

// UnmatchedRow is a row no member could be found for. It is kept so an
// operator can reconcile naming drift by hand.
type UnmatchedRow struct {
	Row
	NormalizedHandle string   `json:"normalizedHandle"`
	AttemptedMatches []string `json:"attemptedMatches"`
	Reason           string   `json:"reason"`
}

// Report is the outcome of parsing and matching one export.
type Report struct {
	Kind           CounterKind    `json:"kind"`
	Matched        []MatchedRow   `json:"matchedRows"`
	Unmatched      []UnmatchedRow `json:"unmatchedRows"`
	ParseErrors    []ParseError   `json:"parseErrors"`
	TotalLinesRead int            `json:"totalLinesRead"`
}

// Directory indexes members by chat numeric ID and normalized handles.
type Directory struct {
	byChatID      map[string]string
	byDisplayName map[string][]string
	byChatHandle  map[string][]string
}

// NewDirectory builds the lookup indexes. A normalized name shared by several
// members is kept with all its owners so it can be reported as ambiguous.
func NewDirectory(entries []DirectoryEntry) *Directory {
	d := &Directory{
		byChatID:      make(map[string]string),
		byDisplayName: make(map[string][]string),
		byChatHandle:  make(map[string][]string),
	}
	for _, e := range entries {
		login := identity.NormalizeLogin(e.Login)
		if login == "" {
			continue
		}
		if e.ChatID != "" {
			d.byChatID[e.ChatID] = login
		}
		if key := identity.NormalizeHandle(e.DisplayName); key != "" {
			d.byDisplayName[key] = appendUnique(d.byDisplayName[key], login)
		}
		if key := identity.NormalizeHandle(e.ChatHandle); key != "" {
			d.byChatHandle[key] = appendUnique(d.byChatHandle[key], login)
		}
	}
	for _, idx := range []map[string][]string{d.byDisplayName, d.byChatHandle} {
		for k := range idx {
			sort.Strings(idx[k])
		}
	}
	return d
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Match tries, in order: exact platform ID, normalized display name,
// normalized chat handle.
func (d *Directory) Match(row Row) (MatchedRow, *UnmatchedRow) {
	var attempted []string
	ambiguous := false

	if row.PlatformID != "" {
		attempted = append(attempted, "platformId:"+row.PlatformID)
		if login, ok := d.byChatID[row.PlatformID]; ok {
			return MatchedRow{Row: row, MemberLogin: login, MatchedBy: MatchByPlatformID}, nil
		}
	}

	key := identity.NormalizeHandle(row.Handle)
	if key != "" {
		attempted = append(attempted, "displayName:"+key)
		switch owners := d.byDisplayName[key]; len(owners) {
		case 0:
		case 1:
			return MatchedRow{Row: row, MemberLogin: owners[0], MatchedBy: MatchByDisplayName}, nil
		default:
			ambiguous = true
		}

		attempted = append(attempted, "chatHandle:"+key)
		switch owners := d.byChatHandle[key]; len(owners) {
		case 0:
		case 1:
			return MatchedRow{Row: row, MemberLogin: owners[0], MatchedBy: MatchByChatHandle}, nil
		default:
			ambiguous = true
		}
	}

	reason := "no member matches this platform id or handle"
	if ambiguous {
		reason = "handle matches several members"
	}
	return MatchedRow{}, &UnmatchedRow{
		Row:              row,
		NormalizedHandle: key,
		AttemptedMatches: attempted,
		Reason:           reason,
	}
}

// Process parses raw export text and matches every row against the directory.
// The result depends only on its inputs.
func Process(raw string, kind CounterKind, dir *Directory) Report {
	rows, errs, total := ParseLines(raw)
	report := Report{
		Kind:           kind,
		Matched:        make([]MatchedRow, 0, len(rows)),
		Unmatched:      make([]UnmatchedRow, 0),
		ParseErrors:    errs,
		TotalLinesRead: total,
	}
	if report.ParseErrors == nil {
		report.ParseErrors = make([]ParseError, 0)
	}
	for _, row := range rows {
		matched, unmatched := dir.Match(row)
		if unmatched != nil {
			report.Unmatched = append(report.Unmatched, *unmatched)
			continue
		}
		report.Matched = append(report.Matched, matched)
	}
	return report
}

// Totals folds matched rows per member. When a member appears on several rows
// the highest value is kept.
func (r Report) Totals() map[string]int {
	out := make(map[string]int, len(r.Matched))
	for _, m := range r.Matched {
		if cur, ok := out[m.MemberLogin]; !ok || m.Value > cur {
			out[m.MemberLogin] = m.Value
		}
	}
	return out
}
