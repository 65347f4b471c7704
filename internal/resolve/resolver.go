package resolve

import (
	"sort"
	"strconv"
	"strings"

	"showsync/internal/textutil"
)

// Reason explains how (or why not) a candidate was selected.
type Reason string

const (
	ReasonNoCandidates   Reason = "no_candidates"
	ReasonSingleResult   Reason = "single_result"
	ReasonNameMatch      Reason = "name_match"
	ReasonYearMatch      Reason = "year_match"
	ReasonHeuristicMatch Reason = "heuristic_match"
	ReasonAmbiguous      Reason = "ambiguous"
)

// Candidate is one raw match from an upstream find call.
type Candidate struct {
	ID           int64
	Name         string
	AltName      string
	FirstAirDate string
	Popularity   float64
}

// Outcome is the result of disambiguating one foreign id.
// ResolvedID is non-zero exactly when Reason is neither no_candidates nor
// ambiguous.
type Outcome struct {
	ResolvedID int64
	Reason     Reason
}

// Resolved reports whether the outcome carries a usable id.
func (o Outcome) Resolved() bool {
	return o.ResolvedID != 0
}

// missingYearPenalty ranks candidates without a parseable year behind every
// candidate with one when a hint year is available.
const missingYearPenalty = -10000

// Jaccard similarity floor for a weak name match.
const nameSimilarityFloor = 0.6

type scored struct {
	candidate Candidate
	nameScore int
	yearScore int
}

// Resolve picks the best candidate for the supplied hints. hintName may be
// empty and hintYear zero when the show offers no disambiguation signal.
// Candidates without an id are skipped, never scored.
func Resolve(candidates []Candidate, hintName string, hintYear int) Outcome {
	valid := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == 0 {
			continue
		}
		valid = append(valid, c)
	}

	if len(valid) == 0 {
		return Outcome{Reason: ReasonNoCandidates}
	}
	// The common case: a single match needs no scoring, and must not be
	// reported ambiguous just because no hint is available.
	if len(valid) == 1 {
		return Outcome{ResolvedID: valid[0].ID, Reason: ReasonSingleResult}
	}

	normalizedHint := textutil.NormalizeTitle(hintName)
	ranked := make([]scored, 0, len(valid))
	for _, c := range valid {
		ranked = append(ranked, scored{
			candidate: c,
			nameScore: nameScore(normalizedHint, c),
			yearScore: yearScore(hintYear, c),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return tupleLess(ranked[j], ranked[i])
	})

	top := ranked[0]
	runnerUp := ranked[1]
	if !tupleLess(runnerUp, top) {
		// Identical score tuples: guessing between two equally strong
		// candidates is worse than leaving the show unresolved.
		return Outcome{Reason: ReasonAmbiguous}
	}

	if top.nameScore == 0 && (hintYear == 0 || top.yearScore == missingYearPenalty) {
		return Outcome{Reason: ReasonAmbiguous}
	}

	reason := ReasonHeuristicMatch
	switch {
	case top.nameScore > 0:
		reason = ReasonNameMatch
	case hintYear != 0 && top.yearScore > missingYearPenalty:
		reason = ReasonYearMatch
	}
	return Outcome{ResolvedID: top.candidate.ID, Reason: reason}
}

// tupleLess orders score tuples lexicographically:
// (name_score, year_score, popularity).
func tupleLess(a, b scored) bool {
	if a.nameScore != b.nameScore {
		return a.nameScore < b.nameScore
	}
	if a.yearScore != b.yearScore {
		return a.yearScore < b.yearScore
	}
	return a.candidate.Popularity < b.candidate.Popularity
}

func nameScore(normalizedHint string, c Candidate) int {
	if normalizedHint == "" {
		return 0
	}
	best := 0
	for _, raw := range []string{c.Name, c.AltName} {
		name := textutil.NormalizeTitle(raw)
		if name == "" {
			continue
		}
		score := 0
		switch {
		case name == normalizedHint:
			score = 3
		case strings.Contains(name, normalizedHint) || strings.Contains(normalizedHint, name):
			score = 2
		case textutil.JaccardSimilarity(name, normalizedHint) >= nameSimilarityFloor:
			score = 1
		}
		if score > best {
			best = score
		}
	}
	return best
}

func yearScore(hintYear int, c Candidate) int {
	if hintYear == 0 {
		return 0
	}
	year, ok := parseYear(c.FirstAirDate)
	if !ok {
		return missingYearPenalty
	}
	diff := hintYear - year
	if diff < 0 {
		diff = -diff
	}
	return -diff
}

func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1800 || year > 3000 {
		return 0, false
	}
	return year, true
}
