// Package similarity holds the match ledger produced by the
// code-similarity service and the clustering engine that groups matches
// into reviewable cases.
package similarity

// Fragment is one side of a matched region: a file within a group and the
// 1-based inclusive line range the similarity service flagged.
type Fragment struct {
	Group string
	Path  string
	Start int
	End   int
}

// FragmentPair is one matched region, one fragment per side.
type FragmentPair struct {
	A Fragment
	B Fragment
}

// Match is one pairwise similarity result between two groups. The
// similarity service reports asymmetric percentages, one per side, so both
// are stored. A Match is immutable once ingested into a Ledger.
type Match struct {
	// Index is the stable ordinal assigned in ledger order, starting at 0.
	Index int

	GroupA string
	GroupB string

	// SimilarityA and SimilarityB are the per-side similarity percentages
	// (0-100) as reported by the service.
	SimilarityA int
	SimilarityB int

	// MatchedLines is the total number of matched lines reported for the pair.
	MatchedLines int

	// Fragments holds the per-file line-range annotations used for
	// highlighting in rendered documents.
	Fragments []FragmentPair

	// ReportPage is the relative path of this match's page within the
	// mirrored similarity report, when known.
	ReportPage string
}

// Similarity returns the larger of the two per-side percentages.
func (m Match) Similarity() int {
	if m.SimilarityA >= m.SimilarityB {
		return m.SimilarityA
	}
	return m.SimilarityB
}

// Mentions reports whether the match involves the given group.
func (m Match) Mentions(group string) bool {
	return m.GroupA == group || m.GroupB == group
}

// Ledger is the ordered, index-stable collection of all matches for a run.
type Ledger struct {
	matches []Match
	known   map[string]struct{}
	order   []string
}

// NewLedger builds a Ledger from matches in service-report order,
// assigning each match its stable index.
func NewLedger(matches []Match) *Ledger {
	l := &Ledger{
		matches: make([]Match, len(matches)),
		known:   make(map[string]struct{}),
	}
	for i, m := range matches {
		m.Index = i
		l.matches[i] = m
		for _, g := range []string{m.GroupA, m.GroupB} {
			if _, ok := l.known[g]; !ok {
				l.known[g] = struct{}{}
				l.order = append(l.order, g)
			}
		}
	}
	return l
}

// Len returns the number of matches in the ledger.
func (l *Ledger) Len() int {
	return len(l.matches)
}

// Matches returns all matches in ledger order.
func (l *Ledger) Matches() []Match {
	out := make([]Match, len(l.matches))
	copy(out, l.matches)
	return out
}

// Match returns the match with the given index.
func (l *Ledger) Match(index int) (Match, bool) {
	if index < 0 || index >= len(l.matches) {
		return Match{}, false
	}
	return l.matches[index], true
}

// HasGroup reports whether any ledger match mentions the group.
func (l *Ledger) HasGroup(name string) bool {
	_, ok := l.known[name]
	return ok
}

// Groups returns all group names in order of first ledger appearance.
func (l *Ledger) Groups() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Case is a maximal cluster of groups considered together for review.
type Case struct {
	// Number is the 1-based case number. Natural cases are numbered in
	// ledger discovery order; a case keeps its number even when exclusions
	// drop other cases, so numbering is stable across exclusion configs.
	Number int

	// Groups lists member group names in order of first ledger appearance.
	// A group stays listed even if every match mentioning it was excluded.
	Groups []string

	// Matches holds the retained ledger match indices, in ledger order.
	Matches []int

	// SimilarityPercent and MatchedLines are the case-level rollups: the
	// maximum across retained matches, each taken independently.
	SimilarityPercent int
	MatchedLines      int
}

// Selection is an operator-supplied override of the natural clustering:
// either a single natural case number, or one-or-more explicit group-name
// sets from which synthetic cases are built. The zero value selects nothing.
type Selection struct {
	caseNumber int
	groupSets  [][]string
}

// SelectCase selects the naturally-clustered case with the given number.
func SelectCase(n int) Selection {
	return Selection{caseNumber: n}
}

// SelectGroups builds one synthetic case per provided group-name set.
func SelectGroups(sets ...[]string) Selection {
	return Selection{groupSets: sets}
}

// IsZero reports whether the selection selects nothing.
func (s Selection) IsZero() bool {
	return s.caseNumber == 0 && len(s.groupSets) == 0
}

// GroupSets returns the selection's explicit group sets, if any.
func (s Selection) GroupSets() [][]string {
	return s.groupSets
}

// CaseNumber returns the selected natural case number, or 0.
func (s Selection) CaseNumber() int {
	return s.caseNumber
}

// Exclusions maps a natural case number to the ledger match indices to
// drop from that case before rollup. Entries referencing case numbers with
// no corresponding case are ignored, so stale configuration survives reruns.
type Exclusions map[int][]int
