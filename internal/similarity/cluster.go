package similarity

import (
	"strconv"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// Cluster derives the ordered case sequence from the ledger.
//
// With a zero Selection, groups are treated as nodes and matches as edges
// of an undirected graph; each connected component becomes one Case.
// Components are numbered in the order their first constituent match
// appears in the ledger, not by group name, so numbering is reproducible
// across runs and stable under group renames.
//
// A non-zero Selection overrides the natural clustering: a case number
// selects that natural case as-is, while explicit group sets each produce a
// synthetic case holding every ledger match whose endpoints both lie in the
// set, regardless of natural component membership.
//
// Exclusions are keyed by natural-clustering case numbers and are applied
// after clustering, before rollup: an entry (c, i) drops match i from any
// emitted case iff match i belongs to natural case c. A case whose retained
// matches are all excluded is dropped from the result entirely, though
// excluded matches never shrink a case's group list.
func Cluster(ledger *Ledger, sel Selection, excl Exclusions) ([]Case, error) {
	natural, naturalCaseOf := naturalCases(ledger)

	var cases []Case
	switch {
	case sel.IsZero():
		cases = natural
	case sel.CaseNumber() != 0:
		n := sel.CaseNumber()
		if n < 1 || n > len(natural) {
			return nil, errors.NewNotFoundError("case", strconv.Itoa(n))
		}
		cases = []Case{natural[n-1]}
	default:
		var err error
		cases, err = syntheticCases(ledger, sel.GroupSets())
		if err != nil {
			return nil, err
		}
	}

	return applyExclusions(ledger, cases, excl, naturalCaseOf), nil
}

// naturalCases computes the connected-component partition of the ledger and
// the mapping from match index to natural case number.
func naturalCases(ledger *Ledger) ([]Case, map[int]int) {
	uf := newUnionFind()
	for _, m := range ledger.Matches() {
		uf.union(m.GroupA, m.GroupB)
	}

	// Number components by the ledger position of their first match.
	caseOfRoot := make(map[string]int)
	naturalCaseOf := make(map[int]int, ledger.Len())
	byNumber := make(map[int]*Case)
	var order []int

	for _, m := range ledger.Matches() {
		root := uf.find(m.GroupA)
		num, ok := caseOfRoot[root]
		if !ok {
			num = len(order) + 1
			caseOfRoot[root] = num
			byNumber[num] = &Case{Number: num}
			order = append(order, num)
		}
		c := byNumber[num]
		c.Matches = append(c.Matches, m.Index)
		naturalCaseOf[m.Index] = num
		for _, g := range []string{m.GroupA, m.GroupB} {
			if !containsString(c.Groups, g) {
				c.Groups = append(c.Groups, g)
			}
		}
	}

	cases := make([]Case, len(order))
	for i, num := range order {
		rollup(ledger, byNumber[num])
		cases[i] = *byNumber[num]
	}
	return cases, naturalCaseOf
}

// syntheticCases builds one case per explicit group set. Sets are numbered
// 1..n in the order supplied by the operator.
func syntheticCases(ledger *Ledger, sets [][]string) ([]Case, error) {
	for _, set := range sets {
		for _, g := range set {
			if !ledger.HasGroup(g) {
				return nil, errors.NewUnknownGroupError(g)
			}
		}
	}

	cases := make([]Case, 0, len(sets))
	for i, set := range sets {
		members := make(map[string]struct{}, len(set))
		for _, g := range set {
			members[g] = struct{}{}
		}

		c := Case{Number: i + 1}
		for _, m := range ledger.Matches() {
			_, okA := members[m.GroupA]
			_, okB := members[m.GroupB]
			if okA && okB {
				c.Matches = append(c.Matches, m.Index)
				for _, g := range []string{m.GroupA, m.GroupB} {
					if !containsString(c.Groups, g) {
						c.Groups = append(c.Groups, g)
					}
				}
			}
		}
		rollup(ledger, &c)
		cases = append(cases, c)
	}
	return cases, nil
}

// applyExclusions filters each case's retained matches against the
// exclusion set and drops any case left with none, which also discards
// synthetic cases whose group set shares no match. Exclusion keys refer
// to natural case numbers regardless of how the emitted cases were built.
func applyExclusions(ledger *Ledger, cases []Case, excl Exclusions, naturalCaseOf map[int]int) []Case {
	excluded := make(map[int]struct{})
	for caseNum, indices := range excl {
		for _, idx := range indices {
			if naturalCaseOf[idx] == caseNum {
				excluded[idx] = struct{}{}
			}
		}
	}

	out := make([]Case, 0, len(cases))
	for _, c := range cases {
		retained := make([]int, 0, len(c.Matches))
		for _, idx := range c.Matches {
			if _, drop := excluded[idx]; drop {
				continue
			}
			retained = append(retained, idx)
		}
		if len(retained) == 0 {
			continue
		}
		c.Matches = retained
		rollup(ledger, &c)
		out = append(out, c)
	}
	return out
}

// rollup computes the case-level similarity and matched-line values: the
// maximum across retained matches, each taken independently.
func rollup(ledger *Ledger, c *Case) {
	c.SimilarityPercent = 0
	c.MatchedLines = 0
	for _, idx := range c.Matches {
		m, ok := ledger.Match(idx)
		if !ok {
			continue
		}
		if s := m.Similarity(); s > c.SimilarityPercent {
			c.SimilarityPercent = s
		}
		if m.MatchedLines > c.MatchedLines {
			c.MatchedLines = m.MatchedLines
		}
	}
}

// unionFind is a path-compressing union-find over group names.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(g string) string {
	p, ok := u.parent[g]
	if !ok {
		u.parent[g] = g
		return g
	}
	if p == g {
		return g
	}
	root := u.find(p)
	u.parent[g] = root
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

