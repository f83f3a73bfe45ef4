package similarity

import (
	"reflect"
	"testing"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// exampleLedger is the three-match ledger used throughout: G1-G2-G3 form
// one component, G4-G5 another.
func exampleLedger() *Ledger {
	return NewLedger([]Match{
		{GroupA: "G1", GroupB: "G2", SimilarityA: 80, SimilarityB: 75, MatchedLines: 40},
		{GroupA: "G2", GroupB: "G3", SimilarityA: 60, SimilarityB: 55, MatchedLines: 10},
		{GroupA: "G4", GroupB: "G5", SimilarityA: 90, SimilarityB: 85, MatchedLines: 55},
	})
}

func mustCluster(t *testing.T, l *Ledger, sel Selection, excl Exclusions) []Case {
	t.Helper()
	cases, err := Cluster(l, sel, excl)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	return cases
}

func TestCluster_NaturalComponents(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, nil)

	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}

	c1 := cases[0]
	if c1.Number != 1 {
		t.Errorf("case 1 number = %d", c1.Number)
	}
	if !reflect.DeepEqual(c1.Groups, []string{"G1", "G2", "G3"}) {
		t.Errorf("case 1 groups = %v", c1.Groups)
	}
	if !reflect.DeepEqual(c1.Matches, []int{0, 1}) {
		t.Errorf("case 1 matches = %v", c1.Matches)
	}
	if c1.SimilarityPercent != 80 || c1.MatchedLines != 40 {
		t.Errorf("case 1 rollup = (%d, %d), want (80, 40)", c1.SimilarityPercent, c1.MatchedLines)
	}

	c2 := cases[1]
	if c2.Number != 2 {
		t.Errorf("case 2 number = %d", c2.Number)
	}
	if !reflect.DeepEqual(c2.Groups, []string{"G4", "G5"}) {
		t.Errorf("case 2 groups = %v", c2.Groups)
	}
	if !reflect.DeepEqual(c2.Matches, []int{2}) {
		t.Errorf("case 2 matches = %v", c2.Matches)
	}
	if c2.SimilarityPercent != 90 || c2.MatchedLines != 55 {
		t.Errorf("case 2 rollup = (%d, %d), want (90, 55)", c2.SimilarityPercent, c2.MatchedLines)
	}
}

// Every group appears in exactly one case and every match in exactly one
// case's retained matches.
func TestCluster_PartitionProperty(t *testing.T) {
	ledger := NewLedger([]Match{
		{GroupA: "a", GroupB: "b"},
		{GroupA: "c", GroupB: "d"},
		{GroupA: "b", GroupB: "e"},
		{GroupA: "d", GroupB: "c"},
		{GroupA: "f", GroupB: "g"},
	})
	cases := mustCluster(t, ledger, Selection{}, nil)

	seenGroups := make(map[string]int)
	seenMatches := make(map[int]int)
	for _, c := range cases {
		if len(c.Groups) < 2 {
			t.Errorf("case %d has %d groups, want >= 2", c.Number, len(c.Groups))
		}
		for _, g := range c.Groups {
			seenGroups[g]++
		}
		for _, m := range c.Matches {
			seenMatches[m]++
		}
	}
	for g, n := range seenGroups {
		if n != 1 {
			t.Errorf("group %s appears in %d cases", g, n)
		}
	}
	if len(seenGroups) != len(ledger.Groups()) {
		t.Errorf("partition covers %d groups, ledger has %d", len(seenGroups), len(ledger.Groups()))
	}
	for i := 0; i < ledger.Len(); i++ {
		if seenMatches[i] != 1 {
			t.Errorf("match %d appears in %d cases", i, seenMatches[i])
		}
	}
}

func TestCluster_Deterministic(t *testing.T) {
	first := mustCluster(t, exampleLedger(), Selection{}, nil)
	for i := 0; i < 10; i++ {
		again := mustCluster(t, exampleLedger(), Selection{}, nil)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}

// Numbering follows first ledger appearance, not group names.
func TestCluster_NumberingByLedgerOrder(t *testing.T) {
	ledger := NewLedger([]Match{
		{GroupA: "zz", GroupB: "yy", SimilarityA: 10},
		{GroupA: "aa", GroupB: "bb", SimilarityA: 99},
	})
	cases := mustCluster(t, ledger, Selection{}, nil)
	if cases[0].Groups[0] != "zz" || cases[0].Number != 1 {
		t.Errorf("first case = %+v, want zz component numbered 1", cases[0])
	}
}

func TestCluster_ExclusionDropsMatch(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{1: {0}})

	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	c1 := cases[0]
	if !reflect.DeepEqual(c1.Matches, []int{1}) {
		t.Errorf("case 1 matches = %v, want [1]", c1.Matches)
	}
	if c1.SimilarityPercent != 60 || c1.MatchedLines != 10 {
		t.Errorf("case 1 rollup = (%d, %d), want (60, 10)", c1.SimilarityPercent, c1.MatchedLines)
	}
}

// Excluding every match that mentions a group does not shrink the group
// list: G1's only link is match 0, but G1 stays listed. This is the chosen
// convention, not an accident.
func TestCluster_ExcludedGroupRemainsListed(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{1: {0}})
	if !reflect.DeepEqual(cases[0].Groups, []string{"G1", "G2", "G3"}) {
		t.Errorf("groups = %v, want G1 retained", cases[0].Groups)
	}
}

func TestCluster_ExclusionEmptiesCase(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{2: {2}})
	if len(cases) != 1 {
		t.Fatalf("got %d cases, want 1 (case 2 dropped)", len(cases))
	}
	if cases[0].Number != 1 {
		t.Errorf("surviving case number = %d, want 1", cases[0].Number)
	}
}

// A surviving case keeps its natural number even when an earlier case was
// dropped, so case directories stay stable across exclusion configs.
func TestCluster_NumberingStableAfterDrop(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{1: {0, 1}})
	if len(cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(cases))
	}
	if cases[0].Number != 2 {
		t.Errorf("surviving case number = %d, want natural number 2", cases[0].Number)
	}
}

// Exclusion entries referencing nonexistent cases are a documented no-op.
func TestCluster_StaleExclusionIgnored(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{99: {0, 1, 2}})
	if len(cases) != 2 {
		t.Errorf("stale exclusion changed output: %d cases", len(cases))
	}
}

// An exclusion keyed to the wrong case must not drop a match that belongs
// to a different natural case.
func TestCluster_ExclusionKeysUseNaturalNumbering(t *testing.T) {
	// Match 2 belongs to natural case 2; exclusion under key 1 is inert.
	cases := mustCluster(t, exampleLedger(), Selection{}, Exclusions{1: {2}})
	if !reflect.DeepEqual(cases[1].Matches, []int{2}) {
		t.Errorf("case 2 matches = %v, want [2] untouched", cases[1].Matches)
	}

	// The same key applies once a synthetic selection re-shapes output:
	// the G4/G5 synthetic case retains match 2 because its natural case is
	// 2, not 1.
	sel := SelectGroups([]string{"G4", "G5"})
	cases = mustCluster(t, exampleLedger(), sel, Exclusions{1: {2}})
	if len(cases) != 1 || !reflect.DeepEqual(cases[0].Matches, []int{2}) {
		t.Errorf("synthetic case = %+v, want match 2 retained", cases)
	}

	// Keyed correctly, the exclusion empties the synthetic case.
	cases = mustCluster(t, exampleLedger(), sel, Exclusions{2: {2}})
	if len(cases) != 0 {
		t.Errorf("expected synthetic case dropped, got %+v", cases)
	}
}

func TestCluster_SelectCaseNumber(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), SelectCase(2), nil)
	if len(cases) != 1 || cases[0].Number != 2 {
		t.Fatalf("SelectCase(2) = %+v", cases)
	}
	if !reflect.DeepEqual(cases[0].Groups, []string{"G4", "G5"}) {
		t.Errorf("groups = %v", cases[0].Groups)
	}
}

func TestCluster_SelectCaseNumberMissing(t *testing.T) {
	_, err := Cluster(exampleLedger(), SelectCase(9), nil)
	var notFound *errors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

// Selecting {G1, G3} builds a synthetic case from matches internal to the
// set; there are none, so the empty case is dropped. {G1, G2} yields
// match 0 only.
func TestCluster_SelectGroupSets(t *testing.T) {
	cases := mustCluster(t, exampleLedger(), SelectGroups([]string{"G1", "G3"}), nil)
	if len(cases) != 0 {
		t.Errorf("G1+G3 selection = %+v, want empty case dropped", cases)
	}

	cases = mustCluster(t, exampleLedger(), SelectGroups([]string{"G1", "G2"}), nil)
	if len(cases) != 1 {
		t.Fatalf("G1+G2 selection = %+v, want one case", cases)
	}
	if !reflect.DeepEqual(cases[0].Matches, []int{0}) {
		t.Errorf("matches = %v, want [0]", cases[0].Matches)
	}
}

// A group set crossing natural component boundaries captures any ledger
// match with both endpoints inside the set, even matches the natural
// clustering placed in separate components.
func TestCluster_SelectionCrossesComponents(t *testing.T) {
	sel := SelectGroups([]string{"G1", "G2", "G4", "G5"})
	cases := mustCluster(t, exampleLedger(), sel, nil)
	if len(cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(cases))
	}
	if !reflect.DeepEqual(cases[0].Matches, []int{0, 2}) {
		t.Errorf("matches = %v, want [0 2]", cases[0].Matches)
	}
}

func TestCluster_SelectionUnknownGroup(t *testing.T) {
	_, err := Cluster(exampleLedger(), SelectGroups([]string{"G1", "nope"}), nil)
	if !errors.Is(err, errors.ErrUnknownGroup) {
		t.Fatalf("err = %v, want UnknownGroupError", err)
	}
	var unknown *errors.UnknownGroupError
	if !errors.As(err, &unknown) || unknown.Group != "nope" {
		t.Errorf("err = %v, want group 'nope' named", err)
	}
}

// Similarity and matched-line rollups are independent maxima over the
// retained matches.
func TestCluster_RollupIndependentMaxima(t *testing.T) {
	ledger := NewLedger([]Match{
		{GroupA: "a", GroupB: "b", SimilarityA: 60, SimilarityB: 40, MatchedLines: 50},
		{GroupA: "b", GroupB: "c", SimilarityA: 30, SimilarityB: 80, MatchedLines: 10},
	})
	cases := mustCluster(t, ledger, Selection{}, nil)
	if len(cases) != 1 {
		t.Fatalf("got %d cases", len(cases))
	}
	if cases[0].SimilarityPercent != 80 {
		t.Errorf("similarity = %d, want 80 (max of per-match max sides)", cases[0].SimilarityPercent)
	}
	if cases[0].MatchedLines != 50 {
		t.Errorf("matched lines = %d, want 50", cases[0].MatchedLines)
	}
}

func TestCluster_EmptyLedger(t *testing.T) {
	cases := mustCluster(t, NewLedger(nil), Selection{}, nil)
	if len(cases) != 0 {
		t.Errorf("empty ledger produced cases: %+v", cases)
	}
}

func TestLedger_IndexAssignment(t *testing.T) {
	l := exampleLedger()
	for i, m := range l.Matches() {
		if m.Index != i {
			t.Errorf("match %d has index %d", i, m.Index)
		}
	}
	if _, ok := l.Match(3); ok {
		t.Error("Match(3) should be out of range")
	}
	if !l.HasGroup("G5") || l.HasGroup("G6") {
		t.Error("HasGroup misbehaves")
	}
}
