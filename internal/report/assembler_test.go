package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkUsProject/markusmoss/internal/render"
	"github.com/MarkUsProject/markusmoss/internal/roster"
	"github.com/MarkUsProject/markusmoss/internal/similarity"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// testWorkspace builds a layout with two downloaded submissions, rendered
// documents, and mirrored report pages for one match between them.
func testWorkspace(t *testing.T) (workspace.Layout, *roster.Store) {
	t.Helper()
	layout := workspace.New(t.TempDir())

	write := func(path, content string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	write(filepath.Join(layout.GroupSubmission("group_001"), "main.py"), "print(1)\nprint(2)\nprint(3)\n")
	write(filepath.Join(layout.GroupSubmission("group_002"), "main.py"), "print(9)\nprint(8)\nprint(7)\n")
	write(filepath.Join(layout.PDFSubmissionFiles(), "group_001", "main.py.pdf"), "%PDF")
	write(filepath.Join(layout.PDFSubmissionFiles(), "group_002", "main.py.pdf"), "%PDF")
	write(filepath.Join(layout.StarterFilesOrg(), "starter.py"), "# starter\n")
	write(filepath.Join(layout.ReportDownload(), "match0.html"), "<html>match</html>")
	write(filepath.Join(layout.ReportDownload(), "match0-top.html"), "<html>top</html>")

	store := roster.NewStore([]roster.Group{
		{
			Name:    "group_001",
			Members: []roster.Member{{UserName: "alove", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IDNumber: "1001"}},
			Files:   []string{"main.py"},
		},
		{
			Name:    "group_002",
			Members: []roster.Member{{UserName: "aturing", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", IDNumber: "1002"}},
			Files:   []string{"main.py"},
		},
	})
	return layout, store
}

func testLedger() *similarity.Ledger {
	return similarity.NewLedger([]similarity.Match{
		{
			GroupA: "group_001", GroupB: "group_002",
			SimilarityA: 80, SimilarityB: 75, MatchedLines: 40,
			ReportPage: "match0.html",
			Fragments: []similarity.FragmentPair{{
				A: similarity.Fragment{Group: "group_001", Path: "main.py", Start: 1, End: 2},
				B: similarity.Fragment{Group: "group_002", Path: "main.py", Start: 2, End: 3},
			}},
		},
	})
}

func TestAssembler_Compile(t *testing.T) {
	layout, store := testWorkspace(t)
	ledger := testLedger()
	cases, err := similarity.Cluster(ledger, similarity.Selection{}, nil)
	require.NoError(t, err)

	a := NewAssembler(layout, store, "**/*.py", nil)
	require.NoError(t, a.Compile(context.Background(), "a1", cases, ledger))

	caseDir := layout.CaseDir("a1", 1)
	assert.FileExists(t, filepath.Join(caseDir, "group_001", "org", "main.py"))
	assert.FileExists(t, filepath.Join(caseDir, "group_001", "pdf", "main.py.pdf"))
	assert.FileExists(t, filepath.Join(caseDir, "group_002", "org", "main.py"))
	assert.FileExists(t, filepath.Join(caseDir, "match0.html"))
	assert.FileExists(t, filepath.Join(caseDir, "match0-top.html"))
	assert.FileExists(t, filepath.Join(layout.AssignmentReport("a1"), "starter_files", "org", "starter.py"))

	rosterCSV, err := os.ReadFile(layout.RosterFile(caseDir, "group_001"))
	require.NoError(t, err)
	assert.Contains(t, string(rosterCSV), "group_name,user_name,first_name,last_name,email,id_number")
	assert.Contains(t, string(rosterCSV), "group_001,alove,Ada,Lovelace,ada@example.com,1001")
}

func TestAssembler_CompileRendersComparisonDocs(t *testing.T) {
	layout, store := testWorkspace(t)
	ledger := testLedger()
	cases, err := similarity.Cluster(ledger, similarity.Selection{}, nil)
	require.NoError(t, err)

	r := newFakeRenderer()
	a := NewAssembler(layout, store, "**/*.py", nil).WithRenderer(r, "python")
	require.NoError(t, a.Compile(context.Background(), "a1", cases, ledger))

	caseDir := layout.CaseDir("a1", 1)
	hl, ok := r.docs[filepath.Join(caseDir, "group_001_main.py.pdf")]
	require.True(t, ok, "missing highlighted file")
	assert.Contains(t, string(hl.Content), "highlight")

	summary, ok := r.docs[filepath.Join(caseDir, "case_1.pdf")]
	require.True(t, ok, "missing case summary")
	assert.True(t, summary.Landscape)
}

func TestAssembler_Overview(t *testing.T) {
	layout, store := testWorkspace(t)
	ledger := testLedger()
	cases, err := similarity.Cluster(ledger, similarity.Selection{}, nil)
	require.NoError(t, err)

	a := NewAssembler(layout, store, "**/*.py", nil)
	require.NoError(t, a.Compile(context.Background(), "a1", cases, ledger))

	overview, err := os.ReadFile(layout.OverviewFile("a1"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(overview)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "case,groups,similarity (%),matched_lines", lines[0])
	assert.Equal(t, "case_1,group_001;group_002,80,40", lines[1])
}

func TestAssembler_UnknownGroupInCase(t *testing.T) {
	layout, store := testWorkspace(t)
	ledger := similarity.NewLedger([]similarity.Match{
		{GroupA: "group_001", GroupB: "ghost", SimilarityA: 50},
	})
	cases, err := similarity.Cluster(ledger, similarity.Selection{}, nil)
	require.NoError(t, err)

	a := NewAssembler(layout, store, "**/*.py", nil)
	require.Error(t, a.Compile(context.Background(), "a1", cases, ledger))
}

// fakeRenderer records documents and writes placeholder outputs.
type fakeRenderer struct {
	mu   sync.Mutex
	docs map[string]render.Document
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{docs: make(map[string]render.Document)}
}

func (f *fakeRenderer) Render(_ context.Context, doc render.Document, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[outPath] = doc
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("%PDF"), 0644)
}
