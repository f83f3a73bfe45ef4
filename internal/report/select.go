package report

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/render"
	"github.com/MarkUsProject/markusmoss/internal/roster"
	"github.com/MarkUsProject/markusmoss/internal/similarity"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// Selector builds reviewer bundles under selected/ for chosen cases: the
// groups' files from the compiled report, a cover page per group, each
// involved file rendered with matched regions highlighted, and a case
// summary document.
type Selector struct {
	layout   workspace.Layout
	store    *roster.Store
	renderer render.Renderer
	language string
	log      *logging.Logger
}

// NewSelector returns a Selector rendering with the given renderer.
func NewSelector(layout workspace.Layout, store *roster.Store, renderer render.Renderer, language string, log *logging.Logger) *Selector {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Selector{layout: layout, store: store, renderer: renderer, language: language, log: log}
}

// Bundle writes one bundle directory per case, named by the sorted group
// names joined with underscores. Compile must have run for the
// assignment first.
func (s *Selector) Bundle(ctx context.Context, assignment string, cases []similarity.Case, ledger *similarity.Ledger) error {
	if _, err := os.Stat(s.layout.AssignmentReport(assignment)); err != nil {
		return errors.Wrap(errors.ErrReportNotDownloaded, "final report not compiled")
	}

	// The compiled report's case_<n> directories are numbered by the
	// natural clustering, while synthetic group-set cases are numbered by
	// set order. Resolve each group's source directory through its
	// natural case.
	natural, err := similarity.Cluster(ledger, similarity.Selection{}, nil)
	if err != nil {
		return err
	}
	caseOfGroup := make(map[string]int)
	for _, nc := range natural {
		for _, g := range nc.Groups {
			caseOfGroup[g] = nc.Number
		}
	}

	for _, c := range cases {
		if err := s.bundleCase(ctx, assignment, c, ledger, caseOfGroup); err != nil {
			return errors.Wrapf(err, "bundling case %d", c.Number)
		}
	}
	return nil
}

func (s *Selector) bundleCase(ctx context.Context, assignment string, c similarity.Case, ledger *similarity.Ledger, caseOfGroup map[string]int) error {
	cleaned := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		cleaned[i] = workspace.CleanName(g)
	}
	dir := filepath.Join(s.layout.SelectedCases(), strings.Join(roster.SortedNames(cleaned), "_"))
	if err := workspace.EnsureDir(dir); err != nil {
		return err
	}

	for _, name := range c.Groups {
		clean := workspace.CleanName(name)
		src := filepath.Join(s.layout.CaseDir(assignment, caseOfGroup[name]), clean)
		if _, err := os.Stat(src); err == nil {
			if err := workspace.CopyTree(src, filepath.Join(dir, clean)); err != nil {
				return err
			}
		}

		if err := s.renderCover(ctx, dir, name); err != nil {
			return err
		}
	}

	if err := comparisonDocs(ctx, s.renderer, s.store, s.language, dir, c, ledger); err != nil {
		return err
	}

	s.log.Info("case bundled", "case", c.Number, "dir", dir)
	return nil
}

// comparisonDocs renders the comparison documents for one case into dir:
// each group file with its matched regions highlighted, plus a landscape
// case summary. Group trees must already sit under dir/<group>/org.
func comparisonDocs(ctx context.Context, r render.Renderer, store *roster.Store, language, dir string, c similarity.Case, ledger *similarity.Ledger) error {
	highlights := make(map[string]*render.HighlightedFile)
	for _, name := range c.Groups {
		// Seed a highlight entry for every file the group submitted, so
		// unmatched files still appear in the output.
		orgDir := filepath.Join(dir, workspace.CleanName(name), "org")
		files, err := workspace.GlobFiles(orgDir, "")
		if err != nil {
			return err
		}
		for _, rel := range files {
			content, err := os.ReadFile(filepath.Join(orgDir, rel))
			if err != nil {
				return err
			}
			key := highlightKey(name, rel)
			highlights[key] = render.NewHighlightedFile(rel, language, content)
		}
	}

	for _, idx := range c.Matches {
		m, ok := ledger.Match(idx)
		if !ok {
			continue
		}
		for _, pair := range m.Fragments {
			for _, frag := range []similarity.Fragment{pair.A, pair.B} {
				key := highlightKey(frag.Group, frag.Path)
				if _, ok := highlights[key]; !ok {
					continue
				}
				highlights[key].AddHighlight(frag.Start, frag.End)
			}
		}
	}

	for key, hf := range highlights {
		group, _, _ := strings.Cut(key, "/")
		out := filepath.Join(dir, group+"_"+strings.ReplaceAll(hf.Title, "/", "_")+".pdf")
		doc := render.Document{Format: render.FormatHTML, Content: []byte(hf.HTML())}
		if err := r.Render(ctx, doc, out); err != nil {
			return err
		}
	}

	summary := render.Document{
		Format:    render.FormatHTML,
		Content:   []byte(summaryHTML(store, c, ledger)),
		Landscape: true,
	}
	out := filepath.Join(dir, workspace.CaseDirName(c.Number)+".pdf")
	return r.Render(ctx, summary, out)
}

func (s *Selector) renderCover(ctx context.Context, dir, name string) error {
	group, ok := s.store.Get(name)
	if !ok {
		return errors.NewUnknownGroupError(name)
	}
	lines := make([]string, len(group.Members))
	for i, m := range group.Members {
		lines[i] = fmt.Sprintf("%s (%s - %s - %s)", m.DisplayName(), m.UserName, m.IDNumber, m.Email)
	}
	out := filepath.Join(dir, workspace.CleanName(name)+"_cover.pdf")
	return s.renderer.Render(ctx, render.GroupCover(name, lines), out)
}

// summaryHTML lists each retained match with its groups, similarity, and
// matched line ranges.
func summaryHTML(store *roster.Store, c similarity.Case, ledger *similarity.Ledger) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", workspace.CaseDirName(c.Number))
	fmt.Fprintf(&sb, "<p>similarity %d%%, %d matched lines</p>\n", c.SimilarityPercent, c.MatchedLines)

	for n, idx := range c.Matches {
		m, ok := ledger.Match(idx)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "<h2>Match %d: %s and %s (%d%%)</h2>\n",
			n+1, html.EscapeString(groupHeader(store, m.GroupA)), html.EscapeString(groupHeader(store, m.GroupB)), m.Similarity())
		for _, pair := range m.Fragments {
			fmt.Fprintf(&sb, "<p>%s lines %d-%d matches %s lines %d-%d</p>\n",
				html.EscapeString(pair.A.Path), pair.A.Start, pair.A.End,
				html.EscapeString(pair.B.Path), pair.B.Start, pair.B.End)
		}
	}
	return sb.String()
}

// groupHeader resolves a group name to its display header when the
// roster knows it.
func groupHeader(store *roster.Store, name string) string {
	if group, ok := store.Get(name); ok {
		return group.Header()
	}
	return name
}

func highlightKey(group, path string) string {
	return workspace.CleanName(group) + "/" + path
}
