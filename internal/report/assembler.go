// Package report assembles the reviewer-facing output: per-case
// directories holding each group's original and rendered files, roster
// CSVs, mirrored similarity pages, and the assignment-level overview
// table.
package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/render"
	"github.com/MarkUsProject/markusmoss/internal/roster"
	"github.com/MarkUsProject/markusmoss/internal/similarity"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// overviewColumns is the fixed header of the case overview table.
var overviewColumns = []string{"case", "groups", "similarity (%)", "matched_lines"}

// Assembler builds final-report trees from clustered cases.
type Assembler struct {
	layout   workspace.Layout
	store    *roster.Store
	fileGlob string
	log      *logging.Logger

	renderer render.Renderer
	language string
}

// NewAssembler returns an Assembler over the given layout and roster.
func NewAssembler(layout workspace.Layout, store *roster.Store, fileGlob string, log *logging.Logger) *Assembler {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Assembler{layout: layout, store: store, fileGlob: fileGlob, log: log}
}

// WithRenderer makes Compile also render the per-case comparison
// documents (highlighted files plus case summary) into each case
// directory.
func (a *Assembler) WithRenderer(r render.Renderer, language string) *Assembler {
	a.renderer = r
	a.language = language
	return a
}

// Compile writes final_report/<assignment>/: one case_<n> directory per
// case with each group's files and roster, the mirrored similarity pages
// for the case's retained matches, copied starter files, and the
// case_overview.csv summary.
func (a *Assembler) Compile(ctx context.Context, assignment string, cases []similarity.Case, ledger *similarity.Ledger) error {
	dir := a.layout.AssignmentReport(assignment)
	if err := workspace.EnsureDir(dir); err != nil {
		return errors.Wrap(err, "creating assignment report directory")
	}

	if _, err := os.Stat(a.layout.StarterFiles()); err == nil {
		dest := filepath.Join(dir, workspace.StarterFilesDir)
		if err := workspace.CopyTree(a.layout.StarterFiles(), dest); err != nil {
			return errors.Wrap(err, "copying starter files")
		}
	}

	for _, c := range cases {
		a.log.Info("assembling case",
			"case", c.Number, "groups", strings.Join(c.Groups, ";"), "similarity", c.SimilarityPercent)
		if err := a.writeCase(ctx, assignment, c, ledger); err != nil {
			return errors.Wrapf(err, "assembling case %d", c.Number)
		}
	}

	return a.writeOverview(assignment, cases)
}

func (a *Assembler) writeCase(ctx context.Context, assignment string, c similarity.Case, ledger *similarity.Ledger) error {
	caseDir := a.layout.CaseDir(assignment, c.Number)
	if err := workspace.EnsureDir(caseDir); err != nil {
		return err
	}

	for _, idx := range c.Matches {
		m, ok := ledger.Match(idx)
		if !ok || m.ReportPage == "" {
			continue
		}
		// The match page plus its top frame, which carries the line ranges.
		for _, page := range []string{m.ReportPage, topFrameName(m.ReportPage)} {
			src := filepath.Join(a.layout.ReportDownload(), page)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := workspace.CopyFile(src, filepath.Join(caseDir, page)); err != nil {
				return err
			}
		}
	}

	for _, name := range c.Groups {
		if err := a.writeGroup(caseDir, name); err != nil {
			return err
		}
	}

	if a.renderer != nil {
		return comparisonDocs(ctx, a.renderer, a.store, a.language, caseDir, c, ledger)
	}
	return nil
}

func (a *Assembler) writeGroup(caseDir, name string) error {
	group, ok := a.store.Get(name)
	if !ok {
		return errors.NewUnknownGroupError(name)
	}
	clean := workspace.CleanName(name)
	groupDir := filepath.Join(caseDir, clean)

	srcRoot := a.layout.GroupSubmission(name)
	files, err := workspace.GlobFiles(srcRoot, a.fileGlob)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := workspace.CopyFile(
			filepath.Join(srcRoot, rel),
			filepath.Join(groupDir, "org", rel)); err != nil {
			return err
		}

		// The rendered counterpart may be missing when render-documents
		// was skipped; the original file still ships.
		pdf := filepath.Join(a.layout.PDFSubmissionFiles(), clean, render.PDFName(rel))
		if _, err := os.Stat(pdf); err == nil {
			if err := workspace.CopyFile(pdf, filepath.Join(groupDir, "pdf", render.PDFName(rel))); err != nil {
				return err
			}
		}
	}

	if err := workspace.EnsureDir(groupDir); err != nil {
		return err
	}
	f, err := os.Create(a.layout.RosterFile(caseDir, clean))
	if err != nil {
		return err
	}
	if err := group.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *Assembler) writeOverview(assignment string, cases []similarity.Case) error {
	f, err := os.Create(a.layout.OverviewFile(assignment))
	if err != nil {
		return errors.Wrap(err, "creating case overview")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(overviewColumns); err != nil {
		return err
	}
	for _, c := range cases {
		row := []string{
			workspace.CaseDirName(c.Number),
			strings.Join(c.Groups, ";"),
			strconv.Itoa(c.SimilarityPercent),
			strconv.Itoa(c.MatchedLines),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// topFrameName returns the top-frame page for a match page
// ("match0.html" -> "match0-top.html").
func topFrameName(page string) string {
	return strings.TrimSuffix(page, ".html") + "-top.html"
}
