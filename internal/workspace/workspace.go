// Package workspace defines the on-disk layout of a markusmoss working
// directory. Every path the pipeline reads or writes goes through a Layout
// so the directory conventions live in exactly one place.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Subdirectory and file names under the working directory.
const (
	SubmissionFilesDir    = "submission_files"
	PDFSubmissionFilesDir = "pdf_submission_files"
	StarterFilesDir       = "starter_files"
	MossReportDir         = "moss_report"
	FinalReportDir        = "final_report"
	SelectedCasesDir      = "selected"
	MarkerDir             = ".markusmoss/markers"

	reportURLFile     = "report_url.txt"
	reportDownloadDir = "report"
	rosterFile        = "group_data.csv"
	overviewFile      = "case_overview.csv"
)

// Layout resolves every path convention under one working directory.
type Layout struct {
	Workdir string
}

// New returns a Layout rooted at workdir. A relative workdir is resolved
// against the current directory at call time.
func New(workdir string) Layout {
	if abs, err := filepath.Abs(workdir); err == nil {
		workdir = abs
	}
	return Layout{Workdir: workdir}
}

// SubmissionFiles returns the root of downloaded submission files.
func (l Layout) SubmissionFiles() string {
	return filepath.Join(l.Workdir, SubmissionFilesDir)
}

// GroupSubmission returns the directory holding one group's submission.
func (l Layout) GroupSubmission(group string) string {
	return filepath.Join(l.SubmissionFiles(), CleanName(group))
}

// PDFSubmissionFiles returns the root of rendered submission documents.
func (l Layout) PDFSubmissionFiles() string {
	return filepath.Join(l.Workdir, PDFSubmissionFilesDir)
}

// StarterFilesOrg returns the root of original (unrendered) starter files.
func (l Layout) StarterFilesOrg() string {
	return filepath.Join(l.Workdir, StarterFilesDir, "org")
}

// StarterFilesPDF returns the root of rendered starter-file documents.
func (l Layout) StarterFilesPDF() string {
	return filepath.Join(l.Workdir, StarterFilesDir, "pdf")
}

// StarterFiles returns the starter-file root (org + pdf).
func (l Layout) StarterFiles() string {
	return filepath.Join(l.Workdir, StarterFilesDir)
}

// MossReport returns the similarity-report working directory.
func (l Layout) MossReport() string {
	return filepath.Join(l.Workdir, MossReportDir)
}

// ReportURLFile returns the file holding the similarity report URL.
func (l Layout) ReportURLFile() string {
	return filepath.Join(l.MossReport(), reportURLFile)
}

// ReportDownload returns the directory holding the mirrored report pages.
func (l Layout) ReportDownload() string {
	return filepath.Join(l.MossReport(), reportDownloadDir)
}

// FinalReport returns the final report root.
func (l Layout) FinalReport() string {
	return filepath.Join(l.Workdir, FinalReportDir)
}

// AssignmentReport returns the final report directory for one assignment.
func (l Layout) AssignmentReport(assignment string) string {
	return filepath.Join(l.FinalReport(), assignment)
}

// CaseDir returns the directory for one case under an assignment report.
func (l Layout) CaseDir(assignment string, caseNumber int) string {
	return filepath.Join(l.AssignmentReport(assignment), CaseDirName(caseNumber))
}

// RosterFile returns the roster CSV path for a group within a case directory.
func (l Layout) RosterFile(caseDir, group string) string {
	return filepath.Join(caseDir, group, rosterFile)
}

// OverviewFile returns the summary-table CSV path for an assignment.
func (l Layout) OverviewFile(assignment string) string {
	return filepath.Join(l.AssignmentReport(assignment), overviewFile)
}

// SelectedCases returns the root of reviewer-selected case bundles.
func (l Layout) SelectedCases() string {
	return filepath.Join(l.Workdir, SelectedCasesDir)
}

// Markers returns the durable completion-marker directory.
func (l Layout) Markers() string {
	return filepath.Join(l.Workdir, MarkerDir)
}

// CaseDirName returns the conventional directory name for a case number.
func CaseDirName(n int) string {
	return "case_" + strconv.Itoa(n)
}

// CleanName makes a group name safe to use as a directory name.
func CleanName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// GlobFiles returns all regular files under root whose path relative to
// root matches the doublestar-style glob pattern. A pattern of "**/*" (or
// "") matches everything. Returned paths are relative to root and sorted
// by filepath.WalkDir order, which is deterministic.
func GlobFiles(root, pattern string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matchGlob(pattern, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}

// matchGlob matches a relative path against a glob pattern where "**"
// crosses directory separators. An empty pattern matches everything.
func matchGlob(pattern, rel string) bool {
	if pattern == "" || pattern == "**/*" || pattern == "**" {
		return true
	}
	// "**/suffix" matches the suffix pattern at any depth, including zero.
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if ok2, _ := filepath.Match(rest, filepath.Base(rel)); ok2 && !strings.Contains(rest, "/") {
			return true
		}
		if ok2, _ := filepath.Match(rest, rel); ok2 {
			return true
		}
		return false
	}
	ok, _ := filepath.Match(pattern, rel)
	return ok
}

// CopyFile copies a single file, creating the destination directory.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// CopyTree recursively copies every regular file under src into dst,
// preserving relative paths.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return CopyFile(path, filepath.Join(dst, rel))
	})
}
