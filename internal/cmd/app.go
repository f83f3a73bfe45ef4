package cmd

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/MarkUsProject/markusmoss/internal/config"
	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/markus"
	"github.com/MarkUsProject/markusmoss/internal/moss"
	"github.com/MarkUsProject/markusmoss/internal/pipeline"
	"github.com/MarkUsProject/markusmoss/internal/render"
	"github.com/MarkUsProject/markusmoss/internal/report"
	"github.com/MarkUsProject/markusmoss/internal/roster"
	"github.com/MarkUsProject/markusmoss/internal/similarity"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// Pipeline action names, in dependency order.
const (
	ActionDownloadSubmissions  = "download-submissions"
	ActionDownloadStarterFiles = "download-starter-files"
	ActionRenderDocuments      = "render-documents"
	ActionRunMoss              = "run-moss"
	ActionDownloadReport       = "download-report"
	ActionCompileReport        = "compile-report"
	ActionSelectCases          = "select-cases"
)

// markusKeys are required by every action that talks to MarkUs.
var markusKeys = []string{"markus.api_key", "markus.url", "markus.course", "markus.assignment", "workdir"}

// app holds the collaborators shared by pipeline actions within one run.
// The renderer and roster are built lazily so actions that never need
// them do not pay for (or fail on) their setup.
type app struct {
	cfg    *config.Config
	layout workspace.Layout
	log    *logging.Logger

	pandoc *render.Pandoc
	roster *roster.Store
}

func newApp(cfg *config.Config, layout workspace.Layout, log *logging.Logger) *app {
	if log == nil {
		log = logging.NopLogger()
	}
	return &app{cfg: cfg, layout: layout, log: log}
}

// Close releases lazily acquired resources.
func (a *app) Close() error {
	if a.pandoc != nil {
		return a.pandoc.Close()
	}
	return nil
}

// registry builds the pipeline action registry. Dependency edges mirror
// the data flow: rendering and the similarity run need downloads, the
// report mirror needs a submitted run, and the final report needs both
// rendered documents and the mirrored report.
func (a *app) registry() (*pipeline.Registry, error) {
	return pipeline.NewRegistry(
		pipeline.Action{
			Name:         ActionDownloadSubmissions,
			RequiredKeys: markusKeys,
			Run:          a.downloadSubmissions,
		},
		pipeline.Action{
			Name:         ActionDownloadStarterFiles,
			RequiredKeys: markusKeys,
			Run:          a.downloadStarterFiles,
		},
		pipeline.Action{
			Name:         ActionRenderDocuments,
			DependsOn:    []string{ActionDownloadSubmissions, ActionDownloadStarterFiles},
			RequiredKeys: []string{"workdir", "language"},
			Run:          a.renderDocuments,
		},
		pipeline.Action{
			Name:         ActionRunMoss,
			DependsOn:    []string{ActionDownloadSubmissions, ActionDownloadStarterFiles},
			RequiredKeys: []string{"moss.user_id", "language", "workdir"},
			Run:          a.runMoss,
		},
		pipeline.Action{
			Name:         ActionDownloadReport,
			DependsOn:    []string{ActionRunMoss},
			RequiredKeys: []string{"workdir"},
			Run:          a.downloadReport,
		},
		pipeline.Action{
			Name:         ActionCompileReport,
			DependsOn:    []string{ActionRenderDocuments, ActionDownloadReport},
			RequiredKeys: append([]string{"language"}, markusKeys...),
			Run:          a.compileReport,
		},
		pipeline.Action{
			Name:         ActionSelectCases,
			DependsOn:    []string{ActionCompileReport},
			RequiredKeys: append([]string{"language"}, markusKeys...),
			Run:          a.selectCases,
		},
	)
}

func (a *app) downloader() *markus.Downloader {
	client := markus.NewClient(a.cfg.Markus.URL, a.cfg.Markus.APIKey, markus.WithLogger(a.log))
	return markus.NewDownloader(client, a.layout, a.log)
}

// fetchRoster returns the group roster, fetching it from MarkUs on first
// use. A download-submissions run in the same pass seeds it directly.
func (a *app) fetchRoster(ctx context.Context) (*roster.Store, error) {
	if a.roster != nil {
		return a.roster, nil
	}
	store, err := a.downloader().FetchRoster(ctx, a.cfg.Markus.Course, a.cfg.Markus.Assignment, a.cfg.Groups)
	if err != nil {
		return nil, err
	}
	a.roster = store
	return store, nil
}

func (a *app) renderer() (*render.Pandoc, error) {
	if a.pandoc != nil {
		return a.pandoc, nil
	}
	p, err := render.NewPandoc(render.WithPandocLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.pandoc = p
	return p, nil
}

func (a *app) downloadSubmissions(ctx context.Context) error {
	store, err := a.downloader().DownloadSubmissions(ctx, a.cfg.Markus.Course, a.cfg.Markus.Assignment, a.cfg.Groups)
	if err != nil {
		return err
	}
	a.roster = store
	return nil
}

func (a *app) downloadStarterFiles(ctx context.Context) error {
	return a.downloader().DownloadStarterFiles(ctx, a.cfg.Markus.Course, a.cfg.Markus.Assignment)
}

func (a *app) renderDocuments(ctx context.Context) error {
	p, err := a.renderer()
	if err != nil {
		return err
	}
	if err := render.ConvertGroupTrees(ctx, p,
		a.layout.SubmissionFiles(), a.layout.PDFSubmissionFiles(),
		a.cfg.FileGlob, a.cfg.Language, a.log); err != nil {
		return err
	}
	// Starter files render in full; the file glob only scopes submissions.
	return render.ConvertDir(ctx, p,
		a.layout.StarterFilesOrg(), a.layout.StarterFilesPDF(),
		"", a.cfg.Language, a.log)
}

func (a *app) runMoss(ctx context.Context) error {
	base, err := mossFiles(a.layout.StarterFilesOrg(), "", "")
	if err != nil {
		return err
	}

	groupDirs, err := os.ReadDir(a.layout.SubmissionFiles())
	if err != nil {
		return errors.Wrap(err, "listing downloaded submissions")
	}
	var files []moss.File
	for _, entry := range groupDirs {
		if !entry.IsDir() {
			continue
		}
		prefix := path.Join(workspace.SubmissionFilesDir, entry.Name())
		groupFiles, err := mossFiles(filepath.Join(a.layout.SubmissionFiles(), entry.Name()), a.cfg.FileGlob, prefix)
		if err != nil {
			return err
		}
		files = append(files, groupFiles...)
	}
	if len(files) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "no submission files to submit")
	}

	client := moss.NewClient(a.cfg.Moss.UserID, a.cfg.Language,
		moss.WithMaxMatches(a.cfg.Moss.MaxMatches),
		moss.WithShowResults(a.cfg.Moss.ShowResults),
		moss.WithClientLogger(a.log))
	url, err := client.Submit(ctx, base, files, a.cfg.Markus.Assignment)
	if err != nil {
		return err
	}

	if err := workspace.EnsureDir(a.layout.MossReport()); err != nil {
		return err
	}
	if err := os.WriteFile(a.layout.ReportURLFile(), []byte(url+"\n"), 0644); err != nil {
		return errors.Wrap(err, "recording report URL")
	}
	a.log.Info("similarity run submitted", "url", url, "files", len(files))
	return nil
}

func (a *app) downloadReport(ctx context.Context) error {
	url, err := a.reportURL()
	if err != nil {
		return err
	}
	mirror := moss.NewMirror(moss.WithMirrorLogger(a.log))
	return mirror.Download(ctx, url, a.layout.ReportDownload())
}

// reportURL prefers the configured override, falling back to the URL
// recorded by run-moss.
func (a *app) reportURL() (string, error) {
	if a.cfg.Moss.ReportURL != "" {
		return a.cfg.Moss.ReportURL, nil
	}
	data, err := os.ReadFile(a.layout.ReportURLFile())
	if err != nil {
		return "", errors.Wrap(errors.ErrReportNotDownloaded, "no recorded report URL; run run-moss or set moss.report_url")
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *app) compileReport(ctx context.Context) error {
	ledger, err := moss.ParseReport(a.layout.ReportDownload())
	if err != nil {
		return err
	}
	cases, err := similarity.Cluster(ledger, similarity.Selection{}, a.cfg.Exclusions())
	if err != nil {
		return err
	}
	store, err := a.fetchRoster(ctx)
	if err != nil {
		return err
	}
	p, err := a.renderer()
	if err != nil {
		return err
	}
	assembler := report.NewAssembler(a.layout, store, a.cfg.FileGlob, a.log).
		WithRenderer(p, a.cfg.Language)
	return assembler.Compile(ctx, a.cfg.Markus.Assignment, cases, ledger)
}

func (a *app) selectCases(ctx context.Context) error {
	sel := a.cfg.Selection()
	if sel.IsZero() {
		return errors.Wrap(errors.ErrInvalidInput, "select-cases needs select.case or select.groups")
	}
	ledger, err := moss.ParseReport(a.layout.ReportDownload())
	if err != nil {
		return err
	}
	cases, err := similarity.Cluster(ledger, sel, a.cfg.Exclusions())
	if err != nil {
		return err
	}
	store, err := a.fetchRoster(ctx)
	if err != nil {
		return err
	}
	p, err := a.renderer()
	if err != nil {
		return err
	}
	selector := report.NewSelector(a.layout, store, p, a.cfg.Language, a.log)
	return selector.Bundle(ctx, a.cfg.Markus.Assignment, cases, ledger)
}

// mossFiles reads every file under root matching glob into upload files.
// Display names use forward slashes with the given prefix, matching the
// paths the report will show.
func mossFiles(root, glob, prefix string) ([]moss.File, error) {
	rels, err := workspace.GlobFiles(root, glob)
	if err != nil {
		return nil, err
	}
	files := make([]moss.File, 0, len(rels))
	for _, rel := range rels {
		content, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, err
		}
		files = append(files, moss.File{
			DisplayName: path.Join(prefix, filepath.ToSlash(rel)),
			Content:     content,
		})
	}
	return files, nil
}
