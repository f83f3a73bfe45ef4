package render

import (
	"bytes"
	"context"
	"embed"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
)

//go:embed templates
var templateFS embed.FS

// Pandoc renders documents by piping them through the pandoc executable
// with the xelatex PDF engine. The embedded preamble and filter templates
// are materialized to a temp directory once per Pandoc value.
type Pandoc struct {
	binary      string
	templateDir string
	log         *logging.Logger
}

// PandocOption configures a Pandoc renderer.
type PandocOption func(*Pandoc)

// WithBinary overrides the pandoc executable path.
func WithBinary(path string) PandocOption {
	return func(p *Pandoc) { p.binary = path }
}

// WithPandocLogger attaches a logger for render tracing.
func WithPandocLogger(log *logging.Logger) PandocOption {
	return func(p *Pandoc) { p.log = log }
}

// NewPandoc returns a Pandoc renderer, verifying the executable exists
// and unpacking the template files it passes to every invocation.
func NewPandoc(opts ...PandocOption) (*Pandoc, error) {
	p := &Pandoc{binary: "pandoc", log: logging.NopLogger()}
	for _, opt := range opts {
		opt(p)
	}

	resolved, err := exec.LookPath(p.binary)
	if err != nil {
		return nil, errors.NewNotFoundError("executable", p.binary).WithCause(err)
	}
	p.binary = resolved

	dir, err := os.MkdirTemp("", "markusmoss-templates-")
	if err != nil {
		return nil, errors.Wrap(err, "creating template directory")
	}
	for _, name := range []string{
		"latex_preamble.tex", "comparison_preamble.tex", "highlight.lua", "comparison_vars.json",
	} {
		data, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading template %s", name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return nil, errors.Wrapf(err, "unpacking template %s", name)
		}
	}
	p.templateDir = dir
	return p, nil
}

// Close removes the materialized template directory.
func (p *Pandoc) Close() error {
	if p.templateDir == "" {
		return nil
	}
	return os.RemoveAll(p.templateDir)
}

// Render converts the document to a PDF at outPath.
func (p *Pandoc) Render(ctx context.Context, doc Document, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	cmd := exec.CommandContext(ctx, p.binary, p.args(doc, outPath)...)
	cmd.Stdin = bytes.NewReader(doc.Content)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.log.Debug("rendering document", "format", string(doc.Format), "out", outPath)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "pandoc failed for %s: %s", outPath, stderr.String())
	}
	return nil
}

func (p *Pandoc) args(doc Document, outPath string) []string {
	args := []string{
		"--pdf-engine=xelatex",
		"-H", filepath.Join(p.templateDir, "latex_preamble.tex"),
		"-o", outPath,
	}

	switch doc.Format {
	case FormatHTML:
		geometry := "geometry:margin=1cm"
		if doc.Landscape {
			geometry = "geometry:margin=1cm,landscape"
		}
		args = append(args,
			"--metadata-file", filepath.Join(p.templateDir, "comparison_vars.json"),
			"--listings",
			"--lua-filter="+filepath.Join(p.templateDir, "highlight.lua"),
			"-H", filepath.Join(p.templateDir, "comparison_preamble.tex"),
			"-f", "html",
			"-V", geometry,
		)
	default:
		args = append(args,
			"-V", "geometry:margin=1cm",
			"-V", "pagestyle=empty",
		)
	}
	return args
}
