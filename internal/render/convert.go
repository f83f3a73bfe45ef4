package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// PDFName returns the rendered counterpart of a source path.
func PDFName(source string) string {
	return source + ".pdf"
}

// ConvertGroupTrees renders every file matching glob inside each group
// directory under srcDir into the mirrored path under destDir, with
// ".pdf" appended. Outputs that already exist are left alone, so an
// interrupted conversion resumes where it stopped.
func ConvertGroupTrees(ctx context.Context, r Renderer, srcDir, destDir, glob, language string, log *logging.Logger) error {
	if log == nil {
		log = logging.NopLogger()
	}
	entries, err := os.ReadDir(srcDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "listing group directories")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		group := entry.Name()
		if err := ConvertDir(ctx, r,
			filepath.Join(srcDir, group), filepath.Join(destDir, group),
			glob, language, log.With("group", group)); err != nil {
			return err
		}
	}
	return nil
}

// ConvertDir renders every file under srcDir matching glob into destDir.
func ConvertDir(ctx context.Context, r Renderer, srcDir, destDir, glob, language string, log *logging.Logger) error {
	if log == nil {
		log = logging.NopLogger()
	}
	files, err := workspace.GlobFiles(srcDir, glob)
	if err != nil {
		return errors.Wrapf(err, "listing files under %s", srcDir)
	}

	for _, rel := range files {
		out := filepath.Join(destDir, PDFName(rel))
		if _, err := os.Stat(out); err == nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(srcDir, rel))
		if err != nil {
			return errors.Wrapf(err, "reading %s", rel)
		}
		doc := SourceListing(filepath.Base(rel), language, content)
		if err := r.Render(ctx, doc, out); err != nil {
			return err
		}
		log.Info("document rendered", "file", rel)
	}
	return nil
}
