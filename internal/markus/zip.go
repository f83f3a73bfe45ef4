package markus

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// unpackZip extracts a zip archive into dest. When every entry shares a
// single top-level directory (as MarkUs archives do, named after the
// repository), that prefix is stripped so files land directly under dest.
func unpackZip(data []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}

	prefix := commonTopDir(r.File)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		// Reject entries that escape the destination.
		if rel, err := filepath.Rel(dest, target); err != nil || strings.HasPrefix(rel, "..") {
			return errors.NewValidationError("archive entry escapes destination").WithValue(f.Name)
		}
		if err := writeZipEntry(f, target); err != nil {
			return errors.Wrapf(err, "extracting %s", f.Name)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// commonTopDir returns the single shared "dir/" prefix of all file
// entries, or "" when entries do not share one.
func commonTopDir(files []*zip.File) string {
	prefix := ""
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		top, rest, ok := strings.Cut(f.Name, "/")
		if !ok || rest == "" {
			return ""
		}
		if prefix == "" {
			prefix = top + "/"
		} else if prefix != top+"/" {
			return ""
		}
	}
	return prefix
}
