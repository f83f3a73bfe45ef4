package moss

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
)

// Mirror downloads a MOSS web report into a local directory, rewriting
// absolute report links into relative ones so the pages browse offline.
type Mirror struct {
	http *http.Client
	log  *logging.Logger
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMirrorHTTPClient overrides the HTTP client used for page fetches.
func WithMirrorHTTPClient(h *http.Client) MirrorOption {
	return func(m *Mirror) { m.http = h }
}

// WithMirrorLogger attaches a logger for download tracing.
func WithMirrorLogger(log *logging.Logger) MirrorOption {
	return func(m *Mirror) { m.log = log }
}

// NewMirror returns a report Mirror.
func NewMirror(opts ...MirrorOption) *Mirror {
	m := &Mirror{
		http: &http.Client{Timeout: 2 * time.Minute},
		log:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Download mirrors the report at reportURL into destDir: the index page,
// every match page the index links to, and each match page's frames. All
// pages are saved under their basename with report-absolute links
// rewritten to ".".
func (m *Mirror) Download(ctx context.Context, reportURL, destDir string) error {
	reportURL = strings.TrimRight(reportURL, "/")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrap(err, "creating report directory")
	}

	index, err := m.fetch(ctx, reportURL)
	if err != nil {
		return err
	}
	if err := m.savePage(destDir, "index.html", index, reportURL); err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(index))
	if err != nil {
		return errors.Wrap(err, "parsing report index")
	}

	seen := make(map[string]bool)
	var pages []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if ok && strings.HasPrefix(href, reportURL) && !seen[href] {
			seen[href] = true
			pages = append(pages, href)
		}
	})

	for _, pageURL := range pages {
		page, err := m.fetch(ctx, pageURL)
		if err != nil {
			return err
		}
		if err := m.savePage(destDir, path.Base(pageURL), page, reportURL); err != nil {
			return err
		}

		frameDoc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			return errors.Wrapf(err, "parsing report page %s", path.Base(pageURL))
		}
		var frameErr error
		frameDoc.Find("frame").Each(func(_ int, f *goquery.Selection) {
			src, ok := f.Attr("src")
			if !ok || seen[src] || frameErr != nil {
				return
			}
			seen[src] = true
			frame, err := m.fetch(ctx, reportURL+"/"+src)
			if err != nil {
				frameErr = err
				return
			}
			frameErr = m.savePage(destDir, path.Base(src), frame, reportURL)
		})
		if frameErr != nil {
			return frameErr
		}
		m.log.Debug("report page mirrored", "page", path.Base(pageURL))
	}

	m.log.Info("report mirrored", "pages", len(pages), "dest", destDir)
	return nil
}

func (m *Mirror) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewRemoteServiceError("building request", err).
			WithService(serviceName).WithEndpoint(url)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", errors.NewRemoteServiceError("fetching report page", err).
			WithService(serviceName).WithEndpoint(url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewRemoteServiceError("fetching report page", nil).
			WithService(serviceName).WithEndpoint(url).WithStatus(resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewRemoteServiceError("reading report page", err).
			WithService(serviceName).WithEndpoint(url)
	}
	return string(data), nil
}

func (m *Mirror) savePage(destDir, name, content, reportURL string) error {
	localized := strings.ReplaceAll(content, reportURL, ".")
	if err := os.WriteFile(filepath.Join(destDir, name), []byte(localized), 0644); err != nil {
		return errors.Wrapf(err, "saving report page %s", name)
	}
	return nil
}
