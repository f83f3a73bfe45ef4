package moss

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/similarity"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// rowPattern extracts the group, file path, and similarity percentage from
// an index-row label like "submission_files/group_001/main.py (80%)".
var rowPattern = regexp.MustCompile(workspace.SubmissionFilesDir + `/([^/]+)/(.*)\s\((\d+)%\)`)

// rangePattern matches the "12-34" line-range labels on match-page anchors.
var rangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ParseReport reads a mirrored report directory into a match ledger.
// Matches appear in index order, which fixes their ledger indices and
// therefore case numbering. Fragment line ranges come from each match's
// top-frame page; a missing or malformed frame page leaves the match
// without fragments rather than failing the parse.
func ParseReport(dir string) (*similarity.Ledger, error) {
	f, err := os.Open(filepath.Join(dir, "index.html"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrReportNotDownloaded, "no report index")
		}
		return nil, errors.Wrap(err, "opening report index")
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "parsing report index")
	}

	var matches []similarity.Match
	var rowErr error
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		if rowErr != nil || row.Find("th").Length() > 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		sideA, okA := parseSide(cells.Eq(0))
		sideB, okB := parseSide(cells.Eq(1))
		if !okA || !okB {
			rowErr = errors.NewValidationError("unparsable report index row").
				WithValue(strings.TrimSpace(row.Text()))
			return
		}
		lines, err := strconv.Atoi(strings.TrimSpace(cells.Eq(2).Text()))
		if err != nil {
			rowErr = errors.NewValidationError("unparsable matched-line count").
				WithValue(strings.TrimSpace(cells.Eq(2).Text()))
			return
		}

		page := ""
		if href, ok := cells.Eq(0).Find("a").Attr("href"); ok {
			page = filepath.Base(href)
		}

		matches = append(matches, similarity.Match{
			GroupA:       sideA.group,
			GroupB:       sideB.group,
			SimilarityA:  sideA.percent,
			SimilarityB:  sideB.percent,
			MatchedLines: lines,
			ReportPage:   page,
			Fragments:    parseFragments(dir, page, sideA, sideB),
		})
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return similarity.NewLedger(matches), nil
}

// side is one parsed half of an index row.
type side struct {
	group   string
	path    string
	percent int
}

func parseSide(cell *goquery.Selection) (side, bool) {
	m := rowPattern.FindStringSubmatch(cell.Find("a").Text())
	if m == nil {
		return side{}, false
	}
	percent, err := strconv.Atoi(m[3])
	if err != nil {
		return side{}, false
	}
	return side{group: m[1], path: m[2], percent: percent}, true
}

// parseFragments reads the matched line ranges from a match's top-frame
// page ("match0.html" -> "match0-top.html").
func parseFragments(dir, page string, sideA, sideB side) []similarity.FragmentPair {
	if page == "" {
		return nil
	}
	topPage := strings.TrimSuffix(page, ".html") + "-top.html"
	f, err := os.Open(filepath.Join(dir, topPage))
	if err != nil {
		return nil
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil
	}

	// Header rows re-state the two file labels; data rows carry one
	// line-range anchor per side.
	headerA := similarity.Fragment{Group: sideA.group, Path: sideA.path}
	headerB := similarity.Fragment{Group: sideB.group, Path: sideB.path}

	var pairs []similarity.FragmentPair
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			if a, b, ok := parseHeaderRow(row); ok {
				headerA, headerB = a, b
			}
			return
		}

		var ranges [][2]int
		row.Find("a").Each(func(_ int, a *goquery.Selection) {
			if m := rangePattern.FindStringSubmatch(strings.TrimSpace(a.Text())); m != nil {
				start, _ := strconv.Atoi(m[1])
				end, _ := strconv.Atoi(m[2])
				ranges = append(ranges, [2]int{start, end})
			}
		})
		if len(ranges) < 2 {
			return
		}

		fa, fb := headerA, headerB
		fa.Start, fa.End = ranges[0][0], ranges[0][1]
		fb.Start, fb.End = ranges[1][0], ranges[1][1]
		pairs = append(pairs, similarity.FragmentPair{A: fa, B: fb})
	})
	return pairs
}

// parseHeaderRow extracts the two file labels from a match-page header row.
func parseHeaderRow(row *goquery.Selection) (a, b similarity.Fragment, ok bool) {
	var sides []side
	row.Find("th").Each(func(_ int, th *goquery.Selection) {
		if m := rowPattern.FindStringSubmatch(th.Text()); m != nil {
			percent, _ := strconv.Atoi(m[3])
			sides = append(sides, side{group: m[1], path: m[2], percent: percent})
		}
	})
	if len(sides) < 2 {
		return a, b, false
	}
	a = similarity.Fragment{Group: sides[0].group, Path: sides[0].path}
	b = similarity.Fragment{Group: sides[1].group, Path: sides[1].path}
	return a, b, true
}
