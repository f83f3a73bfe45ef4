package render

import (
	"fmt"
	"html"
	"strings"
)

// HighlightedFile accumulates matched line ranges for one source file and
// renders it as HTML where the matched regions carry a highlight class.
type HighlightedFile struct {
	// Title is the heading shown above the listing.
	Title string
	// Language is the syntax class applied to code blocks.
	Language string

	lines  []string
	ranges [][2]int
}

// NewHighlightedFile builds a HighlightedFile over the file's content.
func NewHighlightedFile(title, language string, content []byte) *HighlightedFile {
	text := strings.TrimRight(string(content), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &HighlightedFile{Title: title, Language: language, lines: lines}
}

// AddHighlight marks the 1-based inclusive line range [start, end] as
// matched. Overlapping and adjacent ranges merge; ranges stay sorted.
func (h *HighlightedFile) AddHighlight(start, end int) {
	for i, r := range h.ranges {
		s, e := r[0], r[1]
		switch {
		case end < s:
			h.ranges = append(h.ranges[:i], append([][2]int{{start, end}}, h.ranges[i:]...)...)
			return
		case end <= e:
			if start < s {
				h.ranges[i][0] = start
			}
			return
		case start <= e:
			if start < s {
				h.ranges[i][0] = start
			}
			h.ranges[i][1] = end
			// The grown range may now reach into later ranges; absorb them
			// so the stored ranges stay disjoint.
			j := i + 1
			for j < len(h.ranges) && h.ranges[j][0] <= end+1 {
				if h.ranges[j][1] > h.ranges[i][1] {
					h.ranges[i][1] = h.ranges[j][1]
				}
				j++
			}
			h.ranges = append(h.ranges[:i+1], h.ranges[j:]...)
			return
		}
	}
	h.ranges = append(h.ranges, [2]int{start, end})
}

// Ranges returns the merged highlight ranges in order.
func (h *HighlightedFile) Ranges() [][2]int {
	out := make([][2]int, len(h.ranges))
	copy(out, h.ranges)
	return out
}

// HTML renders the file as a heading followed by alternating plain and
// highlighted numbered code blocks.
func (h *HighlightedFile) HTML() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>%s</h1>", html.EscapeString(h.Title))

	cursor := 0 // 0-based index of the next unemitted line
	for _, r := range h.ranges {
		start, end := r[0], r[1]
		if start > len(h.lines) {
			break
		}
		if end > len(h.lines) {
			end = len(h.lines)
		}
		h.writeBlock(&sb, h.lines[cursor:start-1], cursor+1, false)
		h.writeBlock(&sb, h.lines[start-1:end], start, true)
		cursor = end
	}
	h.writeBlock(&sb, h.lines[cursor:], cursor+1, false)
	return sb.String()
}

func (h *HighlightedFile) writeBlock(sb *strings.Builder, lines []string, firstNumber int, highlight bool) {
	if len(lines) == 0 {
		return
	}
	class := h.Language + " numberLines"
	if highlight {
		class += " highlight"
	}
	fmt.Fprintf(sb, "\n<pre class=%q firstnumber=\"%d\">%s</pre>",
		class, firstNumber, html.EscapeString(strings.Join(lines, "\n")))
}
