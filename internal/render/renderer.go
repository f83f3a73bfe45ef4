// Package render turns source files and comparison documents into PDFs
// via pandoc. The Renderer interface exists so report assembly can be
// tested without a TeX toolchain installed.
package render

import (
	"context"
	"fmt"
)

// Format identifies the input markup of a Document.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Document is one renderable input.
type Document struct {
	Format    Format
	Content   []byte
	Landscape bool
}

// Renderer renders a document to a PDF at outPath, creating parent
// directories as needed.
type Renderer interface {
	Render(ctx context.Context, doc Document, outPath string) error
}

// SourceListing builds a document showing one source file as a numbered
// code listing titled with its filename.
func SourceListing(filename, language string, content []byte) Document {
	md := fmt.Sprintf("# %s\n\n```{.%s .numberLines}\n%s\n```", filename, language, content)
	return Document{Format: FormatMarkdown, Content: []byte(md)}
}

// GroupCover builds a cover-page document with the group name and a
// bullet per member line.
func GroupCover(groupName string, memberLines []string) Document {
	md := "# " + groupName + "\n\n"
	for _, line := range memberLines {
		md += "- " + line + "\n"
	}
	return Document{Format: FormatMarkdown, Content: []byte(md)}
}
