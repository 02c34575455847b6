// Package document turns input files into pages of paragraphs and cuts them
// into synthesis-sized chunks.
package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxParagraphLen is the length above which a paragraph is split into
// sentences before synthesis.
const MaxParagraphLen = 500

// pageBreak separates pages in plain text, as produced by pdftotext.
const pageBreak = "\f"

// Format is an input format.
type Format int

const (
	// Text is plain text with form feeds between pages.
	Text Format = iota
	// Markdown is CommonMark; thematic breaks separate pages.
	Markdown
)

// FormatFor picks the format from a file name.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return Markdown
	default:
		return Text
	}
}

// Document is a loaded input.
type Document struct {
	Name  string
	Pages []string
}

// Load reads r and splits it into pages. The format follows name.
func Load(r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	return Parse(data, name), nil
}

// Parse splits data into pages according to the format of name.
func Parse(data []byte, name string) *Document {
	var pages []string
	if FormatFor(name) == Markdown {
		pages = markdownPages(data)
	} else {
		pages = textPages(string(data))
	}
	return &Document{Name: name, Pages: pages}
}

// Text joins the pages with newlines.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

func textPages(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	pages := strings.Split(s, pageBreak)
	// A trailing form feed does not open another page.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

// markdownPages flattens markdown to one paragraph per line and starts a
// new page at every thematic break.
func markdownPages(source []byte) []string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		pages []string
		page  []string
	)
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		if _, ok := block.(*ast.ThematicBreak); ok {
			pages = append(pages, strings.Join(page, "\n"))
			page = nil
			continue
		}
		page = append(page, blockLines(block, source)...)
	}
	return append(pages, strings.Join(page, "\n"))
}

// blockLines returns the speakable lines of a block node.
func blockLines(node ast.Node, source []byte) []string {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		return nil

	case *ast.List, *ast.Blockquote, *ast.ListItem:
		var lines []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			lines = append(lines, blockLines(c, source)...)
		}
		return lines

	default:
		var buf bytes.Buffer
		writeInline(node, source, &buf)
		line := strings.Join(strings.Fields(buf.String()), " ")
		if line == "" {
			return nil
		}
		return []string{line}
	}
}

// writeInline writes the text of node's inline content.
func writeInline(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.Image:
		// Alt text only.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			writeInline(c, source, buf)
		}
		return

	case *ast.RawHTML, *ast.AutoLink:
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		writeInline(c, source, buf)
	}
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Paragraphs returns the trimmed, non-empty lines of page.
func Paragraphs(page string) []string {
	var out []string
	for _, line := range strings.Split(page, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Sentences splits text after each '.', '!' or '?' that is followed by
// whitespace.
func Sentences(text string) []string {
	var out []string
	prev := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[prev : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		out = append(out, s)
	}
	return out
}

// Chunks cuts pages into synthesis units: one per paragraph, with
// paragraphs longer than MaxParagraphLen characters split into sentences.
func Chunks(pages []string) []string {
	var chunks []string
	for _, page := range pages {
		for _, para := range Paragraphs(page) {
			if len([]rune(para)) > MaxParagraphLen {
				chunks = append(chunks, Sentences(para)...)
				continue
			}
			chunks = append(chunks, para)
		}
	}
	return chunks
}
