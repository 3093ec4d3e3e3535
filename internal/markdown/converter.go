// Package markdown converts captured HTML into a portable markdown document
// and extracts structural metadata from it. Conversion is a pure derivation:
// the same HTML and options always produce the same output, with DOM order
// preserved throughout.
package markdown

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HeadingStyle selects the markdown heading syntax.
type HeadingStyle string

// Supported heading styles.
const (
	HeadingATX    HeadingStyle = "atx"
	HeadingSetext HeadingStyle = "setext"
)

// Options control the independent, idempotent transforms applied during
// conversion. Disabling one must not affect the others.
type Options struct {
	IncludeImages bool
	IncludeLinks  bool
	IncludeTables bool
	HeadingStyle  HeadingStyle
}

// DefaultOptions enables all transforms with ATX headings.
func DefaultOptions() Options {
	return Options{
		IncludeImages: true,
		IncludeLinks:  true,
		IncludeTables: true,
		HeadingStyle:  HeadingATX,
	}
}

// Document is the converted output.
type Document struct {
	Text      string
	WordCount int
}

// Metadata captures structural facts about the markup.
type Metadata struct {
	WordCount  int
	Headings   int
	Paragraphs int
	Links      int
	Images     int
	Tables     int
	Lists      int
}

// Convert renders the HTML into markdown text. The word count reflects the
// rendered visible text, not the markup.
func Convert(rawHTML string, opts Options) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Document{}, fmt.Errorf("parse markup: %w", err)
	}
	if opts.HeadingStyle == "" {
		opts.HeadingStyle = HeadingATX
	}

	r := &renderer{opts: opts}
	body := doc.Find("body")
	body.Contents().Each(func(_ int, s *goquery.Selection) {
		r.renderBlock(s)
	})

	text := strings.TrimSpace(strings.Join(r.blocks, "\n\n"))
	return Document{
		Text:      text,
		WordCount: len(strings.Fields(visibleText(body))),
	}, nil
}

// ExtractMetadata reports structural stats for the markup without rendering
// a document. It is separable from Convert and equally pure.
func ExtractMetadata(rawHTML string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Metadata{}, fmt.Errorf("parse markup: %w", err)
	}
	body := doc.Find("body")
	return Metadata{
		WordCount:  len(strings.Fields(visibleText(body))),
		Headings:   body.Find("h1,h2,h3,h4,h5,h6").Length(),
		Paragraphs: body.Find("p").Length(),
		Links:      body.Find("a[href]").Length(),
		Images:     body.Find("img[src]").Length(),
		Tables:     body.Find("table").Length(),
		Lists:      body.Find("ul,ol").Length(),
	}, nil
}

// hiddenTags never contribute to the rendered text.
var hiddenTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// inlineTags flow with the surrounding text and introduce no word boundary.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "code": true,
	"em": true, "i": true, "kbd": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "u": true, "var": true,
}

// visibleText approximates the rendered text of the page: scripts, styles,
// and templates contribute nothing, and every non-inline element boundary
// separates words the way a rendered layout would.
func visibleText(body *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if hiddenTags[n.Data] {
				return
			}
			boundary := !inlineTags[n.Data]
			if boundary {
				b.WriteByte(' ')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if boundary {
				b.WriteByte(' ')
			}
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	for _, node := range body.Nodes {
		walk(node)
	}
	return b.String()
}

type renderer struct {
	opts   Options
	blocks []string
}

func (r *renderer) emit(block string) {
	block = strings.TrimRight(block, " \n")
	if strings.TrimSpace(block) == "" {
		return
	}
	r.blocks = append(r.blocks, block)
}

func (r *renderer) renderBlock(s *goquery.Selection) {
	node := s.Get(0)
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		r.emit(collapseSpace(node.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	switch node.Data {
	case "script", "style", "noscript", "template", "head":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		r.emit(r.heading(node.Data, r.inline(s)))
	case "p":
		r.emit(r.inline(s))
	case "ul":
		r.emit(r.list(s, false, 0))
	case "ol":
		r.emit(r.list(s, true, 0))
	case "table":
		r.emit(r.table(s))
	case "pre":
		r.emit("```\n" + strings.TrimRight(s.Text(), "\n") + "\n```")
	case "blockquote":
		inner := r.inline(s)
		if inner != "" {
			r.emit("> " + inner)
		}
	case "hr":
		r.emit("---")
	case "br":
	default:
		// Containers (div, section, article, main, body, ...) recurse;
		// anything else renders as an inline run.
		if isContainer(node.Data) {
			s.Contents().Each(func(_ int, child *goquery.Selection) {
				r.renderBlock(child)
			})
			return
		}
		r.emit(collapseSpace(r.inlineNode(s)))
	}
}

func isContainer(tag string) bool {
	switch tag {
	case "div", "section", "article", "main", "header", "footer", "nav", "aside", "form", "figure", "body", "html":
		return true
	}
	return false
}

func (r *renderer) heading(tag, text string) string {
	level := int(tag[1] - '0')
	if r.opts.HeadingStyle == HeadingSetext && level <= 2 {
		underline := "="
		if level == 2 {
			underline = "-"
		}
		return text + "\n" + strings.Repeat(underline, max(len(text), 3))
	}
	return strings.Repeat("#", level) + " " + text
}

func (r *renderer) list(s *goquery.Selection, ordered bool, depth int) string {
	var lines []string
	indent := strings.Repeat("  ", depth)
	s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		marker := "-"
		if ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		item := r.inlineShallow(li)
		if item != "" {
			lines = append(lines, fmt.Sprintf("%s%s %s", indent, marker, item))
		}
		li.ChildrenFiltered("ul").Each(func(_ int, nested *goquery.Selection) {
			if sub := r.list(nested, false, depth+1); sub != "" {
				lines = append(lines, sub)
			}
		})
		li.ChildrenFiltered("ol").Each(func(_ int, nested *goquery.Selection) {
			if sub := r.list(nested, true, depth+1); sub != "" {
				lines = append(lines, sub)
			}
		})
	})
	return strings.Join(lines, "\n")
}

func (r *renderer) table(s *goquery.Selection) string {
	var rows [][]string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, r.inline(cell))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return ""
	}

	if !r.opts.IncludeTables {
		// Degrade to plain text rows.
		var lines []string
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " "))
		}
		return strings.Join(lines, "\n")
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")
	seps := make([]string, len(rows[0]))
	for i := range seps {
		seps[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// inline renders the full inline content of a selection, including nested
// block-ish children flattened to a single run.
func (r *renderer) inline(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		b.WriteString(r.inlineNode(child))
	})
	return collapseSpace(b.String())
}

// inlineShallow is inline but skips nested lists, which render separately.
func (r *renderer) inlineShallow(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		node := child.Get(0)
		if node != nil && node.Type == html.ElementNode && (node.Data == "ul" || node.Data == "ol") {
			return
		}
		b.WriteString(r.inlineNode(child))
	})
	return collapseSpace(b.String())
}

func (r *renderer) inlineNode(s *goquery.Selection) string {
	node := s.Get(0)
	if node == nil {
		return ""
	}
	if node.Type == html.TextNode {
		return node.Data
	}
	if node.Type != html.ElementNode {
		return ""
	}

	switch node.Data {
	case "script", "style", "noscript", "template":
		return ""
	case "a":
		text := r.inline(s)
		href, ok := s.Attr("href")
		if !r.opts.IncludeLinks || !ok || href == "" {
			return text
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	case "img":
		if !r.opts.IncludeImages {
			return ""
		}
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return ""
		}
		alt, _ := s.Attr("alt")
		return fmt.Sprintf("![%s](%s)", alt, src)
	case "strong", "b":
		return "**" + r.inline(s) + "**"
	case "em", "i":
		return "*" + r.inline(s) + "*"
	case "code":
		return "`" + s.Text() + "`"
	case "br":
		return " "
	default:
		var b strings.Builder
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			b.WriteString(r.inlineNode(child))
		})
		return b.String()
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
