package document

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute text to the extraction.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
	"svg":      {},
	"iframe":   {},
}

// blockElements terminate the current line so extracted text keeps the
// document's paragraph structure.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "main": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "ul": {}, "ol": {}, "dl": {}, "dt": {}, "dd": {},
	"table": {}, "tr": {}, "td": {}, "th": {},
	"blockquote": {}, "pre": {}, "br": {}, "hr": {},
	"header": {}, "footer": {}, "nav": {}, "aside": {},
}

// ExtractText strips markup from captured page HTML into analyzable plain
// text. Malformed fragments are tolerated; the tokenizer's recovery applies.
func ExtractText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return NormalizeText(rawHTML)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		// Inline elements contribute no separator: tight markup renders
		// joined, and source text nodes already carry the spacing.
		if n.Type == html.ElementNode {
			if _, block := blockElements[n.Data]; block {
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	return NormalizeText(b.String())
}

// NormalizeText collapses runs of whitespace so the same document captured
// from different renderers hashes identically.
func NormalizeText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}

// HashText returns the hex sha256 of normalized text, the per-user dedup key.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
