package export

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from rich-text fields (notes are edited in a
// WYSIWYG box and stored as HTML). Paragraph and line breaks become
// newlines so the cell stays readable.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(strings.ReplaceAll(l, "\u00a0", " ")), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
