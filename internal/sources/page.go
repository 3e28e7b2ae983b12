package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ordermail/internal"
	"ordermail/internal/util"
)

// Page is a parsed Document ready for rule evaluation.
type Page struct {
	Doc  internal.Document
	DOM  *goquery.Document
	Text string
}

func NewPage(doc internal.Document) (*Page, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return nil, err
	}
	text := util.NormalizeSpaces(doc.Text)
	if strings.TrimSpace(doc.HTML) != "" {
		text = visibleText(dom.Selection)
	}
	return &Page{Doc: doc, DOM: dom, Text: text}, nil
}

// visibleText joins text nodes in document order with single spaces so
// adjacent cells never run together.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return util.CleanText(b.String())
}

// textOf is the visible text of a selection, whitespace-collapsed.
func textOf(sel *goquery.Selection) string {
	return visibleText(sel)
}

// ownText is the text directly inside the element, excluding children.
func ownText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				parts = append(parts, c.Data)
			}
		}
	}
	return util.CleanText(strings.Join(parts, " "))
}

// precedingText is the parent's text up to the element itself.
func precedingText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 || sel.Nodes[0].Parent == nil {
		return ""
	}
	self := sel.Nodes[0]
	var b strings.Builder
	for c := self.Parent.FirstChild; c != nil && c != self; c = c.NextSibling {
		b.WriteString(visibleText(goquery.NewDocumentFromNode(c).Selection))
		b.WriteByte(' ')
	}
	return util.NormalizeSpaces(b.String())
}
