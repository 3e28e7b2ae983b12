package sources

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type idFrom int

const (
	fromSubject idFrom = iota
	fromLabel
	fromElement
	fromText
)

// IDRule is one rung of the order-identifier ladder.
type IDRule struct {
	from     idFrom
	selector string
	label    *regexp.Regexp
	pattern  *regexp.Regexp
}

func SubjectID(pattern string) IDRule {
	return IDRule{from: fromSubject, pattern: regexp.MustCompile(pattern)}
}

// LabelID finds an element whose own text matches label, then applies
// pattern to that element's text and then to its parent's text.
func LabelID(label, pattern string) IDRule {
	return IDRule{from: fromLabel, label: regexp.MustCompile(label), pattern: regexp.MustCompile(pattern)}
}

// ElementID applies a strict-shape pattern to the text of each element
// matched by selector.
func ElementID(selector, pattern string) IDRule {
	return IDRule{from: fromElement, selector: selector, pattern: regexp.MustCompile(pattern)}
}

func TextID(pattern string) IDRule {
	return IDRule{from: fromText, pattern: regexp.MustCompile(pattern)}
}

func (r IDRule) Find(p *Page) string {
	switch r.from {
	case fromSubject:
		return capture(r.pattern, p.Doc.Subject)
	case fromText:
		return capture(r.pattern, p.Text)
	case fromElement:
		found := ""
		p.DOM.Find(r.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = capture(r.pattern, textOf(s))
			return found == ""
		})
		return found
	case fromLabel:
		found := ""
		p.DOM.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !r.label.MatchString(ownText(s)) {
				return true
			}
			found = capture(r.pattern, textOf(s))
			if found == "" {
				found = capture(r.pattern, textOf(s.Parent()))
			}
			return found == ""
		})
		return found
	}
	return ""
}

func capture(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

func firstID(p *Page, rules []IDRule) string {
	for _, r := range rules {
		if id := r.Find(p); id != "" {
			return id
		}
	}
	return ""
}
