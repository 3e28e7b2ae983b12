package sources

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ordermail/internal"
	"ordermail/internal/util"
)

var (
	pwAsinCell   = regexp.MustCompile(`-\s*(B[A-Z0-9]{9})\s*$`)
	pwAsinLine   = regexp.MustCompile(`-\s*(B[A-Z0-9]{9})`)
	pwTabQty     = regexp.MustCompile(`\t\s*(-?\d+)\s*$`)
	pwEndQty     = regexp.MustCompile(`\s(-?\d+)\s*$`)
	pwHeaderWord = regexp.MustCompile(`(?i)\b(item|amount|quantity)\b`)
	pwSizeToken  = regexp.MustCompile(`^(\d{1,2}(?:\.\d{1,2})?)$`)
	pwTokenSep   = regexp.MustCompile(`[\s\-]+`)
	pwShipCode   = regexp.MustCompile(`^P\d+$`)
	pwSecondary  = []*regexp.Regexp{
		regexp.MustCompile(`\n([A-Za-z0-9]{20})\n`),
		regexp.MustCompile(`\b([A-Za-z0-9]{15,25})\s+\d+/\d+/\d+`),
	}
	pwProcessedAt = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{4},\s+\d{1,2}:\d{2}:\d{2}\s+(?:AM|PM)\s+[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{4},?\s+\d{1,2}:\d{2}:\d{2}\s+(?:AM|PM))`),
	}
)

func prepworx() *Source {
	return &Source{
		Name:           "prepworx",
		Kind:           internal.KindShipment,
		Senders:        []string{"beta@prepworx.io"},
		SenderPatterns: []string{"prepworx"},
		Subject:        regexp.MustCompile(`(?i)Inbound.*has been processed`),
		Query:          internal.SearchQuery{From: []string{"beta@prepworx.io"}, Subject: "Inbound has been processed"},
		IDRules: []IDRule{
			SubjectID(`(?i)Inbound\s+([A-Z0-9\s\-]+?)\s+has\s+been\s+processed`),
			SubjectID(`(?i)Inbound\s+([A-Z0-9\s\-]+)`),
			SubjectID(`(?i)Inbound\s+([A-Z0-9]+)`),
			SubjectID(`(?i)Inbound\s+(\d+)`),
		},
		Locate: func(p *Page, src *Source) []Candidate {
			if items := prepworxTable(p); len(items) > 0 {
				return items
			}
			return prepworxLines(p.Doc.Text)
		},
		Enrich: func(p *Page, order *internal.OrderExtract) {
			body := util.FirstNonEmpty(p.Doc.Text, p.Text)
			order.SecondaryCode = prepworxSecondary(body)
			for _, re := range pwProcessedAt {
				if v := capture(re, body); v != "" {
					order.ProcessedAt = v
					break
				}
			}
		},
		Sizes:  util.SizeRange{Min: 2, Max: 15},
		QtyMax: defaultQtyMax,
	}
}

// prepworxTable reads the table whose header row names both an item and
// an amount column. Every later row with exactly two cells is an item.
func prepworxTable(p *Page) []Candidate {
	var out []Candidate
	p.DOM.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.ChildrenFiltered("tr").AddSelection(table.ChildrenFiltered("tbody, thead").ChildrenFiltered("tr"))
		header := -1
		rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
			ths := tr.ChildrenFiltered("th")
			if ths.Length() < 2 {
				return true
			}
			joined := strings.ToLower(textOf(ths))
			if strings.Contains(joined, "item") && strings.Contains(joined, "amount") {
				header = i
				return false
			}
			return true
		})
		if header < 0 {
			return true
		}
		rows.Each(func(i int, tr *goquery.Selection) {
			if i <= header {
				return
			}
			cells := tr.ChildrenFiltered("td")
			if cells.Length() != 2 {
				return
			}
			if c, ok := prepworxCell(textOf(cells.Eq(0)), textOf(cells.Eq(1))); ok {
				out = append(out, c)
			}
		})
		return len(out) == 0
	})
	return out
}

func prepworxCell(itemText, qtyText string) (Candidate, bool) {
	item := strings.TrimSpace(itemText)
	asin := capture(pwAsinCell, item)
	if asin == "" {
		return Candidate{}, false
	}
	at := strings.LastIndex(item, " - "+asin)
	if at < 0 {
		return Candidate{}, false
	}
	name := strings.TrimSpace(item[:at])
	if name == "" {
		return Candidate{}, false
	}
	return Candidate{ID: asin, Name: name, Size: SizeFromName(name), Qty: strings.TrimSpace(qtyText)}, true
}

// prepworxLines is the plain-text fallback: one item per line.
func prepworxLines(text string) []Candidate {
	var out []Candidate
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		clean := strings.TrimSpace(html.UnescapeString(line))
		if len(clean) < 10 || pwHeaderWord.MatchString(clean) {
			continue
		}
		asin := capture(pwAsinLine, clean)
		if asin == "" {
			continue
		}
		qty := capture(pwTabQty, clean)
		if qty == "" {
			qty = capture(regexp.MustCompile(asin+`\s+(-?\d+)`), clean)
		}
		if qty == "" {
			qty = capture(pwEndQty, clean)
		}
		if qty == "" {
			qty = "1"
		}
		name := clean
		if at := strings.Index(clean, asin); at >= 0 {
			name = strings.TrimRight(clean[:at], " \t-")
		}
		name = util.NormalizeSpaces(name)
		out = append(out, Candidate{ID: asin, Name: name, Size: SizeFromName(name), Qty: qty})
	}
	return out
}

// SizeFromName scans the last four whitespace or hyphen separated tokens
// of an item name for a size between 2 and 15. Returns "" when none fits.
func SizeFromName(name string) string {
	tokens := pwTokenSep.Split(strings.TrimSpace(name), -1)
	for i := len(tokens) - 1; i >= 0 && i > len(tokens)-5; i-- {
		m := pwSizeToken.FindStringSubmatch(tokens[i])
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= 2.0 && v <= 15.0 {
			return m[1]
		}
	}
	return ""
}

func prepworxSecondary(body string) string {
	for _, re := range pwSecondary {
		if v := capture(re, body); v != "" && !pwShipCode.MatchString(v) {
			return v
		}
	}
	return ""
}
