package sources

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ordermail/internal/util"
)

// proximity locates items by product image and pairs sizes and
// quantities collected from labelled spans, preferring those between an
// image and the next one.
type proximity struct {
	anchor     string
	idPattern  *regexp.Regexp
	name       func(img *goquery.Selection) string
	sizeLabels []string
	qtyLabels  []string
	// looseQty treats bare "1".."5" spans as quantities.
	looseQty bool
}

func (l proximity) locate(p *Page, src *Source) []Candidate {
	var (
		anchors []Candidate
		starts  []int
		frags   []Fragment
	)
	pos := 0
	p.DOM.Find(l.anchor + ", span").Each(func(_ int, sel *goquery.Selection) {
		if !sel.Is(l.anchor) {
			if f, ok := l.fragment(sel, src); ok {
				f.Pos = pos
				frags = append(frags, f)
				pos++
			}
			return
		}
		srcAttr, _ := sel.Attr("src")
		id := capture(l.idPattern, srcAttr)
		if id == "" {
			src.logger().Debug("anchor without item id", "source", src.Name, "src", srcAttr)
			return
		}
		anchors = append(anchors, Candidate{ID: id, Name: l.name(sel)})
		starts = append(starts, pos)
		pos++
	})
	if len(anchors) == 0 {
		return nil
	}

	pairs := PairAnchored(frags, src.Window, starts)
	for i := range anchors {
		anchors[i].Size = pairs[i][0]
		anchors[i].Qty = pairs[i][1]
	}
	return anchors
}

// fragment classifies a leaf span as a plausible size or quantity.
func (l proximity) fragment(span *goquery.Selection, src *Source) (Fragment, bool) {
	value := util.NormalizeSpaces(span.Text())
	if value == "" || span.Children().Length() > 0 {
		return Fragment{}, false
	}
	kind, labelled := l.labelOf(span)
	switch {
	case labelled && kind == SizeFragment && src.Sizes.Accepts(value):
	case labelled && kind == QtyFragment && util.PlausibleQuantity(value, src.QtyMax):
	case !labelled && l.looseQty && isLooseQty(value):
		kind = QtyFragment
	default:
		return Fragment{}, false
	}
	return Fragment{Kind: kind, Value: value}, true
}

// labelOf decides which label governs a span: the last label in the
// parent's text before the span, else any label in the parent's text.
func (l proximity) labelOf(span *goquery.Selection) (FragmentKind, bool) {
	before := precedingText(span)
	sizeAt := lastIndexAny(before, l.sizeLabels)
	qtyAt := lastIndexAny(before, l.qtyLabels)
	if sizeAt >= 0 || qtyAt >= 0 {
		if sizeAt > qtyAt {
			return SizeFragment, true
		}
		return QtyFragment, true
	}
	parent := textOf(span.Parent())
	hasSize := lastIndexAny(parent, l.sizeLabels) >= 0
	hasQty := lastIndexAny(parent, l.qtyLabels) >= 0
	switch {
	case hasSize && !hasQty:
		return SizeFragment, true
	case hasQty && !hasSize:
		return QtyFragment, true
	}
	return SizeFragment, false
}

func isLooseQty(v string) bool {
	return len(v) == 1 && v[0] >= '1' && v[0] <= '5'
}

func lastIndexAny(s string, needles []string) int {
	best := -1
	for _, n := range needles {
		if i := strings.LastIndex(s, n); i > best {
			best = i
		}
	}
	return best
}

// linkName returns the first target=_blank link text longer than five
// characters in the image's parent, then the image alt text if allowed.
func linkName(useAlt bool) func(img *goquery.Selection) string {
	return func(img *goquery.Selection) string {
		name := ""
		img.Parent().Find(`a[target="_blank"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if t := util.NormalizeSpaces(a.Text()); len(t) > 5 {
				name = t
				return false
			}
			return true
		})
		if name == "" && useAlt {
			name, _ = img.Attr("alt")
		}
		return util.FirstNonEmpty(util.NormalizeSpaces(name), "Unknown Product")
	}
}

// containers returns the distinct closest ancestors matching container
// for every image the filter accepts, in document order.
func containers(p *Page, imgs string, keep func(src string) bool, container string) []*goquery.Selection {
	var out []*goquery.Selection
	seen := map[any]bool{}
	p.DOM.Find(imgs).Each(func(_ int, img *goquery.Selection) {
		srcAttr, _ := img.Attr("src")
		if keep != nil && !keep(srcAttr) {
			return
		}
		box := img.Closest(container)
		if box.Length() == 0 || seen[box.Nodes[0]] {
			return
		}
		seen[box.Nodes[0]] = true
		out = append(out, box)
	})
	return out
}

// imageID captures the item id from the first image in box.
func imageID(box *goquery.Selection, imgs string, re *regexp.Regexp) string {
	id := ""
	box.Find(imgs).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		srcAttr, _ := img.Attr("src")
		id = capture(re, srcAttr)
		return id == ""
	})
	return id
}

// firstText returns the first selector match whose text passes ok.
func firstText(box *goquery.Selection, selector string, ok func(string) bool) string {
	found := ""
	box.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := util.NormalizeSpaces(s.Text())
		if ok == nil || ok(t) {
			found = t
			return false
		}
		return true
	})
	return found
}

func longerThan(n int) func(string) bool {
	return func(s string) bool { return len(s) > n }
}
