package sources

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ordermail/internal"
	"ordermail/internal/util"
)

const defaultQtyMax = 20

var sneakerSizes = util.SizeRange{Min: 2.0, Max: 20.0}

func footlocker() *Source {
	return &Source{
		Name:           "footlocker",
		Kind:           internal.KindOrder,
		Senders:        []string{"accountservices@em.footlocker.com"},
		SenderPatterns: []string{"footlocker"},
		Subject:        regexp.MustCompile(`(?i)thank you for your order`),
		Query:          internal.SearchQuery{From: []string{"accountservices@em.footlocker.com"}, Subject: "Thank you for your order", Exact: true},
		IDRules: []IDRule{
			LabelID(`Order[:\s]+`, `Order[:\s]+(P\d{19})`),
			ElementID("span", `^P\d{19}$`),
			TextID(`\b(P\d{19})\b`),
		},
		Locate: proximity{
			anchor:     `img[src*="/EBFL2/"]`,
			idPattern:  regexp.MustCompile(`/EBFL2/([A-Z0-9]+)`),
			name:       linkName(false),
			sizeLabels: []string{"Size"},
			qtyLabels:  []string{"Qty"},
		}.locate,
		Sizes:            util.SizeRange{Min: 4, Max: 18, Youth: true, Letters: true},
		QtyMax:           defaultQtyMax,
		Window:           3,
		RetailerPatterns: []string{"footlocker", "foot locker"},
	}
}

func champs() *Source {
	return &Source{
		Name:           "champs",
		Kind:           internal.KindOrder,
		Senders:        []string{"accountservices@em.champssports.com"},
		SenderPatterns: []string{"champs"},
		Subject:        regexp.MustCompile(`(?i)thank you for your order`),
		Query:          internal.SearchQuery{From: []string{"accountservices@em.champssports.com"}, Subject: "Thank you for your order", Exact: true},
		IDRules: []IDRule{
			LabelID(`Order[:\s]+`, `Order[:\s]+([A-Z0-9]{8,20})`),
			ElementID("span", `^[A-Z0-9]{8,20}$`),
			TextID(`Order[:\s]+([A-Z0-9]{8,20})\b`),
		},
		Locate: proximity{
			anchor:     `img[src*="/EBFL2/"]`,
			idPattern:  regexp.MustCompile(`/EBFL2/([A-Z0-9]+)`),
			name:       linkName(true),
			sizeLabels: []string{"Size"},
			qtyLabels:  []string{"Qty", "QTY"},
			looseQty:   true,
		}.locate,
		Sizes:            sneakerSizes,
		QtyMax:           10,
		Window:           3,
		RetailerPatterns: []string{"champs", "champs sports"},
	}
}

var (
	dicksImg       = `img[src*="dks.scene7.com/is/image/dkscdn/"]`
	dicksID        = regexp.MustCompile(`dkscdn/([A-Z0-9]+)_`)
	dicksSize      = regexp.MustCompile(`(?i)Shoe\s+Size[:\s]+([\d.]+)`)
	dicksQty       = regexp.MustCompile(`(?i)\bQty[:\s]+(\d+)`)
	hibbettImg     = `img[src*="classic.cdn.media.amplience.net/i/hibbett/"]`
	hibbettID      = regexp.MustCompile(`hibbett/([A-Z0-9]+)_`)
	hibbettSize    = regexp.MustCompile(`(?i)SIZE[:\s]+(\d+(?:\.\d+)?)`)
	hibbettQty     = regexp.MustCompile(`(?i)QTY[:\s]+(\d+)`)
	hibbettCut     = regexp.MustCompile(`(?i)\s*(?:Product\s*#|COLOR:).*$`)
	hibbettWords   = []string{"shoe", "men", "women", "nike", "adidas", "jordan", "leather", "sneaker"}
	finishlineID   = regexp.MustCompile(`/finishline/([A-Z0-9_-]+)\?`)
	finishlineBold = regexp.MustCompile(`orderDetails.*bold`)
	spImgParts     = []string{"cdn.shopify.com/s/files/1/0852/3376/files/", "_1024x1024.jpg"}
	spImgSkip      = []string{"logo", "icon", "fb.png", "tw.png", "in.png", "pi.png", "preview-full", "sp_stacked"}
	spParens       = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	spQty          = regexp.MustCompile(`(?i)Quantit[iy]\s*:\s*(\d+)`)
	simonName      = regexp.MustCompile(`^(.+?)\s*-\s*US\s+`)
	simonSize      = regexp.MustCompile(`(?i)US\s+([0-9.]+(?:\s*[A-Z])?)`)
	simonSizeLoose = regexp.MustCompile(`\b([0-9]{1,2}(?:\.[05])?)\b`)
	simonMult      = regexp.MustCompile(`×\s*(\d+)`)
	snipesSKU      = regexp.MustCompile(`(?i)SKU:\s*(\d+)`)
	snipesSize     = regexp.MustCompile(`(?i)(?:Unisex|Men'?s?|Women'?s?|Kids?'?s?)\s*/\s*([^\s<]+)`)
	snipesSizeAlt  = regexp.MustCompile(`\b(\d+(?:\.\d+)?Y?|[A-Z]{1,3})\b`)
	snipesQty      = regexp.MustCompile(`(?i)Quantity:\s*(\d+)`)
)

func dicks() *Source {
	return &Source{
		Name:           "dicks",
		Kind:           internal.KindOrder,
		Senders:        []string{"from@notifications.dcsg.com"},
		SenderPatterns: []string{"dicks", "dcsg"},
		Subject:        regexp.MustCompile(`(?i)thank you for your order`),
		Query:          internal.SearchQuery{From: []string{"from@notifications.dcsg.com"}, Subject: "Thank you for your order", Exact: true},
		IDRules: []IDRule{
			ElementID(`a[href*="notifications.dcsg.com"]`, `^\d{8,15}$`),
			TextID(`\b(\d{8,15})\b`),
		},
		Locate: func(p *Page, src *Source) []Candidate {
			var out []Candidate
			for _, row := range containers(p, dicksImg, nil, "tr") {
				text := textOf(row)
				out = append(out, Candidate{
					ID:   imageID(row, dicksImg, dicksID),
					Name: util.FirstNonEmpty(firstText(row, "a b", nil), firstText(row, "b", longerThan(5))),
					Size: capture(dicksSize, text),
					Qty:  capture(dicksQty, text),
				})
			}
			return out
		},
		Sizes:            sneakerSizes,
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		RetailerPatterns: []string{"dick", "dicks"},
	}
}

func hibbett() *Source {
	return &Source{
		Name:           "hibbett",
		Kind:           internal.KindOrder,
		Senders:        []string{"hibbett@email.hibbett.com"},
		SenderPatterns: []string{"hibbett"},
		Subject:        regexp.MustCompile(`(?i)confirmation of your order`),
		Query:          internal.SearchQuery{From: []string{"hibbett@email.hibbett.com"}, Subject: "Confirmation of your Order", Exact: true},
		IDRules: []IDRule{
			TextID(`#(\d{13,15})\b`),
			ElementID(`a[href*="hibbett.com"]`, `^\d{13,15}$`),
			TextID(`(?i)Order\s*#?\s*(\d{13,15})`),
		},
		Locate: func(p *Page, src *Source) []Candidate {
			var out []Candidate
			for _, row := range containers(p, hibbettImg, nil, "tr") {
				text := textOf(row)
				out = append(out, Candidate{
					ID:   imageID(row, hibbettImg, hibbettID),
					Name: hibbettName(row),
					Size: capture(hibbettSize, text),
					Qty:  capture(hibbettQty, text),
				})
			}
			return out
		},
		Sizes:            sneakerSizes,
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		RetailerPatterns: []string{"hibbett"},
	}
}

func hibbettName(row *goquery.Selection) string {
	name := firstText(row, "td", func(t string) bool {
		if len(t) <= 10 {
			return false
		}
		lower := strings.ToLower(t)
		for _, w := range hibbettWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	})
	return strings.TrimSpace(hibbettCut.ReplaceAllString(name, ""))
}

func finishline() *Source {
	keep := func(src string) bool {
		return strings.Contains(src, "media.finishline.com/s/finishline/") && strings.Contains(src, "?$default$")
	}
	return &Source{
		Name:           "finishline",
		Kind:           internal.KindOrder,
		Senders:        []string{"finishline@notifications.finishline.com"},
		SenderPatterns: []string{"finishline"},
		Subject:        regexp.MustCompile(`(?i)your order is official!`),
		Query:          internal.SearchQuery{From: []string{"finishline@notifications.finishline.com"}, Subject: "your order is official!", Exact: true},
		IDRules: []IDRule{
			ElementID("a.link", `^\d{8,}$`),
			TextID(`(?i)Order\s+Number\s*:?\s*(\d{8,})`),
			TextID(`(?i)Order\s*#\s*:?\s*([A-Z0-9-]+)`),
		},
		Locate: func(p *Page, src *Source) []Candidate {
			var out []Candidate
			for _, box := range containers(p, "img", keep, "table") {
				c := Candidate{ID: imageID(box, "img", finishlineID)}
				box.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
					class, _ := td.Attr("class")
					if finishlineBold.MatchString(class) {
						c.Name = util.NormalizeSpaces(td.Text())
						return false
					}
					return true
				})
				box.Find("td.orderDetails").Each(func(_ int, td *goquery.Selection) {
					t := util.NormalizeSpaces(td.Text())
					lower := strings.ToLower(t)
					switch {
					case strings.HasPrefix(lower, "size:"):
						c.Size = strings.TrimSpace(t[len("size:"):])
					case strings.HasPrefix(lower, "quantity:"):
						c.Qty = strings.TrimSpace(t[len("quantity:"):])
					}
				})
				out = append(out, c)
			}
			return out
		},
		Sizes:            sneakerSizes,
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		RetailerPatterns: []string{"finish line", "finishline"},
	}
}

func shoepalace() *Source {
	keep := func(src string) bool {
		lower := strings.ToLower(src)
		for _, part := range spImgParts {
			if !strings.Contains(lower, part) {
				return false
			}
		}
		for _, skip := range spImgSkip {
			if strings.Contains(lower, skip) {
				return false
			}
		}
		return true
	}
	return &Source{
		Name:           "shoepalace",
		Kind:           internal.KindOrder,
		Senders:        []string{"store+8523376@t.shopifyemail.com"},
		SenderPatterns: []string{"shoe palace", "shoepalace"},
		Subject:        regexp.MustCompile(`(?i)confirmed`),
		Query:          internal.SearchQuery{From: []string{"store+8523376@t.shopifyemail.com"}, Subject: "confirmed"},
		IDRules:        []IDRule{SubjectID(`(?i)Order\s+#SP(\d+)`)},
		Locate: func(p *Page, src *Source) []Candidate {
			var out []Candidate
			for _, row := range containers(p, "img", keep, "tr") {
				full := ""
				row.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
					style, _ := td.Attr("style")
					if strings.Contains(style, "Josefin Sans") && strings.Contains(style, "font-size: 18px") {
						full = util.NormalizeSpaces(td.Text())
						return false
					}
					return true
				})
				if full == "" {
					continue
				}
				base, size := full, ""
				if i := strings.LastIndex(full, " - "); i >= 0 {
					base, size = strings.TrimSpace(full[:i]), strings.TrimSpace(full[i+3:])
				}
				out = append(out, Candidate{
					ID:   shoepalaceID(base),
					Name: base,
					Size: size,
					Qty:  capture(spQty, textOf(row)),
				})
			}
			return out
		},
		Sizes:            util.SizeRange{Min: 2, Max: 20, Youth: true, Letters: true},
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		DedupeItems:      true,
		RetailerPatterns: []string{"shoe palace", "shoepalace"},
	}
}

// shoepalaceID is "SP-" plus the product name without colorway or sale tag.
func shoepalaceID(name string) string {
	plain := spParens.ReplaceAllString(name, " ")
	plain = strings.ReplaceAll(plain, " Final Sale", "")
	plain = util.NormalizeSpaces(plain)
	if plain == "" {
		return ""
	}
	return "SP-" + plain
}

func shopsimon() *Source {
	return &Source{
		Name:           "shopsimon",
		Kind:           internal.KindOrder,
		Senders:        []string{"onlinesupport@shopsimon.com"},
		SenderPatterns: []string{"shopsimon"},
		Subject:        regexp.MustCompile(`(?i)your shopsimon order is confirmed`),
		Query:          internal.SearchQuery{From: []string{"onlinesupport@shopsimon.com"}, Subject: "your shopsimon order is confirmed", Exact: true},
		IDRules: []IDRule{
			SubjectID(`(?i)-\s*(SPO\d+)`),
			TextID(`(?i)Order\s+(?:Number|#)\s*:?\s*(SPO\d+)`),
			TextID(`(?i)\b(SPO\d{8,})\b`),
		},
		Locate: func(p *Page, src *Source) []Candidate {
			rows := p.DOM.Find("tr.order-list__item")
			if rows.Length() == 0 {
				rows = p.DOM.Find("span.order-list__item-title").Closest("tr")
			}
			var out []Candidate
			rows.Each(func(_ int, row *goquery.Selection) {
				title := util.NormalizeSpaces(row.Find("span.order-list__item-title").First().Text())
				if title == "" {
					return
				}
				out = append(out, shopsimonItem(title))
			})
			return out
		},
		Sizes:            util.SizeRange{Min: 2, Max: 20, Youth: true, Letters: true},
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		RetailerPatterns: []string{"shopsimon", "shop simon"},
	}
}

// shopsimonItem parses "Name - US 7 / color / color× 3". Quantity is
// always 1; the multiplier belongs to the item id.
func shopsimonItem(title string) Candidate {
	name := capture(simonName, title)
	if name == "" {
		name = strings.TrimSpace(strings.SplitN(title, " - ", 2)[0])
	}
	size := capture(simonSize, title)
	if size == "" {
		size = capture(simonSizeLoose, title)
	}
	size = strings.ReplaceAll(size, " ", "")
	id := util.Slugify(name)
	if mult := capture(simonMult, title); mult != "" && id != "" {
		id += "-" + mult
	}
	return Candidate{ID: id, Name: name, Size: size, Qty: "1"}
}

func snipes() *Source {
	return &Source{
		Name:           "snipes",
		Kind:           internal.KindOrder,
		Senders:        []string{"no-reply@snipesusa.com"},
		SenderPatterns: []string{"snipes"},
		Subject:        regexp.MustCompile(`(?i)confirmation of your snipes order`),
		Query:          internal.SearchQuery{From: []string{"no-reply@snipesusa.com"}, Subject: "confirmation of your snipes order", Exact: true},
		IDRules:        []IDRule{SubjectID(`(?i)Order\s+#(SNP\d+)`)},
		Locate: func(p *Page, src *Source) []Candidate {
			var out []Candidate
			seen := map[any]bool{}
			p.DOM.Find("td.tablecell-image-wrapper").Each(func(_ int, cell *goquery.Selection) {
				row := cell.Closest("tr")
				if row.Length() == 0 || seen[row.Nodes[0]] {
					return
				}
				seen[row.Nodes[0]] = true
				text := textOf(row)
				name := ""
				row.Find("p").EachWithBreak(func(_ int, para *goquery.Selection) bool {
					style, _ := para.Attr("style")
					if strings.Contains(style, "font-weight: bold") {
						name = util.NormalizeSpaces(para.Text())
						return false
					}
					return true
				})
				size := capture(snipesSize, text)
				if size == "" {
					size = capture(snipesSizeAlt, text)
				}
				out = append(out, Candidate{
					ID:   capture(snipesSKU, text),
					Name: name,
					Size: size,
					Qty:  capture(snipesQty, text),
				})
			})
			return out
		},
		Sizes:            util.SizeRange{Min: 2, Max: 20, Youth: true, Letters: true},
		QtyMax:           defaultQtyMax,
		QtyDefault:       true,
		DedupeItems:      true,
		RetailerPatterns: []string{"snipes"},
	}
}
