package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ordermail/internal/util"
)

var (
	asinColumn = regexp.MustCompile(`^asin\s*#?\s*(\d+)$`)
	sizeColumn = regexp.MustCompile(`^size\s*#?\s*(\d+)$`)
)

// columnIndex maps normalized header names to column positions. Numbered
// ASIN/Size columns are paired by their number.
type columnIndex struct {
	byName map[string]int
	asins  map[int]int
	sizes  map[int]int
}

func buildColumnIndex(headers []string) columnIndex {
	idx := columnIndex{byName: map[string]int{}, asins: map[int]int{}, sizes: map[int]int{}}
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if m := asinColumn.FindStringSubmatch(key); m != nil {
			n, _ := strconv.Atoi(m[1])
			idx.asins[n] = i
			continue
		}
		if m := sizeColumn.FindStringSubmatch(key); m != nil {
			n, _ := strconv.Atoi(m[1])
			idx.sizes[n] = i
			continue
		}
		if _, ok := idx.byName[key]; !ok {
			idx.byName[key] = i
		}
	}
	return idx
}

// cell returns the first non-empty value among the named columns.
func (idx columnIndex) cell(row []string, names ...string) string {
	for _, name := range names {
		i, ok := idx.byName[normalizeHeader(name)]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func (idx columnIndex) has(name string) bool {
	_, ok := idx.byName[normalizeHeader(name)]
	return ok
}

type asinCell struct {
	ASIN string
	Size string
}

// asinPairs reads the numbered ASIN columns in order, each with its
// matching Size column.
func (idx columnIndex) asinPairs(row []string) []asinCell {
	nums := make([]int, 0, len(idx.asins))
	for n := range idx.asins {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var out []asinCell
	for _, n := range nums {
		col := idx.asins[n]
		if col >= len(row) {
			continue
		}
		asin := strings.ToUpper(strings.TrimSpace(row[col]))
		if asin == "" {
			continue
		}
		size := ""
		if sc, ok := idx.sizes[n]; ok && sc < len(row) {
			size = util.NormalizeSize(row[sc])
		}
		out = append(out, asinCell{ASIN: asin, Size: size})
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(util.NormalizeSpaces(h))
}
