package sources

import "math"

type FragmentKind int

const (
	SizeFragment FragmentKind = iota
	QtyFragment
)

// Fragment is a size or quantity value found somewhere in the document.
// Pos is its index in document order.
type Fragment struct {
	Kind  FragmentKind
	Value string
	Pos   int
}

// Pairer hands out size/quantity pairs to anchors in document order.
// A fragment is consumed at most once.
type Pairer struct {
	frags  []Fragment
	used   map[int]bool
	window int
}

func NewPairer(frags []Fragment, window int) *Pairer {
	return &Pairer{frags: frags, used: map[int]bool{}, window: window}
}

// Next returns the closest unused (size, qty) pair within the window,
// preferring the earliest pair on equal distance. With no such pair it
// falls back to the first unused size and the first unused quantity.
// Either value may be empty when nothing is left.
func (p *Pairer) Next() (size, qty string) {
	return p.next(func(Fragment) bool { return true })
}

// NextIn pairs like Next but only from fragments positioned in [lo, hi).
// When that range holds no unused fragment it behaves like Next.
func (p *Pairer) NextIn(lo, hi int) (size, qty string) {
	in := func(f Fragment) bool { return f.Pos >= lo && f.Pos < hi }
	for i, f := range p.frags {
		if !p.used[i] && in(f) {
			return p.next(in)
		}
	}
	return p.Next()
}

func (p *Pairer) next(in func(Fragment) bool) (size, qty string) {
	bestS, bestQ := -1, -1
	bestDist, bestStart := 0, 0
	for i, s := range p.frags {
		if s.Kind != SizeFragment || p.used[i] || !in(s) {
			continue
		}
		for j, q := range p.frags {
			if q.Kind != QtyFragment || p.used[j] || !in(q) {
				continue
			}
			dist := abs(s.Pos - q.Pos)
			if dist > p.window {
				continue
			}
			start := min(s.Pos, q.Pos)
			if bestS < 0 || dist < bestDist || (dist == bestDist && start < bestStart) {
				bestS, bestQ, bestDist, bestStart = i, j, dist, start
			}
		}
	}
	if bestS >= 0 {
		p.used[bestS] = true
		p.used[bestQ] = true
		return p.frags[bestS].Value, p.frags[bestQ].Value
	}

	for i, f := range p.frags {
		if p.used[i] || !in(f) {
			continue
		}
		if f.Kind == SizeFragment && size == "" {
			size = f.Value
			p.used[i] = true
		}
		if f.Kind == QtyFragment && qty == "" {
			qty = f.Value
			p.used[i] = true
		}
	}
	return size, qty
}

// PairFragments assigns a pair to each of n anchors.
func PairFragments(frags []Fragment, window, n int) [][2]string {
	p := NewPairer(frags, window)
	out := make([][2]string, n)
	for i := range out {
		s, q := p.Next()
		out[i] = [2]string{s, q}
	}
	return out
}

// PairAnchored assigns a pair to each anchor, drawing first on the
// fragments between the anchor and the next one. starts holds the anchor
// positions in the same numbering as the fragments, ascending.
func PairAnchored(frags []Fragment, window int, starts []int) [][2]string {
	p := NewPairer(frags, window)
	out := make([][2]string, len(starts))
	for i, lo := range starts {
		hi := math.MaxInt
		if i+1 < len(starts) {
			hi = starts[i+1]
		}
		s, q := p.NextIn(lo, hi)
		out[i] = [2]string{s, q}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
