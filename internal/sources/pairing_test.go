package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func frag(kind FragmentKind, value string, pos int) Fragment {
	return Fragment{Kind: kind, Value: value, Pos: pos}
}

func TestPairFragmentsNearest(t *testing.T) {
	frags := []Fragment{
		frag(SizeFragment, "07.0", 0),
		frag(QtyFragment, "1", 1),
		frag(SizeFragment, "08.0", 2),
		frag(QtyFragment, "2", 3),
	}
	got := PairFragments(frags, 3, 2)
	assert.Equal(t, [][2]string{{"07.0", "1"}, {"08.0", "2"}}, got)
}

func TestPairFragmentsNeverShares(t *testing.T) {
	frags := []Fragment{
		frag(SizeFragment, "10", 0),
		frag(QtyFragment, "1", 1),
		frag(SizeFragment, "10", 2),
		frag(QtyFragment, "1", 3),
	}
	p := NewPairer(frags, 3)
	s1, q1 := p.Next()
	s2, q2 := p.Next()
	s3, q3 := p.Next()
	assert.Equal(t, "10", s1)
	assert.Equal(t, "1", q1)
	assert.Equal(t, "10", s2)
	assert.Equal(t, "1", q2)
	assert.Empty(t, s3)
	assert.Empty(t, q3)
}

func TestPairFragmentsFallsBackOutsideWindow(t *testing.T) {
	frags := []Fragment{
		frag(SizeFragment, "9", 0),
		frag(SizeFragment, "11", 1),
		frag(QtyFragment, "3", 8),
	}
	got := PairFragments(frags, 3, 2)
	assert.Equal(t, [2]string{"9", "3"}, got[0])
	assert.Equal(t, [2]string{"11", ""}, got[1])
}

func TestPairFragmentsPrefersCloserPair(t *testing.T) {
	frags := []Fragment{
		frag(SizeFragment, "6", 0),
		frag(SizeFragment, "7", 2),
		frag(QtyFragment, "4", 3),
	}
	got := PairFragments(frags, 3, 1)
	assert.Equal(t, [2]string{"7", "4"}, got[0])
}

func TestPairAnchoredStaysInSegment(t *testing.T) {
	// anchors at 0 and 2; the first item's size was filtered out
	frags := []Fragment{
		frag(QtyFragment, "1", 1),
		frag(SizeFragment, "9.0", 3),
		frag(QtyFragment, "2", 4),
	}
	got := PairAnchored(frags, 3, []int{0, 2})
	assert.Equal(t, [2]string{"", "1"}, got[0])
	assert.Equal(t, [2]string{"9.0", "2"}, got[1])
}

func TestPairAnchoredFallsBackWhenAnchorsLead(t *testing.T) {
	// all images come before the size and quantity table
	frags := []Fragment{
		frag(SizeFragment, "7", 2),
		frag(QtyFragment, "1", 3),
		frag(SizeFragment, "8", 4),
		frag(QtyFragment, "3", 5),
	}
	got := PairAnchored(frags, 3, []int{0, 1})
	assert.Equal(t, [][2]string{{"7", "1"}, {"8", "3"}}, got)
}
