package util

import "testing"

func TestCleanText(t *testing.T) {
	if got := CleanText("  Nike&nbsp;Dunk \n Low&amp;High "); got != "Nike Dunk Low&High" {
		t.Fatalf("got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Foot Locker":       "foot-locker",
		"  Champs Sports! ": "champs-sports",
		"Kids--Foot Locker": "kids-foot-locker",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q want %q", in, got, want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Orders@FootLocker.com", "footlocker") {
		t.Fatal("expected match")
	}
	if ContainsFold("orders@champssports.com", "footlocker") {
		t.Fatal("unexpected match")
	}
}
