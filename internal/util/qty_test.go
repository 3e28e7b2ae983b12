package util

import "testing"

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{name: "plain", input: "2", want: 2, ok: true},
		{name: "padded", input: " 3 ", want: 3, ok: true},
		{name: "negative adjustment", input: "-1", want: -1, ok: true},
		{name: "zero", input: "0", want: 0, ok: true},
		{name: "decimal rejected", input: "1.5", ok: false},
		{name: "text rejected", input: "Qty", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseQuantity(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestPlausibleQuantity(t *testing.T) {
	if !PlausibleQuantity("1", 20) || !PlausibleQuantity("20", 20) {
		t.Fatal("bounds should be accepted")
	}
	if PlausibleQuantity("0", 20) || PlausibleQuantity("21", 20) || PlausibleQuantity("-2", 20) {
		t.Fatal("out of range accepted")
	}
}
