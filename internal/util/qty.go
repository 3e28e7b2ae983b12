package util

import (
	"regexp"
	"strconv"
	"strings"
)

var reSignedInt = regexp.MustCompile(`^[-+]?\d+$`)

// ParseQuantity parses a whole-number quantity. Signs are kept so shipment
// adjustments survive.
func ParseQuantity(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if !reSignedInt.MatchString(s) {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PlausibleQuantity reports whether raw is an order quantity in [1, max].
func PlausibleQuantity(raw string, max int) bool {
	v, ok := ParseQuantity(raw)
	if !ok || strings.HasPrefix(strings.TrimSpace(raw), "-") {
		return false
	}
	return v >= 1 && v <= max
}
