package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reNumericSize = regexp.MustCompile(`^\d{1,2}(?:\.\d{1,2})?$`)
	reYouthSize   = regexp.MustCompile(`^\d{1,2}(?:\.\d)?[YTCW]$`)
	reLetterSize  = regexp.MustCompile(`^(?:X{0,3}[SML]|XX?L|[2-5]XL)$`)
)

// NormalizeSize strips zero padding and a redundant ".0" from numeric sizes:
// "06.0" -> "6", "09.5" -> "9.5", "10.5" -> "10.5". "one size" becomes "OS".
// Non-numeric sizes are trimmed and upper-cased.
func NormalizeSize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	switch strings.ToLower(s) {
	case "one size", "onesize", "os", "osfm", "o/s":
		return "OS"
	}
	if reNumericSize.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	if reYouthSize.MatchString(strings.ToUpper(s)) {
		num := s[:len(s)-1]
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return strconv.FormatFloat(v, 'f', -1, 64) + strings.ToUpper(s[len(s)-1:])
		}
	}
	return strings.ToUpper(s)
}

// NumericSize reports the numeric value of a plain numeric size token.
func NumericSize(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if !reNumericSize.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SizeRange accepts numeric sizes within [Min, Max]. Youth and letter
// shapes are accepted only when enabled.
type SizeRange struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Youth   bool    `yaml:"youth"`
	Letters bool    `yaml:"letters"`
}

var DefaultSizeRange = SizeRange{Min: 2.0, Max: 20.0}

func (r SizeRange) Accepts(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if v, ok := NumericSize(s); ok {
		return v >= r.Min && v <= r.Max
	}
	upper := strings.ToUpper(s)
	if r.Youth && reYouthSize.MatchString(upper) {
		v, err := strconv.ParseFloat(upper[:len(upper)-1], 64)
		return err == nil && v > 0 && v <= r.Max
	}
	if r.Letters {
		if reLetterSize.MatchString(upper) || NormalizeSize(s) == "OS" {
			return true
		}
	}
	return false
}
