package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

var germanThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// parseCount parses an integer quantity that may use German notation
// ("3.644.826", "1.234,0"). Empty values are 0. Fractions are rounded.
func parseCount(s string) (int64, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case germanThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("invalid number %q", s)
	}
	return int64(math.Round(v)), nil
}

// parseDecimal parses a decimal value such as a coordinate. A comma is
// accepted as the decimal separator; thousands separators are not.
// Empty values yield NaN.
func parseDecimal(s string) (float64, error) {
	s = cleanNumber(s)
	if s == "" {
		return math.NaN(), nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), eris.Errorf("invalid decimal %q", s)
	}
	return v, nil
}

func cleanNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
}

// parseFlag interprets common truthy spellings, German included.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "x", "ja", "j", "wahr":
		return true
	}
	return false
}

// normalizeKey strips spreadsheet float artifacts from numeric keys and
// left-pads them with zeros to keyLength (postal codes lose their leading
// zero in spreadsheets).
func normalizeKey(s string, keyLength int) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if keyLength <= 0 || len(s) >= keyLength || !allDigits(s) {
		return s
	}
	return strings.Repeat("0", keyLength-len(s)) + s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
