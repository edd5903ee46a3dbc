// Package parse converts raw scraped field text into typed values.
//
// Parsers never fail: malformed input degrades to an absent value (or zero,
// for review counts) so a single bad field cannot sink an otherwise good
// record.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Default price bounds. A price must fall strictly inside the range.
const (
	DefaultPriceMin = 0
	DefaultPriceMax = 1_000_000
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	decimalRe    = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	integerRe    = regexp.MustCompile(`[0-9]+`)
	// A leading decimal number with a trailing k/m multiplier suffix,
	// e.g. "1.2k" or "3M". Word boundaries keep "5 likes" from matching.
	suffixRe = regexp.MustCompile(`(?i)\b([0-9]+(?:\.[0-9]+)?)\s?([km])\b`)

	currencyReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "")
)

// CleanText trims the string and collapses internal whitespace runs to a
// single space. Absent input yields the empty string.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}

// Price parses a price string using the default bounds.
func Price(s string) (float64, bool) {
	return PriceInRange(s, DefaultPriceMin, DefaultPriceMax)
}

// PriceInRange parses a price string, stripping currency symbols and
// thousands separators. A single hyphen-separated numeric range ("50-100")
// yields the mean of its bounds. Otherwise the first decimal substring is
// taken and accepted only strictly between min and max: zero and negative
// prices are rejected, not clamped.
func PriceInRange(s string, min, max float64) (float64, bool) {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}

	if parts := strings.Split(cleaned, "-"); len(parts) == 2 {
		lo, okLo := firstDecimal(parts[0])
		hi, okHi := firstDecimal(parts[1])
		if okLo && okHi {
			mean := round2((lo + hi) / 2)
			if mean <= min || mean >= max {
				return 0, false
			}
			return mean, true
		}
		// A hyphen without a number on both sides is a negative price
		// (or garbage), not a range.
		return 0, false
	}

	v, ok := firstDecimal(cleaned)
	if !ok || v <= min || v >= max {
		return 0, false
	}
	return round2(v), true
}

// ReviewCount parses a review count. Thousands separators are stripped and
// trailing k/m suffixes multiply the leading decimal by 1e3/1e6. Anything
// unparsable yields 0: review counts have no unknown state, only zero.
func ReviewCount(s string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0
	}

	if m := suffixRe.FindStringSubmatch(cleaned); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "k":
				return int(n * 1_000)
			case "m":
				return int(n * 1_000_000)
			}
		}
	}

	if digits := integerRe.FindString(cleaned); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			return n
		}
	}
	return 0
}

// Rating extracts the first decimal substring and accepts values in [0, 5]
// inclusive, rounded to two decimals. Out-of-range or unparsable input is
// absent.
func Rating(s string) (float64, bool) {
	v, ok := firstDecimal(s)
	if !ok || v < 0 || v > 5 {
		return 0, false
	}
	return round2(v), true
}

func firstDecimal(s string) (float64, bool) {
	match := decimalRe.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
