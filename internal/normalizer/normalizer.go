// Package normalizer canonicalizes merchant and description strings so that
// downstream similarity comparisons are stable across data sources.
//
// Bank exports decorate merchant names with payment-processor prefixes
// ("SQ *", "TST*"), store numbers ("#123") and inconsistent casing or
// punctuation. Receipt OCR output has its own artifacts. Normalize folds
// both into the same canonical form:
//
//	Normalize("SQ *STARBUCKS")    == "starbucks"
//	Normalize("STARBUCKS #123")   == "starbucks"
//	Normalize("Café Río")         == "cafe rio"
//
// All functions are pure and deterministic; empty or whitespace-only input
// normalizes to the empty string, which callers must treat as an unknown
// merchant (excluded from merchant scoring, never an error).
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// processorPrefixes are payment-processor artifacts stripped from the front
// of a description. Matched longest-first against the lowercased input.
var processorPrefixes = []string{
	"paypal *",
	"paypal*",
	"amzn mktp ",
	"pos debit ",
	"tst* ",
	"tst*",
	"tst *",
	"sq *",
	"sq*",
	"dd *",
	"dd*",
	"py *",
	"pp*",
	"ach ",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a raw merchant or description string: lowercase,
// diacritics folded, payment-processor prefixes removed, punctuation reduced
// to spaces, standalone store-number tokens dropped, whitespace collapsed.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// Fold diacritics to their base letters
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	// Strip a known processor prefix. Single pass; prefixes do not stack in
	// practice and a second artifact would survive tokenization anyway.
	for _, prefix := range processorPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	// Reduce everything but letters, digits and spaces to a space so glued
	// tokens ("STARBUCKS#123") still split
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	// Drop standalone all-digit tokens: store numbers, terminal IDs and
	// reference codes carry no merchant identity
	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if !isAllDigits(f) {
			kept = append(kept, f)
		}
	}

	return strings.Join(kept, " ")
}

// Tokens returns the canonical tokens of a raw string, in order. Used by
// the line-item scorer to search transaction text word by word.
func Tokens(raw string) []string {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// IsUnknown reports whether a raw string normalizes to nothing usable
func IsUnknown(raw string) bool {
	return Normalize(raw) == ""
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
