package llm

import (
	"regexp"
	"strconv"
	"strings"
)

// A run of at least ten digits, with interior whitespace permitted.
var reDigitRun = regexp.MustCompile(`\b\d[\d\s]{9,}\b`)

// ApplyFallback scans the original document text for a long digit run and
// fills the single declared field whose display name contains keyword
// (case-insensitive). It must only be called when every field in rec is nil;
// it reports whether a field was filled.
func ApplyFallback(rec Record, rawText string, fields FieldSpecSet, keyword string) bool {
	if keyword == "" {
		return false
	}
	target, ok := fallbackField(fields, keyword)
	if !ok {
		return false
	}
	digits := findDigitRun(rawText)
	if digits == "" {
		return false
	}
	switch target.Type {
	case FieldInteger:
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return false
		}
		rec.Set(target.Key, n)
	default:
		rec.Set(target.Key, digits)
	}
	return true
}

// fallbackField picks the first declared field whose display name contains
// the configured keyword.
func fallbackField(fields FieldSpecSet, keyword string) (FieldSpec, bool) {
	kw := strings.ToLower(keyword)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f.DisplayName), kw) {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// findDigitRun returns the first contiguous digit string of length >= 10
// recoverable from the text, interior whitespace stripped.
func findDigitRun(text string) string {
	for _, m := range reDigitRun.FindAllString(text, -1) {
		digits := keepDigits(m)
		if len(digits) >= 10 {
			return digits
		}
	}
	return ""
}
