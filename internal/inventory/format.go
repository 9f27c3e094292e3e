package inventory

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// isoLayouts are the timestamp shapes the backend emits. Values without a
// zone are UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. ok is false for blank or
// unparseable input.
func ParseTimestamp(iso string) (t time.Time, ok bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, iso); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// SortableTime returns the timestamp in milliseconds, or 0 when unparseable
// so such items sort as the oldest.
func SortableTime(iso string) int64 {
	t, ok := ParseTimestamp(iso)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// FormatDate renders a timestamp for display, returning the input unchanged
// when it cannot be parsed.
func FormatDate(iso string) string {
	t, ok := ParseTimestamp(iso)
	if !ok {
		return iso
	}
	return t.Format("Jan 02, 2006, 15:04")
}

// CapitalizeFirst upper-cases the first letter.
func CapitalizeFirst(value string) string {
	r, size := utf8.DecodeRuneInString(value)
	if size == 0 {
		return value
	}
	return string(unicode.ToUpper(r)) + value[size:]
}

// CapitalizeWords title-cases each whitespace-separated word:
// "  jane  DOE " becomes "Jane Doe".
func CapitalizeWords(value string) string {
	words := strings.Fields(value)
	for i, w := range words {
		words[i] = CapitalizeFirst(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

func trimOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
