package inventory

import (
	"math"
	"strconv"
	"strings"
)

// IsCableCategory reports whether category names the cable category,
// ignoring case and surrounding whitespace.
func IsCableCategory(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), CableCategory)
}

// ParseCableEnds splits "A-B" at the first dash. A value without a dash is
// a single end A.
func ParseCableEnds(value string) (endA, endB string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	a, b, found := strings.Cut(value, "-")
	if !found {
		return value, ""
	}
	return strings.TrimSpace(a), strings.TrimSpace(b)
}

// BuildCableEnds joins two ends, dropping whichever is blank.
func BuildCableEnds(endA, endB string) string {
	left := strings.TrimSpace(endA)
	right := strings.TrimSpace(endB)
	switch {
	case left != "" && right != "":
		return left + "-" + right
	case left != "":
		return left
	default:
		return right
	}
}

// NormalizeCableEnds orders the two ends case-insensitively so "USB-C-HDMI"
// and "HDMI-USB-C" describe the same cable. Incomplete values are only trimmed.
func NormalizeCableEnds(value string) string {
	endA, endB := ParseCableEnds(value)
	if endA == "" || endB == "" {
		return strings.TrimSpace(value)
	}
	if strings.ToLower(endB) < strings.ToLower(endA) {
		endA, endB = endB, endA
	}
	return endA + "-" + endB
}

// HasCompleteCableEnds reports whether both ends are present.
func HasCompleteCableEnds(value string) bool {
	endA, endB := ParseCableEnds(value)
	return endA != "" && endB != ""
}

// FormatCableEnds returns the normalized "A-B" form, or the trimmed input
// when it is incomplete.
func FormatCableEnds(value string) string {
	endA, endB := ParseCableEnds(NormalizeCableEnds(value))
	if endA != "" && endB != "" {
		return endA + "-" + endB
	}
	return strings.TrimSpace(value)
}

// NormalizeCableLength renders a length with a single " ft" suffix:
// "6", "6ft" and "6 FT" all become "6 ft". Blank stays blank.
func NormalizeCableLength(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasSuffix(lower, " ft"):
		return strings.TrimSpace(raw[:len(raw)-3]) + " ft"
	case strings.HasSuffix(lower, "ft"):
		return strings.TrimSpace(raw[:len(raw)-2]) + " ft"
	default:
		return raw + " ft"
	}
}

// ParseQuantity reads a non-negative whole quantity, rounding down.
// Non-numeric or negative input yields fallback.
func ParseQuantity(value string, fallback int) int {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	rounded := math.Floor(n)
	if rounded < 0 {
		return fallback
	}
	return int(rounded)
}

// SameCable reports whether two items are the same cable stock line:
// both cables with matching normalized ends and length.
func SameCable(a, b Item) bool {
	if !IsCableCategory(a.Category) || !IsCableCategory(b.Category) {
		return false
	}
	return strings.EqualFold(NormalizeCableEnds(a.Make), NormalizeCableEnds(b.Make)) &&
		strings.EqualFold(NormalizeCableLength(a.Model), NormalizeCableLength(b.Model))
}
