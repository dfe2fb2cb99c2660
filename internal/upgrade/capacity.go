package upgrade

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	capacityPattern    = regexp.MustCompile(`(?i)(-?\d+(?:[.,]\d+)*)\s*(tb|gb)?`)
	generationPattern  = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)\s*gen(?:eration)?\b|\bgen(?:eration)?\s*(\d{1,2})\b`)
	memoryClassPattern = regexp.MustCompile(`(?i)ddr\s*([345])`)
)

// ParseCapacity extracts a capacity in GB from free text such as "8GB DDR4",
// "512 GB SSD" or "1TB NVMe". TB values are multiplied by 1024; a bare number
// is taken as GB only when the text has no number with a unit, so
// "DDR4 8GB" yields 8. Commas are thousands separators ("1,000GB"); any
// other comma is ambiguous and rejected. It returns false for text without
// a positive number and for sizes that are not whole gigabytes, such as
// "0.5GB".
func ParseCapacity(text string) (int, bool) {
	matches := capacityPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	m := matches[0]
	for _, candidate := range matches {
		if candidate[2] != "" {
			m = candidate
			break
		}
	}

	raw, ok := stripThousands(m[1])
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}

	if strings.EqualFold(m[2], "tb") {
		v *= 1024
	}

	gb := math.Round(v)
	if gb < 1 || math.Abs(v-gb) > 1e-9 {
		return 0, false
	}
	return int(gb), true
}

// stripThousands removes thousands separators from a number like "2,048".
// Every group after the first comma must have exactly three digits.
func stripThousands(raw string) (string, bool) {
	if !strings.Contains(raw, ",") {
		return raw, true
	}

	groups := strings.Split(raw, ",")
	head := strings.TrimPrefix(groups[0], "-")
	if len(head) == 0 || len(head) > 3 || strings.Contains(head, ".") {
		return "", false
	}
	for i, g := range groups[1:] {
		digits := g
		if i == len(groups)-2 {
			digits, _, _ = strings.Cut(g, ".")
		}
		if len(digits) != 3 || strings.Contains(digits, ".") {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// ParseGeneration extracts a processor generation from text like
// "Intel Core i5 8th Gen" or "Gen 11". It returns nil when none is found.
func ParseGeneration(text string) *int {
	m := generationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	gen, err := strconv.Atoi(raw)
	if err != nil || gen <= 0 {
		return nil
	}
	return &gen
}

// ParseMemoryClass returns ddr3, ddr4 or ddr5 when the text names one
// (including LPDDR variants), or an empty string.
func ParseMemoryClass(text string) string {
	m := memoryClassPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "ddr" + m[1]
}

// FormatCapacity renders a GB capacity the way catalog labels do: whole
// terabytes as "1TB", everything else as "512GB".
func FormatCapacity(gb int) string {
	if gb >= 1024 && gb%1024 == 0 {
		return fmt.Sprintf("%dTB", gb/1024)
	}
	return fmt.Sprintf("%dGB", gb)
}
