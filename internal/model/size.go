package model

import (
	"fmt"
	"strings"
)

// SizeClass is the ordered compute-size ladder for warehouses, smallest
// first. Ordering comparisons (>=) are meaningful.
type SizeClass int

const (
	SizeUnknown SizeClass = iota
	SizeXSmall
	SizeSmall
	SizeMedium
	SizeLarge
	SizeXLarge
	Size2XLarge
	Size3XLarge
	Size4XLarge
)

var sizeClassNames = map[SizeClass]string{
	SizeXSmall:  "X-SMALL",
	SizeSmall:   "SMALL",
	SizeMedium:  "MEDIUM",
	SizeLarge:   "LARGE",
	SizeXLarge:  "X-LARGE",
	Size2XLarge: "2X-LARGE",
	Size3XLarge: "3X-LARGE",
	Size4XLarge: "4X-LARGE",
}

// String returns the canonical label for the size class.
func (s SizeClass) String() string {
	if name, ok := sizeClassNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseSizeClass maps a warehouse size label to its SizeClass. Labels are
// matched case-insensitively and with or without hyphens ("XSMALL",
// "X-Small" and "x-small" are all SizeXSmall).
func ParseSizeClass(label string) (SizeClass, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), "-", ""))
	switch normalized {
	case "XSMALL":
		return SizeXSmall, nil
	case "SMALL":
		return SizeSmall, nil
	case "MEDIUM":
		return SizeMedium, nil
	case "LARGE":
		return SizeLarge, nil
	case "XLARGE":
		return SizeXLarge, nil
	case "2XLARGE", "XXLARGE":
		return Size2XLarge, nil
	case "3XLARGE", "XXXLARGE":
		return Size3XLarge, nil
	case "4XLARGE", "XXXXLARGE":
		return Size4XLarge, nil
	}
	return SizeUnknown, fmt.Errorf("unknown warehouse size %q", label)
}
