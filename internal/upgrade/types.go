// Package upgrade resolves which RAM and storage upgrades a product can take,
// what they cost for that product, and what the product looks like once they
// are applied. The package performs no I/O; callers supply the catalog and the
// product and decide what to do with warnings and results.
package upgrade

import (
	"fmt"
	"strings"
)

// Kind identifies the component an upgrade option replaces.
type Kind string

const (
	KindRAM Kind = "ram"
	KindSSD Kind = "ssd"
)

// ParseKind accepts the usual spellings found in catalog data ("RAM", "ssd", "storage").
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ram", "memory":
		return KindRAM, true
	case "ssd", "storage":
		return KindSSD, true
	}
	return "", false
}

// ProductKind is the product family tag.
type ProductKind string

const (
	ProductLaptop       ProductKind = "laptop"
	ProductChromebook   ProductKind = "chromebook"
	ProductAppleSilicon ProductKind = "apple-silicon"
)

// ApplicabilityAll marks an option as available to every product.
const ApplicabilityAll = "all"

// Memory classes used both as product attributes and as applicability tags.
const (
	MemoryDDR3 = "ddr3"
	MemoryDDR4 = "ddr4"
	MemoryDDR5 = "ddr5"
)

// GenerationRange is an inclusive bound on processor generation.
// A nil Max means unbounded above.
type GenerationRange struct {
	Min int  `json:"min"`
	Max *int `json:"max,omitempty"`
}

// Contains reports whether gen falls inside the range.
func (r GenerationRange) Contains(gen int) bool {
	if gen < r.Min {
		return false
	}
	return r.Max == nil || gen <= *r.Max
}

func (r GenerationRange) String() string {
	if r.Max == nil {
		return fmt.Sprintf("[%d, +inf)", r.Min)
	}
	return fmt.Sprintf("[%d, %d]", r.Min, *r.Max)
}

// UpgradeOption is a validated catalog entry. Values returned by LoadCatalog
// are never mutated by this package and may be shared between goroutines.
type UpgradeOption struct {
	ID              int64            `json:"id"`
	Kind            Kind             `json:"kind"`
	Capacity        int              `json:"capacity_gb"`
	Label           string           `json:"label"`
	BasePrice       int64            `json:"base_price"`
	Applicability   string           `json:"applicability"`
	GenerationRange *GenerationRange `json:"generation_range,omitempty"`
	DisplayOrder    int              `json:"display_order"`
}

// Key returns the stable option key used by price overrides.
func (o UpgradeOption) Key() string {
	return OptionKey(o.Kind, o.ID)
}

// OptionKey formats "{kind}-{id}" with the kind lower-cased.
func OptionKey(kind Kind, id int64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(string(kind)), id)
}

// ProductSpec is the product being customized.
type ProductSpec struct {
	Kind        ProductKind
	MemoryClass string

	// ProcessorGeneration is nil for devices without a generation concept.
	ProcessorGeneration *int

	CurrentRAMCapacity     int
	CurrentStorageCapacity int

	// Original display text, returned unchanged when nothing is selected.
	RAMText     string
	StorageText string

	// StorageMedium suffixes the storage label of a selected SSD option.
	// Empty means "SSD".
	StorageMedium string

	PriceOverrides map[string]int64
	BasePrice      int64
}

func (p ProductSpec) currentCapacity(kind Kind) int {
	c := p.CurrentStorageCapacity
	if kind == KindRAM {
		c = p.CurrentRAMCapacity
	}
	// unknown capacity offers every matching upgrade
	if c < 0 {
		return 0
	}
	return c
}

func (p ProductSpec) storageMedium() string {
	if p.StorageMedium == "" {
		return "SSD"
	}
	return p.StorageMedium
}

// WarningCode classifies a data-quality problem.
type WarningCode string

const (
	WarnUnknownKind            WarningCode = "unknown_kind"
	WarnMalformedCapacity      WarningCode = "malformed_capacity"
	WarnNegativePrice          WarningCode = "negative_price"
	WarnInvalidGenerationRange WarningCode = "invalid_generation_range"
	WarnNegativeOverride       WarningCode = "negative_override"
)

// Warning reports a data-quality problem that was handled by a fallback.
type Warning struct {
	Code     WarningCode `json:"code"`
	OptionID int64       `json:"option_id"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s (option %d): %s", w.Code, w.OptionID, w.Message)
}
