package upgrade

import (
	"cmp"
	"slices"
	"strings"
)

// FilterApplicable returns the options of the given kind that are real
// upgrades for product: applicable to its family or memory class, inside
// any generation gate, and strictly larger than what the product has now.
// The result is ordered by capacity, then display order, and is never nil.
func FilterApplicable(options []UpgradeOption, product ProductSpec, kind Kind) []UpgradeOption {
	current := product.currentCapacity(kind)
	out := make([]UpgradeOption, 0)

	for _, o := range options {
		if o.Kind != kind {
			continue
		}
		if !applies(o.Applicability, product) {
			continue
		}
		if o.GenerationRange != nil {
			if product.ProcessorGeneration == nil || !o.GenerationRange.Contains(*product.ProcessorGeneration) {
				continue
			}
		}
		if o.Capacity <= current {
			continue
		}
		out = append(out, o)
	}

	slices.SortStableFunc(out, func(a, b UpgradeOption) int {
		if c := cmp.Compare(a.Capacity, b.Capacity); c != 0 {
			return c
		}
		return cmp.Compare(a.DisplayOrder, b.DisplayOrder)
	})
	return out
}

func applies(tag string, product ProductSpec) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case tag == "" || tag == ApplicabilityAll:
		return true
	case tag == strings.ToLower(string(product.Kind)):
		return true
	case product.MemoryClass != "" && tag == strings.ToLower(product.MemoryClass):
		return true
	}
	return false
}
