package upgrade

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// RawOption is an upgrade-option record as the catalog source delivers it.
type RawOption struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	Size          string `json:"size"`
	Label         string `json:"label"`
	Price         int64  `json:"price"`
	Applicability string `json:"applicability"`
	GenMin        *int   `json:"gen_min,omitempty"`
	GenMax        *int   `json:"gen_max,omitempty"`
	Active        bool   `json:"active"`
	DisplayOrder  *int   `json:"display_order,omitempty"`
}

// LoadCatalog validates raw records into upgrade options.
//
// Inactive records are skipped. Records with an unknown kind, an unparseable
// or non-positive size, a negative price or an inverted generation range are
// dropped and reported as warnings. Records without a display order get their
// input index. The result is sorted by display order, then capacity.
func LoadCatalog(raw []RawOption) ([]UpgradeOption, []Warning) {
	options := make([]UpgradeOption, 0, len(raw))
	var warnings []Warning

	for i, r := range raw {
		if !r.Active {
			continue
		}

		opt, w := normalize(r, i)
		if w != nil {
			warnings = append(warnings, *w)
			continue
		}
		options = append(options, opt)
	}

	slices.SortStableFunc(options, func(a, b UpgradeOption) int {
		if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Capacity, b.Capacity)
	})

	return options, warnings
}

func normalize(r RawOption, index int) (UpgradeOption, *Warning) {
	kind, ok := ParseKind(r.Kind)
	if !ok {
		return UpgradeOption{}, &Warning{
			Code:     WarnUnknownKind,
			OptionID: r.ID,
			Message:  fmt.Sprintf("unknown option kind %q", r.Kind),
		}
	}

	capacity, ok := ParseCapacity(r.Size)
	if !ok {
		return UpgradeOption{}, &Warning{
			Code:     WarnMalformedCapacity,
			OptionID: r.ID,
			Message:  fmt.Sprintf("cannot parse capacity from %q", r.Size),
		}
	}

	if r.Price < 0 {
		return UpgradeOption{}, &Warning{
			Code:     WarnNegativePrice,
			OptionID: r.ID,
			Message:  fmt.Sprintf("negative price %d", r.Price),
		}
	}

	var gr *GenerationRange
	if r.GenMin != nil || r.GenMax != nil {
		gr = &GenerationRange{}
		if r.GenMin != nil {
			gr.Min = *r.GenMin
		}
		if r.GenMax != nil {
			hi := *r.GenMax
			gr.Max = &hi
		}
		if gr.Max != nil && gr.Min > *gr.Max {
			return UpgradeOption{}, &Warning{
				Code:     WarnInvalidGenerationRange,
				OptionID: r.ID,
				Message:  fmt.Sprintf("generation range %s is inverted", gr),
			}
		}
	}

	applicability := strings.ToLower(strings.TrimSpace(r.Applicability))
	if applicability == "" {
		applicability = ApplicabilityAll
	}

	label := strings.TrimSpace(r.Label)
	if label == "" {
		label = FormatCapacity(capacity)
	}

	order := index
	if r.DisplayOrder != nil {
		order = *r.DisplayOrder
	}

	return UpgradeOption{
		ID:              r.ID,
		Kind:            kind,
		Capacity:        capacity,
		Label:           label,
		BasePrice:       r.Price,
		Applicability:   applicability,
		GenerationRange: gr,
		DisplayOrder:    order,
	}, nil
}
