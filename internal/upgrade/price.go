package upgrade

import "fmt"

// ResolvePrice returns the override for the option's key when one exists and
// is non-negative, otherwise the catalog price. A zero override is honoured.
func ResolvePrice(option UpgradeOption, overrides map[string]int64) int64 {
	price, _ := resolvePrice(option, overrides)
	return price
}

// CheckOverride reports a warning when the option has a negative override.
func CheckOverride(option UpgradeOption, overrides map[string]int64) *Warning {
	_, w := resolvePrice(option, overrides)
	return w
}

func resolvePrice(option UpgradeOption, overrides map[string]int64) (int64, *Warning) {
	base := option.BasePrice
	if base < 0 {
		base = 0
	}

	override, ok := overrides[option.Key()]
	if !ok {
		return base, nil
	}
	if override < 0 {
		return base, &Warning{
			Code:     WarnNegativeOverride,
			OptionID: option.ID,
			Message:  fmt.Sprintf("override %d for %s ignored", override, option.Key()),
		}
	}
	return override, nil
}
