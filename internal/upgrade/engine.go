package upgrade

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKindMismatch is returned when an option is passed to the selector of the other kind.
	ErrKindMismatch = errors.New("option kind does not match selection")
	// ErrStaleOption is returned for options that are not applicable to the product,
	// typically because the catalog changed after the options were listed.
	ErrStaleOption = errors.New("option is not applicable to this product")
)

// State of a customization session.
type State string

const (
	StateIdle            State = "idle"
	StateRAMSelected     State = "ram_selected"
	StateStorageSelected State = "storage_selected"
	StateBothSelected    State = "both_selected"
)

// Snapshot is the derived view of a configuration.
type Snapshot struct {
	State           State          `json:"state"`
	SelectedRAM     *UpgradeOption `json:"selected_ram,omitempty"`
	SelectedStorage *UpgradeOption `json:"selected_storage,omitempty"`
	RAMPrice        int64          `json:"ram_price"`
	StoragePrice    int64          `json:"storage_price"`
	AdditionalCost  int64          `json:"additional_cost"`
	BasePrice       int64          `json:"base_price"`
	TotalPrice      int64          `json:"total_price"`
	RAMLabel        string         `json:"ram_label"`
	StorageLabel    string         `json:"storage_label"`
}

// OptionKeys returns the keys of the selected options, RAM first.
func (s Snapshot) OptionKeys() []string {
	keys := make([]string, 0, 2)
	if s.SelectedRAM != nil {
		keys = append(keys, s.SelectedRAM.Key())
	}
	if s.SelectedStorage != nil {
		keys = append(keys, s.SelectedStorage.Key())
	}
	return keys
}

// Listener receives the snapshot after every accepted change.
type Listener func(Snapshot)

// ConfiguratorOption customizes a Configurator.
type ConfiguratorOption func(*Configurator)

// WithWarningHandler receives the data-quality warnings found while building
// the configurator, such as negative price overrides.
func WithWarningHandler(fn func(Warning)) ConfiguratorOption {
	return func(c *Configurator) {
		c.warn = fn
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) ConfiguratorOption {
	return func(c *Configurator) {
		c.listeners = append(c.listeners, l)
	}
}

// Configurator holds the selection of one customization session: at most one
// RAM and at most one storage upgrade. It is not safe for concurrent use; each
// session owns its own instance.
type Configurator struct {
	product ProductSpec
	ram     []UpgradeOption
	storage []UpgradeOption

	selectedRAM     *UpgradeOption
	selectedStorage *UpgradeOption

	listeners []Listener
	warn      func(Warning)
}

// NewConfigurator filters catalog down to the upgrades applicable to product.
// The catalog slice is not retained.
func NewConfigurator(product ProductSpec, catalog []UpgradeOption, opts ...ConfiguratorOption) *Configurator {
	c := &Configurator{
		product: product,
		ram:     FilterApplicable(catalog, product, KindRAM),
		storage: FilterApplicable(catalog, product, KindSSD),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.warn != nil {
		for _, set := range [][]UpgradeOption{c.ram, c.storage} {
			for _, o := range set {
				if w := CheckOverride(o, product.PriceOverrides); w != nil {
					c.warn(*w)
				}
			}
		}
	}
	return c
}

// Product returns the product being configured.
func (c *Configurator) Product() ProductSpec {
	return c.product
}

// Options returns a copy of the applicable options of the given kind.
func (c *Configurator) Options(kind Kind) []UpgradeOption {
	switch kind {
	case KindRAM:
		return append([]UpgradeOption(nil), c.ram...)
	case KindSSD:
		return append([]UpgradeOption(nil), c.storage...)
	}
	return nil
}

// Lookup finds an applicable option by kind and id.
func (c *Configurator) Lookup(kind Kind, id int64) (UpgradeOption, bool) {
	set := c.storage
	if kind == KindRAM {
		set = c.ram
	}
	for _, o := range set {
		if o.ID == id {
			return o, true
		}
	}
	return UpgradeOption{}, false
}

// OnChange registers a listener for accepted changes.
func (c *Configurator) OnChange(l Listener) {
	if l != nil {
		c.listeners = append(c.listeners, l)
	}
}

// SelectRAM selects option as the RAM upgrade, or clears the RAM selection
// when option is already selected. A rejected call leaves the state unchanged
// and returns the current snapshot with the reason.
func (c *Configurator) SelectRAM(option UpgradeOption) (Snapshot, error) {
	return c.toggle(KindRAM, option, &c.selectedRAM)
}

// SelectStorage is SelectRAM for the storage upgrade.
func (c *Configurator) SelectStorage(option UpgradeOption) (Snapshot, error) {
	return c.toggle(KindSSD, option, &c.selectedStorage)
}

func (c *Configurator) toggle(kind Kind, option UpgradeOption, slot **UpgradeOption) (Snapshot, error) {
	if option.Kind != kind {
		return c.Result(), fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, option.Kind, kind)
	}

	known, ok := c.Lookup(kind, option.ID)
	if !ok {
		return c.Result(), fmt.Errorf("%w: %s", ErrStaleOption, option.Key())
	}

	if *slot != nil && (*slot).ID == known.ID {
		*slot = nil
	} else {
		*slot = &known
	}

	return c.notify(), nil
}

// Reset clears both selections.
func (c *Configurator) Reset() Snapshot {
	c.selectedRAM = nil
	c.selectedStorage = nil
	return c.notify()
}

// State reports which selections are present.
func (c *Configurator) State() State {
	switch {
	case c.selectedRAM != nil && c.selectedStorage != nil:
		return StateBothSelected
	case c.selectedRAM != nil:
		return StateRAMSelected
	case c.selectedStorage != nil:
		return StateStorageSelected
	}
	return StateIdle
}

// Result computes the current snapshot. It has no side effects.
func (c *Configurator) Result() Snapshot {
	s := Snapshot{
		State:        c.State(),
		BasePrice:    c.product.BasePrice,
		RAMLabel:     c.product.RAMText,
		StorageLabel: c.product.StorageText,
	}

	if c.selectedRAM != nil {
		o := *c.selectedRAM
		s.SelectedRAM = &o
		s.RAMPrice = ResolvePrice(o, c.product.PriceOverrides)
		s.RAMLabel = o.Label
	}
	if c.selectedStorage != nil {
		o := *c.selectedStorage
		s.SelectedStorage = &o
		s.StoragePrice = ResolvePrice(o, c.product.PriceOverrides)
		s.StorageLabel = storageLabel(o.Label, c.product.storageMedium())
	}

	s.AdditionalCost = s.RAMPrice + s.StoragePrice
	s.TotalPrice = s.BasePrice + s.AdditionalCost
	return s
}

func (c *Configurator) notify() Snapshot {
	s := c.Result()
	for _, l := range c.listeners {
		l(s)
	}
	return s
}

func storageLabel(label, medium string) string {
	if strings.Contains(strings.ToUpper(label), strings.ToUpper(medium)) {
		return label
	}
	return label + " " + medium
}
