package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurator_SelectRAM(t *testing.T) {
	c := NewConfigurator(ddr4Laptop(), laptopCatalog())

	require.Len(t, c.Options(KindRAM), 1)
	opt := c.Options(KindRAM)[0]

	snap, err := c.SelectRAM(opt)
	require.NoError(t, err)

	assert.Equal(t, StateRAMSelected, snap.State)
	assert.Equal(t, int64(11500), snap.AdditionalCost)
	assert.Equal(t, int64(46500), snap.TotalPrice)
	assert.Equal(t, "16GB DDR4", snap.RAMLabel)
	assert.Equal(t, "256GB SSD", snap.StorageLabel)
	assert.Equal(t, []string{"ram-3"}, snap.OptionKeys())
}

func TestConfigurator_PriceOverride(t *testing.T) {
	p := ddr4Laptop()
	p.PriceOverrides = map[string]int64{"ram-3": 9500}
	c := NewConfigurator(p, laptopCatalog())

	opt, ok := c.Lookup(KindRAM, 3)
	require.True(t, ok)

	snap, err := c.SelectRAM(opt)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), snap.AdditionalCost)
	assert.Equal(t, int64(44500), snap.TotalPrice)
}

func TestConfigurator_ToggleReturnsToIdle(t *testing.T) {
	c := NewConfigurator(ddr4Laptop(), laptopCatalog())
	opt, _ := c.Lookup(KindRAM, 3)

	_, err := c.SelectRAM(opt)
	require.NoError(t, err)
	snap, err := c.SelectRAM(opt)
	require.NoError(t, err)

	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.SelectedRAM)
	assert.Equal(t, int64(0), snap.AdditionalCost)
	assert.Equal(t, "8GB DDR4", snap.RAMLabel)
}

func TestConfigurator_AtMostOnePerKind(t *testing.T) {
	p := ddr4Laptop()
	p.CurrentRAMCapacity = 4
	c := NewConfigurator(p, laptopCatalog())

	eight, _ := c.Lookup(KindRAM, 2)
	sixteen, _ := c.Lookup(KindRAM, 3)

	_, err := c.SelectRAM(eight)
	require.NoError(t, err)
	snap, err := c.SelectRAM(sixteen)
	require.NoError(t, err)

	require.NotNil(t, snap.SelectedRAM)
	assert.Equal(t, int64(3), snap.SelectedRAM.ID)
	assert.Equal(t, int64(11500), snap.AdditionalCost)
}

func TestConfigurator_BothSelectedAndReset(t *testing.T) {
	catalog := append(laptopCatalog(),
		UpgradeOption{ID: 20, Kind: KindSSD, Capacity: 512, Label: "512GB", BasePrice: 5000, Applicability: ApplicabilityAll},
	)
	c := NewConfigurator(ddr4Laptop(), catalog)

	ram, _ := c.Lookup(KindRAM, 3)
	ssd, ok := c.Lookup(KindSSD, 20)
	require.True(t, ok)

	_, err := c.SelectRAM(ram)
	require.NoError(t, err)
	snap, err := c.SelectStorage(ssd)
	require.NoError(t, err)

	assert.Equal(t, StateBothSelected, snap.State)
	assert.Equal(t, int64(16500), snap.AdditionalCost)
	assert.Equal(t, int64(51500), snap.TotalPrice)
	assert.Equal(t, "512GB SSD", snap.StorageLabel)
	assert.Equal(t, []string{"ram-3", "ssd-20"}, snap.OptionKeys())

	for i := 0; i < 2; i++ {
		snap = c.Reset()
		assert.Equal(t, StateIdle, snap.State)
		assert.Equal(t, int64(0), snap.AdditionalCost)
		assert.Equal(t, int64(35000), snap.TotalPrice)
		assert.Equal(t, "8GB DDR4", snap.RAMLabel)
		assert.Equal(t, "256GB SSD", snap.StorageLabel)
		assert.Equal(t, snap, c.Result())
	}
}

func TestConfigurator_RejectsKindMismatch(t *testing.T) {
	catalog := append(laptopCatalog(),
		UpgradeOption{ID: 20, Kind: KindSSD, Capacity: 512, Label: "512GB", BasePrice: 5000, Applicability: ApplicabilityAll},
	)
	c := NewConfigurator(ddr4Laptop(), catalog)
	ram, _ := c.Lookup(KindRAM, 3)
	ssd, _ := c.Lookup(KindSSD, 20)

	_, err := c.SelectRAM(ram)
	require.NoError(t, err)

	snap, err := c.SelectRAM(ssd)
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Equal(t, StateRAMSelected, snap.State)

	// still usable afterwards
	snap, err = c.SelectStorage(ssd)
	require.NoError(t, err)
	assert.Equal(t, StateBothSelected, snap.State)
}

func TestConfigurator_RejectsStaleOption(t *testing.T) {
	c := NewConfigurator(ddr4Laptop(), laptopCatalog())

	// 8GB is not an upgrade over 8GB, so it was never offered
	notOffered := gatedRAM(2, 8, 6000, 6, 11)
	snap, err := c.SelectRAM(notOffered)
	assert.ErrorIs(t, err, ErrStaleOption)
	assert.Equal(t, StateIdle, snap.State)

	snap, err = c.SelectRAM(UpgradeOption{})
	assert.Error(t, err)
	assert.Equal(t, StateIdle, snap.State)
}

func TestConfigurator_UsesCatalogCopyOfOption(t *testing.T) {
	c := NewConfigurator(ddr4Laptop(), laptopCatalog())

	forged := gatedRAM(3, 16, 1, 6, 11)
	snap, err := c.SelectRAM(forged)
	require.NoError(t, err)
	assert.Equal(t, int64(11500), snap.RAMPrice)
}

func TestConfigurator_NotifiesListeners(t *testing.T) {
	var seen []Snapshot
	c := NewConfigurator(ddr4Laptop(), laptopCatalog(), WithListener(func(s Snapshot) {
		seen = append(seen, s)
	}))
	var also int
	c.OnChange(func(Snapshot) { also++ })

	opt, _ := c.Lookup(KindRAM, 3)
	_, _ = c.SelectRAM(opt)
	_, _ = c.SelectRAM(UpgradeOption{ID: 99, Kind: KindRAM})
	c.Reset()

	require.Len(t, seen, 2)
	assert.Equal(t, StateRAMSelected, seen[0].State)
	assert.Equal(t, StateIdle, seen[1].State)
	assert.Equal(t, 2, also)
}

func TestConfigurator_WarnsOnNegativeOverride(t *testing.T) {
	p := ddr4Laptop()
	p.PriceOverrides = map[string]int64{"ram-3": -500}

	var warnings []Warning
	c := NewConfigurator(p, laptopCatalog(), WithWarningHandler(func(w Warning) {
		warnings = append(warnings, w)
	}))

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnNegativeOverride, warnings[0].Code)

	opt, _ := c.Lookup(KindRAM, 3)
	snap, err := c.SelectRAM(opt)
	require.NoError(t, err)
	assert.Equal(t, int64(11500), snap.AdditionalCost)
}

func TestConfigurator_ChromebookStorageLabel(t *testing.T) {
	p := ProductSpec{
		Kind:                   ProductChromebook,
		CurrentStorageCapacity: 32,
		StorageText:            "32GB eMMC",
		BasePrice:              20000,
	}
	catalog := []UpgradeOption{
		{ID: 10, Kind: KindSSD, Capacity: 64, Label: "64GB", BasePrice: 2000, Applicability: "chromebook"},
		{ID: 11, Kind: KindSSD, Capacity: 128, Label: "128GB", BasePrice: 3500, Applicability: "chromebook"},
		{ID: 12, Kind: KindSSD, Capacity: 256, Label: "256GB", BasePrice: 5500, Applicability: "chromebook"},
	}
	c := NewConfigurator(p, catalog)
	require.Len(t, c.Options(KindSSD), 3)
	assert.Empty(t, c.Options(KindRAM))

	opt, _ := c.Lookup(KindSSD, 11)
	snap, err := c.SelectStorage(opt)
	require.NoError(t, err)
	assert.Equal(t, "128GB SSD", snap.StorageLabel)
	assert.Equal(t, int64(23500), snap.TotalPrice)
}

func TestStorageLabel(t *testing.T) {
	assert.Equal(t, "512GB SSD", storageLabel("512GB", "SSD"))
	assert.Equal(t, "1TB NVMe SSD", storageLabel("1TB NVMe SSD", "SSD"))
	assert.Equal(t, "1TB NVMe", storageLabel("1TB", "NVMe"))
}

func TestConfigurator_TotalNeverBelowBase(t *testing.T) {
	p := ddr4Laptop()
	p.CurrentRAMCapacity = 0
	p.PriceOverrides = map[string]int64{"ram-1": -1, "ram-2": 0}
	c := NewConfigurator(p, laptopCatalog())

	for _, o := range c.Options(KindRAM) {
		for i := 0; i < 3; i++ {
			snap, err := c.SelectRAM(o)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, snap.TotalPrice, p.BasePrice)
		}
	}
}
