package service

import (
	"context"
	"testing"

	"upgrade-service/internal/models"
	"upgrade-service/internal/upgrade"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductSpecFromModel(t *testing.T) {
	spec := ProductSpecFromModel(laptopProduct(), "SSD")

	assert.Equal(t, upgrade.ProductLaptop, spec.Kind)
	assert.Equal(t, upgrade.MemoryDDR4, spec.MemoryClass)
	assert.Equal(t, 8, spec.CurrentRAMCapacity)
	assert.Equal(t, 256, spec.CurrentStorageCapacity)
	require.NotNil(t, spec.ProcessorGeneration)
	assert.Equal(t, 8, *spec.ProcessorGeneration)
	assert.Equal(t, int64(40000), spec.BasePrice)
	assert.Equal(t, int64(8500), spec.PriceOverrides["ram-2"])
}

func TestProductSpecFromModelAppleSilicon(t *testing.T) {
	p := &models.Product{
		Kind:      "Apple-Silicon",
		RAM:       "16GB unified memory",
		Storage:   "1TB",
		Processor: "Apple M2 Gen 2",
	}

	spec := ProductSpecFromModel(p, "SSD")

	assert.Equal(t, upgrade.ProductAppleSilicon, spec.Kind)
	assert.Nil(t, spec.ProcessorGeneration)
	assert.Equal(t, 16, spec.CurrentRAMCapacity)
	assert.Equal(t, 1024, spec.CurrentStorageCapacity)
}

func TestProductSpecFromModelUnparsable(t *testing.T) {
	p := &models.Product{RAM: "ask in store", Storage: "", MemoryClass: "DDR5"}

	spec := ProductSpecFromModel(p, "SSD")

	assert.Equal(t, upgrade.ProductLaptop, spec.Kind)
	assert.Equal(t, 0, spec.CurrentRAMCapacity)
	assert.Equal(t, 0, spec.CurrentStorageCapacity)
	assert.Equal(t, upgrade.MemoryDDR5, spec.MemoryClass)
}

func TestSetPriceOverrides(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products)
	ctx := context.Background()

	err := svc.SetPriceOverrides(ctx, 7, models.PriceOverrides{"ram-1": 3500, "ssd-11": 6000})
	require.NoError(t, err)

	p, err := svc.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), p.PriceOverrides["ram-1"])
}

func TestSetPriceOverridesRejectsBadInput(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products)
	ctx := context.Background()

	tests := []struct {
		name      string
		overrides models.PriceOverrides
	}{
		{"unknown kind", models.PriceOverrides{"gpu-1": 100}},
		{"missing id", models.PriceOverrides{"ram-": 100}},
		{"zero id", models.PriceOverrides{"ram-0": 100}},
		{"negative price", models.PriceOverrides{"ssd-3": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetPriceOverrides(ctx, 7, tt.overrides)
			assert.ErrorIs(t, err, ErrInvalidOverrides)
		})
	}
}

func TestSetPriceOverridesUnknownProduct(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products)

	err := svc.SetPriceOverrides(context.Background(), 99, models.PriceOverrides{})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProductNotFound(t *testing.T) {
	f := newFixture()
	svc := NewProductService(f.products)

	_, err := svc.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
