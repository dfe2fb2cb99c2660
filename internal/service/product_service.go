package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"upgrade-service/internal/models"
	"upgrade-service/internal/store"
	"upgrade-service/internal/upgrade"
	"upgrade-service/internal/util"

	"go.uber.org/zap"
)

var overrideKeyPattern = regexp.MustCompile(`^(ram|ssd)-[1-9]\d*$`)

// ProductSpecFromModel derives the engine's view of a product from its row.
// Capacities that cannot be parsed become 0 so every matching upgrade is
// offered. An explicit memory_class column wins over the RAM text, and
// apple-silicon products never carry a processor generation.
func ProductSpecFromModel(p *models.Product, storageMedium string) upgrade.ProductSpec {
	kind := upgrade.ProductKind(strings.ToLower(strings.TrimSpace(p.Kind)))
	if kind == "" {
		kind = upgrade.ProductLaptop
	}

	ram, _ := upgrade.ParseCapacity(p.RAM)
	storage, _ := upgrade.ParseCapacity(p.Storage)

	memoryClass := strings.ToLower(strings.TrimSpace(p.MemoryClass))
	if memoryClass == "" {
		memoryClass = upgrade.ParseMemoryClass(p.RAM)
	}

	var gen *int
	if kind != upgrade.ProductAppleSilicon {
		gen = upgrade.ParseGeneration(p.Processor)
	}

	return upgrade.ProductSpec{
		Kind:                   kind,
		MemoryClass:            memoryClass,
		ProcessorGeneration:    gen,
		CurrentRAMCapacity:     ram,
		CurrentStorageCapacity: storage,
		RAMText:                p.RAM,
		StorageText:            p.Storage,
		StorageMedium:          storageMedium,
		PriceOverrides:         p.PriceOverrides,
		BasePrice:              p.Price,
	}
}

// ProductService exposes products and their upgrade price overrides.
type ProductService struct {
	store  ProductStore
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store ProductStore) *ProductService {
	return &ProductService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return getProduct(ctx, s.store, id)
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to list products: %w", err))
	}
	return products, nil
}

// SetPriceOverrides replaces a product's overrides. Keys must be option keys
// ("ram-3", "ssd-12") and values non-negative.
func (s *ProductService) SetPriceOverrides(ctx context.Context, productID int64, overrides models.PriceOverrides) error {
	ctx, span := util.StartSpan(ctx, "ProductService.SetPriceOverrides")
	defer span.End()

	if err := validateOverrides(overrides); err != nil {
		return err
	}

	err := s.store.SetPriceOverrides(ctx, productID, overrides)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return util.FailSpan(span, err)
	}

	s.logger.Info("Price overrides updated",
		zap.Int64("product_id", productID),
		zap.Int("count", len(overrides)))
	return nil
}

func validateOverrides(overrides models.PriceOverrides) error {
	for key, price := range overrides {
		if !overrideKeyPattern.MatchString(key) {
			return fmt.Errorf("%w: key %q is not an option key", ErrInvalidOverrides, key)
		}
		if price < 0 {
			return fmt.Errorf("%w: %s has negative price %d", ErrInvalidOverrides, key, price)
		}
	}
	return nil
}

func getProduct(ctx context.Context, products ProductStore, id int64) (*models.Product, error) {
	p, err := products.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}
