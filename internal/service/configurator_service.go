package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upgrade-service/internal/models"
	"upgrade-service/internal/store"
	"upgrade-service/internal/upgrade"
	"upgrade-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const finalizeLockTTL = 30 * time.Second

// CatalogProvider supplies the validated upgrade catalog.
type CatalogProvider interface {
	Catalog(ctx context.Context) ([]upgrade.UpgradeOption, error)
}

// ConfiguratorService runs upgrade configurations for products: listings,
// stateless quotes, and sessions that end in an order.
type ConfiguratorService struct {
	products      ProductStore
	catalog       CatalogProvider
	sessions      SessionStore
	orders        OrderStore
	publisher     EventPublisher
	storageMedium string
	logger        *zap.Logger
}

// NewConfiguratorService creates a new configurator service
func NewConfiguratorService(
	products ProductStore,
	catalog CatalogProvider,
	sessions SessionStore,
	orders OrderStore,
	publisher EventPublisher,
	storageMedium string,
) *ConfiguratorService {
	return &ConfiguratorService{
		products:      products,
		catalog:       catalog,
		sessions:      sessions,
		orders:        orders,
		publisher:     publisher,
		storageMedium: storageMedium,
		logger:        util.GetLogger(),
	}
}

// OptionView is an applicable option with its price for one product
type OptionView struct {
	upgrade.UpgradeOption
	Key   string `json:"key"`
	Price int64  `json:"price"`
}

// UpgradeListing lists the upgrades a product can take
type UpgradeListing struct {
	ProductID int64        `json:"product_id"`
	BasePrice int64        `json:"base_price"`
	RAMText   string       `json:"ram"`
	Storage   string       `json:"storage"`
	RAM       []OptionView `json:"ram_options"`
	SSD       []OptionView `json:"storage_options"`
}

// QuoteRequest selects upgrades for a stateless quote
type QuoteRequest struct {
	RAMOptionID     *int64 `json:"ram_option_id"`
	StorageOptionID *int64 `json:"storage_option_id"`
}

// QuoteResponse is the priced configuration for a quote
type QuoteResponse struct {
	ProductID int64            `json:"product_id"`
	Result    upgrade.Snapshot `json:"result"`
	Notices   []string         `json:"notices,omitempty"`
}

// SessionView is the state of a configuration session
type SessionView struct {
	ID        string           `json:"id"`
	ProductID int64            `json:"product_id"`
	Result    upgrade.Snapshot `json:"result"`
	Notices   []string         `json:"notices,omitempty"`
}

// FinalizeRequest turns a session into an order
type FinalizeRequest struct {
	UserID         int64  `json:"user_id" binding:"required"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// FinalizeResponse represents the order created from a session
type FinalizeResponse struct {
	OrderID     int64            `json:"order_id"`
	Status      string           `json:"status"`
	TotalAmount int64            `json:"total_amount"`
	Result      *upgrade.Snapshot `json:"result,omitempty"`
}

// build loads the product and catalog and returns a configurator for them.
func (s *ConfiguratorService) build(ctx context.Context, productID int64) (*upgrade.Configurator, error) {
	start := time.Now()
	defer func() {
		util.ConfigurationLatency.Observe(time.Since(start).Seconds())
	}()

	product, err := getProduct(ctx, s.products, productID)
	if err != nil {
		return nil, err
	}

	options, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	spec := ProductSpecFromModel(product, s.storageMedium)
	return upgrade.NewConfigurator(spec, options, upgrade.WithWarningHandler(func(w upgrade.Warning) {
		util.LogWarning(s.logger, w, zap.Int64("product_id", productID))
	})), nil
}

// ListUpgrades returns the applicable upgrades of a product with their effective prices
func (s *ConfiguratorService) ListUpgrades(ctx context.Context, productID int64) (*UpgradeListing, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.ListUpgrades", attribute.Int64("product.id", productID))
	defer span.End()

	cfg, err := s.build(ctx, productID)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	product := cfg.Product()
	return &UpgradeListing{
		ProductID: productID,
		BasePrice: product.BasePrice,
		RAMText:   product.RAMText,
		Storage:   product.StorageText,
		RAM:       optionViews(cfg.Options(upgrade.KindRAM), product.PriceOverrides),
		SSD:       optionViews(cfg.Options(upgrade.KindSSD), product.PriceOverrides),
	}, nil
}

func optionViews(options []upgrade.UpgradeOption, overrides map[string]int64) []OptionView {
	views := make([]OptionView, 0, len(options))
	for _, o := range options {
		views = append(views, OptionView{
			UpgradeOption: o,
			Key:           o.Key(),
			Price:         upgrade.ResolvePrice(o, overrides),
		})
	}
	return views
}

// Quote prices a product with the given upgrades without creating a session.
// Ids that are not applicable are skipped and reported as notices.
func (s *ConfiguratorService) Quote(ctx context.Context, productID int64, req *QuoteRequest) (*QuoteResponse, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.Quote", attribute.Int64("product.id", productID))
	defer span.End()

	cfg, err := s.build(ctx, productID)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	notices := applySelections(cfg, req.RAMOptionID, req.StorageOptionID)
	util.QuotesTotal.Inc()

	return &QuoteResponse{
		ProductID: productID,
		Result:    cfg.Result(),
		Notices:   notices,
	}, nil
}

// StartSession begins a configuration session for a product
func (s *ConfiguratorService) StartSession(ctx context.Context, productID int64) (*SessionView, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.StartSession", attribute.Int64("product.id", productID))
	defer span.End()

	cfg, err := s.build(ctx, productID)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	now := time.Now()
	session := &models.ConfigurationSession{
		ID:        uuid.New().String(),
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to save session: %w", err))
	}

	util.ConfigurationsStartedTotal.Inc()
	s.logger.Info("Configuration session started",
		zap.String("session_id", session.ID),
		zap.Int64("product_id", productID))

	return &SessionView{ID: session.ID, ProductID: productID, Result: cfg.Result()}, nil
}

// GetSession returns the current state of a session
func (s *ConfiguratorService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.GetSession")
	defer span.End()

	session, cfg, notices, err := s.restore(ctx, id)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}
	if len(notices) > 0 {
		if err := s.save(ctx, session); err != nil {
			s.logger.Warn("Failed to persist dropped selections",
				zap.String("session_id", id), zap.Error(err))
		}
	}

	return &SessionView{ID: id, ProductID: session.ProductID, Result: cfg.Result(), Notices: notices}, nil
}

// Select toggles an upgrade in a session. Selecting the current option
// clears it. An option that is not applicable leaves the session unchanged
// and is reported as a notice.
func (s *ConfiguratorService) Select(ctx context.Context, id string, kind upgrade.Kind, optionID int64) (*SessionView, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.Select",
		attribute.String("option.kind", string(kind)),
		attribute.Int64("option.id", optionID))
	defer span.End()

	session, cfg, notices, err := s.restore(ctx, id)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	changed := len(notices) > 0
	cfg.OnChange(func(snap upgrade.Snapshot) {
		session.RAMOptionID = selectedID(snap.SelectedRAM)
		session.StorageOptionID = selectedID(snap.SelectedStorage)
		changed = true
	})

	option, ok := cfg.Lookup(kind, optionID)
	if !ok {
		option = upgrade.UpgradeOption{ID: optionID, Kind: kind}
	}

	var snap upgrade.Snapshot
	switch kind {
	case upgrade.KindRAM:
		snap, err = cfg.SelectRAM(option)
	default:
		snap, err = cfg.SelectStorage(option)
	}

	if err != nil {
		util.ConfigurationSelectionsTotal.WithLabelValues(string(kind), "rejected").Inc()
		s.logger.Info("Selection rejected",
			zap.String("session_id", id),
			zap.Int64("option_id", optionID),
			zap.Error(err))
		notices = append(notices, err.Error())
	} else {
		util.ConfigurationSelectionsTotal.WithLabelValues(string(kind), "accepted").Inc()
	}

	if changed {
		if err := s.save(ctx, session); err != nil {
			return nil, util.FailSpan(span, err)
		}
	}

	return &SessionView{ID: id, ProductID: session.ProductID, Result: snap, Notices: notices}, nil
}

// ResetSession clears every selection of a session
func (s *ConfiguratorService) ResetSession(ctx context.Context, id string) (*SessionView, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.ResetSession")
	defer span.End()

	session, cfg, _, err := s.restore(ctx, id)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	snap := cfg.Reset()
	session.RAMOptionID = nil
	session.StorageOptionID = nil
	if err := s.save(ctx, session); err != nil {
		return nil, util.FailSpan(span, err)
	}

	return &SessionView{ID: id, ProductID: session.ProductID, Result: snap}, nil
}

// Finalize creates an order from a session, capturing the resolved prices
// and chosen option keys. Repeating a request with the same idempotency key
// (the session id by default) returns the existing order.
func (s *ConfiguratorService) Finalize(ctx context.Context, id string, req *FinalizeRequest) (*FinalizeResponse, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.Finalize")
	defer span.End()

	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = id
	}

	existing, err := s.orders.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to check idempotency: %w", err))
	}
	if existing != nil {
		s.logger.Info("Duplicate finalize request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return finalizedResponse(existing), nil
	}

	for _, key := range []string{"finalize:session:" + id, "finalize:" + req.IdempotencyKey} {
		release, err := s.lock(ctx, key)
		if err != nil {
			return nil, util.FailSpan(span, err)
		}
		defer release()
	}

	// another request may have finalized the session while we waited
	existing, err = s.orders.GetOrderBySessionID(ctx, id)
	if err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to check session order: %w", err))
	}
	if existing != nil {
		s.logger.Info("Session already finalized",
			zap.String("session_id", id),
			zap.Int64("order_id", existing.ID))
		return finalizedResponse(existing), nil
	}

	session, cfg, notices, err := s.restore(ctx, id)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}
	for _, n := range notices {
		s.logger.Warn("Selection dropped at finalize", zap.String("session_id", id), zap.String("notice", n))
	}

	snap := cfg.Result()
	order := &models.Order{
		UserID:         req.UserID,
		TotalAmount:    snap.TotalPrice * int64(req.Quantity),
		Status:         models.OrderStatusCreated,
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      id,
	}
	item := &models.OrderItem{
		ProductID:      session.ProductID,
		Quantity:       req.Quantity,
		BasePrice:      snap.BasePrice,
		AdditionalCost: snap.AdditionalCost,
		UnitPrice:      snap.TotalPrice,
		RAMLabel:       snap.RAMLabel,
		StorageLabel:   snap.StorageLabel,
	}
	if snap.SelectedRAM != nil {
		item.RAMOptionKey = snap.SelectedRAM.Key()
	}
	if snap.SelectedStorage != nil {
		item.StorageOptionKey = snap.SelectedStorage.Key()
	}

	if err := s.orders.CreateOrderWithItem(ctx, order, item); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.ConfigurationsFinalizedTotal.Inc()
	util.UpgradeRevenueTotal.Add(float64(snap.AdditionalCost * int64(req.Quantity)))
	s.logger.Info("Configuration finalized",
		zap.String("session_id", id),
		zap.Int64("order_id", order.ID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.ConfigurationFinalizedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeConfigurationFinalized,
			Timestamp: time.Now(),
		},
		OrderID:        order.ID,
		UserID:         order.UserID,
		ProductID:      session.ProductID,
		SessionID:      id,
		OptionKeys:     snap.OptionKeys(),
		Quantity:       req.Quantity,
		AdditionalCost: snap.AdditionalCost,
		UnitPrice:      snap.TotalPrice,
		TotalAmount:    order.TotalAmount,
	}
	if err := s.publisher.PublishConfigurationFinalized(ctx, event); err != nil {
		s.logger.Error("Failed to publish ConfigurationFinalized event", zap.Error(err))
	}

	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		s.logger.Warn("Failed to delete finalized session", zap.String("session_id", id), zap.Error(err))
	}

	return &FinalizeResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Result:      &snap,
	}, nil
}

func (s *ConfiguratorService) lock(ctx context.Context, key string) (func(), error) {
	locked, err := s.sessions.AcquireLock(ctx, key, finalizeLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire finalize lock: %w", err)
	}
	if !locked {
		return nil, ErrFinalizeInProgress
	}
	return func() {
		if err := s.sessions.ReleaseLock(ctx, key); err != nil {
			s.logger.Warn("Failed to release finalize lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func finalizedResponse(order *models.Order) *FinalizeResponse {
	return &FinalizeResponse{OrderID: order.ID, Status: order.Status, TotalAmount: order.TotalAmount}
}

// GetOrder retrieves an order and its items
func (s *ConfiguratorService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "ConfiguratorService.GetOrder", attribute.Int64("order.id", orderID))
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, nil, util.FailSpan(span, err)
	}

	items, err := s.orders.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, util.FailSpan(span, err)
	}

	return order, items, nil
}

// restore loads a session and replays its selections onto a fresh
// configurator. Selections that are no longer applicable are dropped from
// the session and reported as notices.
func (s *ConfiguratorService) restore(ctx context.Context, id string) (*models.ConfigurationSession, *upgrade.Configurator, []string, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	cfg, err := s.build(ctx, session.ProductID)
	if err != nil {
		return nil, nil, nil, err
	}

	notices := applySelections(cfg, session.RAMOptionID, session.StorageOptionID)
	snap := cfg.Result()
	session.RAMOptionID = selectedID(snap.SelectedRAM)
	session.StorageOptionID = selectedID(snap.SelectedStorage)

	return session, cfg, notices, nil
}

func (s *ConfiguratorService) save(ctx context.Context, session *models.ConfigurationSession) error {
	session.UpdatedAt = time.Now()
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// applySelections selects the given ids and returns a notice per id that
// could not be applied.
func applySelections(cfg *upgrade.Configurator, ramID, storageID *int64) []string {
	var notices []string

	if ramID != nil {
		if o, ok := cfg.Lookup(upgrade.KindRAM, *ramID); ok {
			_, _ = cfg.SelectRAM(o)
		} else {
			notices = append(notices, fmt.Sprintf("RAM option %d is not available for this product", *ramID))
		}
	}
	if storageID != nil {
		if o, ok := cfg.Lookup(upgrade.KindSSD, *storageID); ok {
			_, _ = cfg.SelectStorage(o)
		} else {
			notices = append(notices, fmt.Sprintf("storage option %d is not available for this product", *storageID))
		}
	}
	return notices
}

func selectedID(o *upgrade.UpgradeOption) *int64 {
	if o == nil {
		return nil
	}
	id := o.ID
	return &id
}
