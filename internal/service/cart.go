package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/internal/repository"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
	"github.com/utafrali/storefront-cart/pkg/tracing"
)

// MaxAddQuantity bounds a single add-to-cart request.
const MaxAddQuantity = 999

// Notifier announces that a session's key was rewritten.
type Notifier interface {
	Notify(ctx context.Context, sessionID, key string)
}

// EventPublisher publishes cart domain events for downstream consumers.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishWishlistUpdated(ctx context.Context, sessionID, productID string, wished bool, size int) error
}

// AddItemInput holds the parameters for adding a product line to the cart.
type AddItemInput struct {
	ProductID     string
	Name          string
	Image         string
	Category      string
	Brand         string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Quantity      int
	MaxQuantity   int
	InStock       *bool
	Color         string
	Size          string
	Fabric        string
	Discount      *decimal.Decimal
}

// CartService implements the cart and wishlist operations on top of the
// shared store. Every mutation is load, mutate, persist, notify with no lock
// and no version check.
type CartService struct {
	store       repository.Store
	notifier    Notifier
	events      EventPublisher
	policy      domain.PricingPolicy
	maxQuantity int
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// NewCartService creates a new cart service. events may be nil when domain
// events are disabled.
func NewCartService(
	store repository.Store,
	notifier Notifier,
	events EventPublisher,
	policy domain.PricingPolicy,
	defaultMaxQuantity int,
	logger *slog.Logger,
) *CartService {
	if defaultMaxQuantity <= 0 {
		defaultMaxQuantity = domain.DefaultMaxQuantity
	}
	return &CartService{
		store:       store,
		notifier:    notifier,
		events:      events,
		policy:      policy,
		maxQuantity: defaultMaxQuantity,
		tracer:      tracing.Tracer("cart-service"),
		logger:      logger,
		now:         time.Now,
	}
}

// Load returns the session's cart. Nothing stored yields an empty cart, and
// so does stored data that cannot be parsed. The only error is an
// unreachable store.
func (s *CartService) Load(ctx context.Context, sessionID string) (domain.CartState, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Load")
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return domain.CartState{}, err
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		return domain.CartState{}, err
	}
	span.SetAttributes(attribute.Int("cart.items", len(cart.Items)))
	return s.state(ctx, sessionID, cart), nil
}

// SetQuantity clamps q to [0, maxQuantity] and applies it to the line. Zero
// removes the line. An unknown line leaves the store untouched.
func (s *CartService) SetQuantity(ctx context.Context, sessionID, lineID string, q int) (domain.CartState, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.SetQuantity",
		trace.WithAttributes(attribute.String("cart.line_id", lineID), attribute.Int("cart.quantity", q)))
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return domain.CartState{}, err
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("set_quantity", resultError).Inc()
		return domain.CartState{}, err
	}

	if !cart.SetQuantity(lineID, q) {
		cartMutations.WithLabelValues("set_quantity", resultNoop).Inc()
		s.logger.DebugContext(ctx, "set quantity on unknown line ignored",
			slog.String("session_id", sessionID),
			slog.String("line_id", lineID),
		)
		return s.state(ctx, sessionID, cart), nil
	}

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("set_quantity", resultError).Inc()
		return domain.CartState{}, err
	}
	cartMutations.WithLabelValues("set_quantity", resultApplied).Inc()

	s.notifier.Notify(ctx, sessionID, repository.KeyCart)
	s.publishCartUpdated(ctx, sessionID, cart)

	s.logger.InfoContext(ctx, "cart line quantity updated",
		slog.String("session_id", sessionID),
		slog.String("line_id", lineID),
		slog.Int("requested", q),
	)

	return s.state(ctx, sessionID, cart), nil
}

// RemoveItem deletes the line. An unknown line leaves the store untouched.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, lineID string) (domain.CartState, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem",
		trace.WithAttributes(attribute.String("cart.line_id", lineID)))
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return domain.CartState{}, err
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("remove_item", resultError).Inc()
		return domain.CartState{}, err
	}

	if !cart.RemoveItem(lineID) {
		cartMutations.WithLabelValues("remove_item", resultNoop).Inc()
		return s.state(ctx, sessionID, cart), nil
	}

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("remove_item", resultError).Inc()
		return domain.CartState{}, err
	}
	cartMutations.WithLabelValues("remove_item", resultApplied).Inc()

	s.notifier.Notify(ctx, sessionID, repository.KeyCart)
	s.publishCartUpdated(ctx, sessionID, cart)

	s.logger.InfoContext(ctx, "cart line removed",
		slog.String("session_id", sessionID),
		slog.String("line_id", lineID),
	)

	return s.state(ctx, sessionID, cart), nil
}

// Clear empties the cart unconditionally. Confirmation is the caller's
// concern.
func (s *CartService) Clear(ctx context.Context, sessionID string) (domain.CartState, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return domain.CartState{}, err
	}

	cart := &domain.Cart{}
	cart.Clear()
	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("clear", resultError).Inc()
		return domain.CartState{}, err
	}
	cartMutations.WithLabelValues("clear", resultApplied).Inc()

	s.notifier.Notify(ctx, sessionID, repository.KeyCart)
	if s.events != nil {
		if err := s.events.PublishCartCleared(ctx, sessionID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return s.state(ctx, sessionID, cart), nil
}

// AddItem adds a product line to the cart. The line ID is derived from the
// product and its variant attributes, so adding the same variant again
// merges into the existing line up to its maximum quantity.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (domain.CartState, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem",
		trace.WithAttributes(attribute.String("cart.product_id", input.ProductID)))
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return domain.CartState{}, err
	}
	if strings.TrimSpace(input.ProductID) == "" {
		return domain.CartState{}, apperrors.InvalidInput("product id is required")
	}
	if input.Price.IsNegative() {
		return domain.CartState{}, apperrors.InvalidInput("price must not be negative")
	}
	if input.Quantity <= 0 {
		return domain.CartState{}, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxAddQuantity {
		return domain.CartState{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxAddQuantity))
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("add_item", resultError).Inc()
		return domain.CartState{}, err
	}

	line := s.lineFromInput(input)
	added := cart.AddItem(line)

	if err := s.saveCart(ctx, sessionID, cart); err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("add_item", resultError).Inc()
		return domain.CartState{}, err
	}
	cartMutations.WithLabelValues("add_item", resultApplied).Inc()

	s.notifier.Notify(ctx, sessionID, repository.KeyCart)
	s.publishCartUpdated(ctx, sessionID, cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("line_id", added.ID),
		slog.String("product_id", added.ProductID),
		slog.Int("quantity", added.Quantity),
	)

	return s.state(ctx, sessionID, cart), nil
}

func (s *CartService) lineFromInput(input AddItemInput) domain.LineItem {
	productID := strings.TrimSpace(input.ProductID)
	maxQty := input.MaxQuantity
	if maxQty <= 0 {
		maxQty = s.maxQuantity
	}
	inStock := true
	if input.InStock != nil {
		inStock = *input.InStock
	}
	return domain.LineItem{
		ID:            domain.LineID(productID, input.Color, input.Size, input.Fabric),
		ProductID:     productID,
		Name:          input.Name,
		Image:         input.Image,
		Category:      input.Category,
		Brand:         input.Brand,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Quantity:      input.Quantity,
		MaxQuantity:   maxQty,
		InStock:       inStock,
		Color:         input.Color,
		Size:          input.Size,
		Fabric:        input.Fabric,
		Discount:      input.Discount,
	}
}

// loadCart reads and normalizes the stored cart. Absent and malformed values
// both yield an empty cart.
func (s *CartService) loadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	raw, err := s.store.Get(ctx, sessionID, repository.KeyCart)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{Items: []domain.LineItem{}}, nil
		}
		return nil, apperrors.Unavailable("cart store", err)
	}

	parsed, err := domain.ParseStoredCart(raw, s.maxQuantity)
	if err != nil {
		malformedLoads.WithLabelValues(repository.KeyCart).Inc()
		s.logger.WarnContext(ctx, "stored cart is malformed, treating as empty",
			slog.String("session_id", sessionID),
			slog.Int("bytes", len(raw)),
			slog.String("error", err.Error()),
		)
		return &parsed.Cart, nil
	}
	if parsed.Dropped > 0 || parsed.Merged > 0 {
		droppedEntries.WithLabelValues(repository.KeyCart).Add(float64(parsed.Dropped))
		s.logger.WarnContext(ctx, "stored cart had unusable entries",
			slog.String("session_id", sessionID),
			slog.Int("dropped", parsed.Dropped),
			slog.Int("merged", parsed.Merged),
		)
	}
	return &parsed.Cart, nil
}

func (s *CartService) saveCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	cart.Touch(s.now())
	data, err := cart.Marshal()
	if err != nil {
		return apperrors.Internal(fmt.Errorf("marshal cart: %w", err))
	}
	if err := s.store.Set(ctx, sessionID, repository.KeyCart, data); err != nil {
		return apperrors.Unavailable("cart store", err)
	}
	return nil
}

func (s *CartService) state(ctx context.Context, sessionID string, cart *domain.Cart) domain.CartState {
	st := cart.State(s.policy)
	if st.Pricing.RawDiscount.IsNegative() {
		s.logger.WarnContext(ctx, "original prices below current prices",
			slog.String("session_id", sessionID),
			slog.String("raw_discount", st.Pricing.RawDiscount.String()),
		)
	}
	return st
}

func (s *CartService) publishCartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCartUpdated(ctx, sessionID, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

func requireSession(sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}
