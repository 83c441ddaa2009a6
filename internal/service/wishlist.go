package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-cart/internal/domain"
	"github.com/utafrali/storefront-cart/internal/repository"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
	"github.com/utafrali/storefront-cart/pkg/pagination"
	"github.com/utafrali/storefront-cart/pkg/tracing"
)

// ToggleResult reports the outcome of a wishlist toggle.
type ToggleResult struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"productId,omitempty"`
	// Applied is false when the line was not in the cart.
	Applied bool `json:"applied"`
	Wished  bool `json:"wished"`
	Size    int  `json:"size"`
}

// LoadWishlist returns a page of the session's wishlist. Nothing stored or
// malformed data yields an empty wishlist.
func (s *CartService) LoadWishlist(ctx context.Context, sessionID string, params pagination.Params) (pagination.Result[domain.WishlistItem], error) {
	ctx, span := s.tracer.Start(ctx, "CartService.LoadWishlist")
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return pagination.Result[domain.WishlistItem]{}, err
	}

	w, err := s.loadWishlist(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		return pagination.Result[domain.WishlistItem]{}, err
	}
	return pagination.Slice(w.Items, params), nil
}

// ToggleWishlist adds the cart line's product to the wishlist, or removes it
// when already wished. The cart itself is never modified. An unknown line is
// a no-op.
func (s *CartService) ToggleWishlist(ctx context.Context, sessionID, lineID string) (ToggleResult, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.ToggleWishlist",
		trace.WithAttributes(attribute.String("cart.line_id", lineID)))
	defer span.End()

	res := ToggleResult{LineID: lineID}
	if err := requireSession(sessionID); err != nil {
		return res, err
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("toggle_wishlist", resultError).Inc()
		return res, err
	}

	line, ok := cart.Item(lineID)
	if !ok {
		cartMutations.WithLabelValues("toggle_wishlist", resultNoop).Inc()
		return res, nil
	}

	w, err := s.loadWishlist(ctx, sessionID)
	if err != nil {
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("toggle_wishlist", resultError).Inc()
		return res, err
	}

	item := domain.SnapshotFromLine(line, s.now())
	res.ProductID = item.ProductID
	res.Wished = w.Toggle(item)
	res.Size = len(w.Items)
	res.Applied = true

	data, err := w.Marshal()
	if err != nil {
		return res, apperrors.Internal(fmt.Errorf("marshal wishlist: %w", err))
	}
	if err := s.store.Set(ctx, sessionID, repository.KeyWishlist, data); err != nil {
		err = apperrors.Unavailable("cart store", err)
		tracing.RecordError(span, err)
		cartMutations.WithLabelValues("toggle_wishlist", resultError).Inc()
		return ToggleResult{LineID: lineID}, err
	}
	cartMutations.WithLabelValues("toggle_wishlist", resultApplied).Inc()

	s.notifier.Notify(ctx, sessionID, repository.KeyWishlist)
	if s.events != nil {
		if err := s.events.PublishWishlistUpdated(ctx, sessionID, res.ProductID, res.Wished, res.Size); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish wishlist.updated event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "wishlist toggled",
		slog.String("session_id", sessionID),
		slog.String("product_id", res.ProductID),
		slog.Bool("wished", res.Wished),
	)

	return res, nil
}

func (s *CartService) loadWishlist(ctx context.Context, sessionID string) (*domain.Wishlist, error) {
	raw, err := s.store.Get(ctx, sessionID, repository.KeyWishlist)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Wishlist{Items: []domain.WishlistItem{}}, nil
		}
		return nil, apperrors.Unavailable("cart store", err)
	}

	parsed, err := domain.ParseStoredWishlist(raw)
	if err != nil {
		malformedLoads.WithLabelValues(repository.KeyWishlist).Inc()
		s.logger.WarnContext(ctx, "stored wishlist is malformed, treating as empty",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return &parsed.Wishlist, nil
	}
	if parsed.Dropped > 0 {
		droppedEntries.WithLabelValues(repository.KeyWishlist).Add(float64(parsed.Dropped))
	}
	return &parsed.Wishlist, nil
}
