package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// ErrSignInRequired is returned when an anonymous shopper adds to the wishlist.
// The product is kept as pending and added once the shopper signs in.
var ErrSignInRequired = errors.New("wishlist: sign in required")

// Backend is the wishlist part of the backend client.
type Backend interface {
	Wishlist(ctx context.Context) ([]backend.WishlistItem, error)
	AddWishlist(ctx context.Context, productID string) error
	RemoveWishlist(ctx context.Context, productID string) error
}

// Item is one wishlist entry.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Image     string `json:"image,omitempty"`
}

type pending struct {
	ProductID string `json:"productId"`
}

// Service proxies the backend wishlist and parks adds made before sign-in.
type Service struct {
	backend  Backend
	sessions session.Store
}

// NewService constructs a wishlist Service.
func NewService(b Backend, sessions session.Store) *Service {
	return &Service{backend: b, sessions: sessions}
}

// List returns the signed-in shopper's wishlist.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	raw, err := s.backend.Wishlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, w := range raw {
		item := Item{ID: w.ID, ProductID: w.ProductID.ID, Name: w.ProductID.Name}
		if len(w.ProductID.Images) > 0 {
			item.Image = w.ProductID.Images[0]
		}
		items = append(items, item)
	}
	return items, nil
}

// Add puts productID on the wishlist. Without a token, or when the backend
// rejects the token, the product is parked on the session and the sign-in error is returned.
func (s *Service) Add(ctx context.Context, sessionID, productID string) error {
	productID = strings.TrimSpace(productID)
	if _, ok := common.Token(ctx); !ok {
		if err := s.park(ctx, sessionID, productID); err != nil {
			return err
		}
		return ErrSignInRequired
	}
	err := s.backend.AddWishlist(ctx, productID)
	if errors.Is(err, backend.ErrUnauthorized) {
		if parkErr := s.park(ctx, sessionID, productID); parkErr != nil {
			return errors.Join(err, parkErr)
		}
	}
	if err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

// Remove takes productID off the wishlist.
func (s *Service) Remove(ctx context.Context, productID string) error {
	if err := s.backend.RemoveWishlist(ctx, strings.TrimSpace(productID)); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}

// ReplayPending adds the parked product, if any, and clears it. It runs after sign-in.
func (s *Service) ReplayPending(ctx context.Context, sessionID string) error {
	var p pending
	ok, err := s.sessions.GetJSON(ctx, sessionID, session.KeyPendingWishlist, &p)
	if err != nil || !ok {
		return err
	}
	if p.ProductID != "" {
		if err := s.backend.AddWishlist(ctx, p.ProductID); err != nil {
			return fmt.Errorf("replay pending wishlist: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("product_id", p.ProductID).Msg("pending_wishlist_replayed")
	}
	return s.sessions.Delete(ctx, sessionID, session.KeyPendingWishlist)
}

func (s *Service) park(ctx context.Context, sessionID, productID string) error {
	if sessionID == "" {
		return session.ErrNoSession
	}
	return s.sessions.SetJSON(ctx, sessionID, session.KeyPendingWishlist, pending{ProductID: productID})
}
