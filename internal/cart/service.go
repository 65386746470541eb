package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/events"
	"github.com/restrobazaar/storefront/internal/lock"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/pricing"
)

// Tier policies applied when a product ends up priced at more than one tier.
const (
	PolicySplit     = "split"
	PolicyReconcile = "reconcile"
)

var (
	// ErrPriceUnavailable is returned when no price applies to the quantity.
	ErrPriceUnavailable = errors.New("cart: price unavailable")
	// ErrLineNotFound is returned when removing a line that is not in the cart.
	ErrLineNotFound = errors.New("cart: line not found")
	// ErrExceedsStock is returned when the cart would hold more than the orderable stock.
	ErrExceedsStock = errors.New("cart: quantity exceeds available stock")
	// ErrProductInactive is returned for products that are no longer sold.
	ErrProductInactive = errors.New("cart: product inactive")
)

// Catalog looks up normalized products.
type Catalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

// Locker serializes work on a key across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Publisher receives committed cart mutations.
type Publisher interface {
	Emit(ctx context.Context, topic, sessionID string, payload any) (events.Event, error)
}

// Service implements add-to-cart and quantity-selector semantics over a Store.
type Service struct {
	store   *Store
	catalog Catalog
	locker  Locker
	events  Publisher
	policy  string
	now     func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     *Store
	Catalog   Catalog
	Locker    Locker
	Publisher Publisher
	Policy    string
	Now       func() time.Time
}

// NewService constructs a cart Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("cart store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("cart catalog is required")
	}
	policy := cfg.Policy
	switch policy {
	case "":
		policy = PolicySplit
	case PolicySplit, PolicyReconcile:
	default:
		return nil, errors.New("unknown cart tier policy " + policy)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, catalog: cfg.Catalog, locker: cfg.Locker, events: cfg.Publisher, policy: policy, now: now}, nil
}

// Get returns the cart of sessionID with fresh totals.
func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	st, err := s.store.State(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

// Add puts qty units of a product in the cart. qty is rounded to the product's
// order multiple. A line with the same identity is incremented.
func (s *Service) Add(ctx context.Context, sessionID, productID string, qty int) (View, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return View{}, err
	}
	qty, err = normalize(p, qty)
	if err != nil {
		return View{}, err
	}

	var st State
	err = s.withLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := s.store.State(ctx, sessionID)
		if err != nil {
			return err
		}
		total := current.ProductQuantity(p.ID) + qty
		if total > pricing.MaxOrderable(p.Pricing.MinimumOrderQuantity, p.Pricing.AvailableStock) {
			return exceedsStock()
		}

		var actions []Action
		var line Line
		if s.policy == PolicyReconcile {
			line, err = s.line(p, total)
			if err != nil {
				return err
			}
			actions = []Action{SetLineQuantity{Line: line}, RemoveProduct{VendorProductID: p.ID, Except: line.Key()}}
		} else {
			line, err = s.line(p, qty)
			if err != nil {
				return err
			}
			actions = []Action{AddLine{Line: line}}
		}
		st, err = s.store.Dispatch(ctx, sessionID, actions...)
		if err != nil {
			return err
		}
		s.publish(ctx, sessionID, events.TopicCartLineAdded, events.CartChange{
			Op:              events.MirrorAdd,
			VendorProductID: p.ID,
			Quantity:        qty,
			ProductQuantity: st.ProductQuantity(p.ID),
			PriceType:       string(line.PriceType),
			UnitPrice:       line.UnitPrice,
		})
		s.countSplit(st, p.ID)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

// SetQuantity applies a quantity selector change: the line at the price resolved
// for qty is set to exactly qty. Under the split policy other lines of the product
// keep their tier; under reconcile they are removed. qty <= 0 removes the product.
func (s *Service) SetQuantity(ctx context.Context, sessionID, productID string, qty int) (View, error) {
	if qty <= 0 {
		return s.removeProduct(ctx, sessionID, productID)
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return View{}, err
	}
	qty, err = normalize(p, qty)
	if err != nil {
		return View{}, err
	}
	line, err := s.line(p, qty)
	if err != nil {
		return View{}, err
	}

	var st State
	err = s.withLock(ctx, sessionID, func(ctx context.Context) error {
		actions := []Action{SetLineQuantity{Line: line}}
		if s.policy == PolicyReconcile {
			actions = append(actions, RemoveProduct{VendorProductID: p.ID, Except: line.Key()})
		} else {
			current, err := s.store.State(ctx, sessionID)
			if err != nil {
				return err
			}
			others := current.ProductQuantity(p.ID)
			if i := current.Find(line.Key()); i >= 0 {
				others -= current.Lines[i].Quantity
			}
			if others+qty > pricing.MaxOrderable(p.Pricing.MinimumOrderQuantity, p.Pricing.AvailableStock) {
				return exceedsStock()
			}
		}
		var err error
		st, err = s.store.Dispatch(ctx, sessionID, actions...)
		if err != nil {
			return err
		}
		s.publish(ctx, sessionID, events.TopicCartLineUpdated, events.CartChange{
			Op:              events.MirrorUpdate,
			VendorProductID: p.ID,
			Quantity:        qty,
			ProductQuantity: st.ProductQuantity(p.ID),
			PriceType:       string(line.PriceType),
			UnitPrice:       line.UnitPrice,
		})
		s.countSplit(st, p.ID)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

// Remove deletes the line with key.
func (s *Service) Remove(ctx context.Context, sessionID, key string) (View, error) {
	var st State
	err := s.withLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := s.store.State(ctx, sessionID)
		if err != nil {
			return err
		}
		if current.Find(key) < 0 {
			return common.NewAppError("LINE_NOT_FOUND", "cart line not found", http.StatusNotFound, ErrLineNotFound)
		}
		st, err = s.store.Dispatch(ctx, sessionID, RemoveLine{Key: key})
		if err != nil {
			return err
		}
		vpid := VendorProductOfKey(key)
		s.publishRemaining(ctx, sessionID, st, vpid)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionID string) (View, error) {
	var st State
	err := s.withLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := s.store.State(ctx, sessionID)
		if err != nil {
			return err
		}
		st, err = s.store.Dispatch(ctx, sessionID, Clear{})
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, l := range current.Lines {
			if seen[l.VendorProductID] {
				continue
			}
			seen[l.VendorProductID] = true
			s.publish(ctx, sessionID, events.TopicCartLineRemoved, events.CartChange{Op: events.MirrorRemove, VendorProductID: l.VendorProductID})
		}
		s.publish(ctx, sessionID, events.TopicCartCleared, events.CartChange{Op: events.MirrorNone})
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

func (s *Service) removeProduct(ctx context.Context, sessionID, productID string) (View, error) {
	var st State
	err := s.withLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		st, err = s.store.Dispatch(ctx, sessionID, RemoveProduct{VendorProductID: productID})
		if err != nil {
			return err
		}
		s.publishRemaining(ctx, sessionID, st, productID)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(st), nil
}

func (s *Service) publishRemaining(ctx context.Context, sessionID string, st State, vpid string) {
	remaining := st.ProductQuantity(vpid)
	if remaining > 0 {
		s.publish(ctx, sessionID, events.TopicCartLineUpdated, events.CartChange{Op: events.MirrorUpdate, VendorProductID: vpid, ProductQuantity: remaining, Quantity: remaining})
		return
	}
	s.publish(ctx, sessionID, events.TopicCartLineRemoved, events.CartChange{Op: events.MirrorRemove, VendorProductID: vpid})
}

func (s *Service) product(ctx context.Context, id string) (catalog.Product, error) {
	p, err := s.catalog.Product(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	if !p.IsActive {
		return catalog.Product{}, common.NewAppError("PRODUCT_UNAVAILABLE", "product is no longer available", http.StatusUnprocessableEntity, ErrProductInactive)
	}
	return p, nil
}

func (s *Service) line(p catalog.Product, qty int) (Line, error) {
	q := p.Quote(qty)
	if !q.Available {
		return Line{}, common.NewAppError("PRICE_ON_REQUEST", pricing.PriceOnRequest, http.StatusUnprocessableEntity, ErrPriceUnavailable)
	}
	now := s.now().UTC()
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return Line{
		VendorProductID:      p.ID,
		ProductID:            p.CatalogID,
		Name:                 p.Name,
		Image:                image,
		PriceType:            q.PriceType,
		UnitPrice:            q.UnitPrice,
		Quantity:             qty,
		MinimumOrderQuantity: p.Pricing.MinimumOrderQuantity,
		AvailableStock:       p.Pricing.AvailableStock,
		Tax:                  p.Pricing.Tax,
		Tier:                 q.Tier,
		AddedAt:              now,
		UpdatedAt:            now,
	}, nil
}

func normalize(p catalog.Product, qty int) (int, error) {
	if qty <= 0 {
		qty = p.Pricing.MinimumOrderQuantity
	}
	n, err := pricing.NormalizeQuantity(qty, p.Pricing.MinimumOrderQuantity, p.Pricing.AvailableStock)
	if err != nil {
		return 0, catalog.OutOfStock(err)
	}
	return n, nil
}

func exceedsStock() error {
	return common.NewAppError("EXCEEDS_STOCK", "cart quantity exceeds available stock", http.StatusConflict, ErrExceedsStock)
}

func (s *Service) withLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if sessionID == "" {
		return common.NewAppError("NO_SESSION", "session required", http.StatusBadRequest, nil)
	}
	if s.locker == nil {
		return fn(ctx)
	}
	err := s.locker.WithLock(ctx, "cart:"+sessionID, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		return common.NewAppError("CART_BUSY", "cart is being updated, retry", http.StatusConflict, err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, sessionID, topic string, change events.CartChange) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, sessionID, change); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("cart_event_emit_failed")
	}
}

func (s *Service) countSplit(st State, vpid string) {
	if st.ProductLines(vpid) > 1 && obs.CartTierSplitsTotal != nil {
		obs.CartTierSplitsTotal.Inc()
	}
}
