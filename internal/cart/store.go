package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/restrobazaar/storefront/internal/obs"
)

// Persister loads and saves the cart snapshot of a session.
type Persister interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
}

// Store applies actions through Reduce and persists the result before reporting success.
// Callers serialize dispatches per session.
type Store struct {
	persister Persister
	now       func() time.Time
}

// NewStore constructs a Store over p.
func NewStore(p Persister) *Store {
	return &Store{persister: p, now: time.Now}
}

// State loads the persisted cart of sessionID, rehydrating it through Reduce.
func (s *Store) State(ctx context.Context, sessionID string) (State, error) {
	snapshot, err := s.persister.Load(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("load cart: %w", err)
	}
	return Reduce(State{}, Hydrate{State: snapshot}), nil
}

// Dispatch applies actions in order and saves the outcome. When saving fails the
// previous state is returned with the error and nothing is committed.
func (s *Store) Dispatch(ctx context.Context, sessionID string, actions ...Action) (State, error) {
	prev, err := s.State(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next := prev
	for _, a := range actions {
		next = Reduce(next, a)
	}
	next.UpdatedAt = s.now().UTC()
	err = s.persister.Save(ctx, sessionID, next)
	for _, a := range actions {
		obs.CountCartMutation(a.Name(), err)
	}
	if err != nil {
		return prev, fmt.Errorf("save cart: %w", err)
	}
	return next, nil
}
