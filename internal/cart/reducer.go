package cart

import (
	"slices"
	"time"
)

// State is the full cart of one session. No two lines share a key.
type State struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Find returns the index of the line with key, or -1.
func (s State) Find(key string) int {
	return slices.IndexFunc(s.Lines, func(l Line) bool { return l.Key() == key })
}

// ProductQuantity sums the quantities of every line of a vendor product.
func (s State) ProductQuantity(vendorProductID string) int {
	total := 0
	for _, l := range s.Lines {
		if l.VendorProductID == vendorProductID {
			total += l.Quantity
		}
	}
	return total
}

// ProductLines counts the lines of a vendor product.
func (s State) ProductLines(vendorProductID string) int {
	n := 0
	for _, l := range s.Lines {
		if l.VendorProductID == vendorProductID {
			n++
		}
	}
	return n
}

// Action is a cart mutation understood by Reduce.
type Action interface {
	Name() string
	apply(State) State
}

// AddLine adds Line, incrementing the quantity of an existing line with the same key.
type AddLine struct{ Line Line }

// SetLineQuantity replaces the quantity of the line with the same key, creating it when absent.
// A quantity of zero or less removes the line.
type SetLineQuantity struct{ Line Line }

// RemoveLine deletes the line with Key.
type RemoveLine struct{ Key string }

// RemoveProduct deletes every line of a vendor product except the one keyed Except.
type RemoveProduct struct {
	VendorProductID string
	Except          string
}

// Clear empties the cart.
type Clear struct{}

// Hydrate replaces the state with a persisted snapshot. Lines sharing a key
// are merged by summing their quantities; empty lines are dropped.
type Hydrate struct{ State State }

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	next := State{Lines: slices.Clone(s.Lines), UpdatedAt: s.UpdatedAt}
	return a.apply(next)
}

func (AddLine) Name() string { return "add" }
func (SetLineQuantity) Name() string { return "set_quantity" }
func (RemoveLine) Name() string { return "remove" }
func (RemoveProduct) Name() string { return "remove_product" }
func (Clear) Name() string { return "clear" }
func (Hydrate) Name() string { return "hydrate" }

func (a AddLine) apply(s State) State {
	if a.Line.Quantity <= 0 {
		return s
	}
	if i := s.Find(a.Line.Key()); i >= 0 {
		s.Lines[i].Quantity += a.Line.Quantity
		s.Lines[i].UpdatedAt = a.Line.UpdatedAt
		s.UpdatedAt = a.Line.UpdatedAt
		return s
	}
	s.Lines = append(s.Lines, a.Line)
	s.UpdatedAt = a.Line.UpdatedAt
	return s
}

func (a SetLineQuantity) apply(s State) State {
	i := s.Find(a.Line.Key())
	switch {
	case a.Line.Quantity <= 0 && i >= 0:
		s.Lines = slices.Delete(s.Lines, i, i+1)
	case a.Line.Quantity <= 0:
		return s
	case i >= 0:
		s.Lines[i].Quantity = a.Line.Quantity
		s.Lines[i].UpdatedAt = a.Line.UpdatedAt
	default:
		s.Lines = append(s.Lines, a.Line)
	}
	s.UpdatedAt = a.Line.UpdatedAt
	return s
}

func (a RemoveLine) apply(s State) State {
	s.Lines = slices.DeleteFunc(s.Lines, func(l Line) bool { return l.Key() == a.Key })
	return s
}

func (a RemoveProduct) apply(s State) State {
	s.Lines = slices.DeleteFunc(s.Lines, func(l Line) bool {
		return l.VendorProductID == a.VendorProductID && l.Key() != a.Except
	})
	return s
}

func (Clear) apply(s State) State {
	return State{Lines: []Line{}, UpdatedAt: s.UpdatedAt}
}

func (a Hydrate) apply(State) State {
	out := State{Lines: make([]Line, 0, len(a.State.Lines)), UpdatedAt: a.State.UpdatedAt}
	for _, l := range a.State.Lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := out.Find(l.Key()); i >= 0 {
			out.Lines[i].Quantity += l.Quantity
			continue
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}
