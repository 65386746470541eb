package pricing

import "errors"

// ErrInsufficientStock is returned when available stock cannot cover a single minimum order.
var ErrInsufficientStock = errors.New("pricing: stock below minimum order quantity")

// RoundToMultiple rounds value to the nearest multiple; halves round up.
func RoundToMultiple(value, multiple int) int {
	if multiple <= 0 {
		multiple = 1
	}
	if value <= 0 {
		return 0
	}
	return ((value + multiple/2) / multiple) * multiple
}

// MaxOrderable returns the largest multiple of moq that stock can cover.
func MaxOrderable(moq, stock int) int {
	if moq <= 0 {
		moq = 1
	}
	if stock <= 0 {
		return 0
	}
	return (stock / moq) * moq
}

// NormalizeQuantity rounds requested to the nearest multiple of moq and clamps it
// to [moq, MaxOrderable(moq, stock)].
func NormalizeQuantity(requested, moq, stock int) (int, error) {
	if moq <= 0 {
		moq = 1
	}
	upper := MaxOrderable(moq, stock)
	if upper < moq {
		return 0, ErrInsufficientStock
	}
	qty := RoundToMultiple(requested, moq)
	if qty < moq {
		qty = moq
	}
	if qty > upper {
		qty = upper
	}
	return qty, nil
}

// Step moves a quantity selector by one minimum order quantity.
// Stepping down from the minimum yields 0, which callers treat as removal.
func Step(current, moq, stock int, up bool) int {
	if moq <= 0 {
		moq = 1
	}
	upper := MaxOrderable(moq, stock)
	if up {
		next := current + moq
		if current < moq {
			next = moq
		}
		if next > upper {
			next = upper
		}
		if next < moq {
			return 0
		}
		return RoundToMultiple(next, moq)
	}
	next := current - moq
	if next < moq {
		return 0
	}
	if next > upper {
		next = upper
	}
	return RoundToMultiple(next, moq)
}
