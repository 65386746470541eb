package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Categories lists catalog categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, call{method: http.MethodGet, route: "/categories", path: "/categories"}, &out)
	return out, err
}

// Cities lists cities filtered by the active and serviceable flags.
func (c *Client) Cities(ctx context.Context, active, serviceable bool) ([]City, error) {
	q := url.Values{}
	if active {
		q.Set("isActive", "true")
	}
	if serviceable {
		q.Set("isServiceable", "true")
	}
	var out []City
	err := c.do(ctx, call{method: http.MethodGet, route: "/cities", path: "/cities", query: q}, &out)
	return out, err
}

// Products lists vendor products, optionally restricted to a city.
func (c *Client) Products(ctx context.Context, cityID string) ([]Product, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{method: http.MethodGet, route: "/products", path: "/products", query: cityQuery(cityID)}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

// ProductsByCategory lists vendor products of a category slug.
func (c *Client) ProductsByCategory(ctx context.Context, slug, cityID string) ([]Product, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/products/category/:slug",
		path:   "/products/category/" + url.PathEscape(slug),
		query:  cityQuery(cityID),
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

// Product fetches a single vendor product.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	var out Product
	err := c.do(ctx, call{method: http.MethodGet, route: "/products/:id", path: "/products/" + url.PathEscape(id)}, &out)
	return out, err
}

// AddCartItem adds a line to the signed-in user's server-side cart.
func (c *Client) AddCartItem(ctx context.Context, item CartItemRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/cart", path: "/cart", body: item}, nil)
}

// UpdateCartItem sets the quantity of a product in the server-side cart.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		route:  "/cart/:productId",
		path:   "/cart/" + url.PathEscape(productID),
		body:   map[string]int{"quantity": quantity},
	}, nil)
}

// RemoveCartItem deletes a product from the server-side cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/cart/:productId", path: "/cart/" + url.PathEscape(productID)}, nil)
}

// Wishlist lists the signed-in user's wishlist.
func (c *Client) Wishlist(ctx context.Context) ([]WishlistItem, error) {
	var out []WishlistItem
	err := c.do(ctx, call{method: http.MethodGet, route: "/wishlist", path: "/wishlist"}, &out)
	return out, err
}

// AddWishlist adds a product to the wishlist.
func (c *Client) AddWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/wishlist",
		path:   "/wishlist",
		body:   map[string]string{"productId": productID},
	}, nil)
}

// RemoveWishlist removes a product from the wishlist.
func (c *Client) RemoveWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/wishlist/:productId", path: "/wishlist/" + url.PathEscape(productID)}, nil)
}

// Ping checks that the backend answers. Any non-5xx response counts as up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/categories", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend ping: status %d", resp.StatusCode)
	}
	return nil
}

func cityQuery(cityID string) url.Values {
	if cityID == "" {
		return nil
	}
	return url.Values{"cityId": []string{cityID}}
}

// decodeProducts accepts either a bare array or a paged object holding the array.
func decodeProducts(raw json.RawMessage) ([]Product, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []Product
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var paged struct {
		Products []Product `json:"products"`
		Items    []Product `json:"items"`
	}
	if err := json.Unmarshal(raw, &paged); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if paged.Products != nil {
		return paged.Products, nil
	}
	return paged.Items, nil
}
