package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/resilience"
)

const maxResponseBytes = 4 << 20

var (
	// ErrUnauthorized is returned when the backend rejects the bearer token.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("backend: not found")
)

// APIError is a non-success answer from the backend.
type APIError struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client is the typed RestroBazaar REST client. The bearer token of the
// calling session is read from the request context.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// NewHTTPClient returns an http.Client whose transport propagates trace context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// New constructs a client for baseURL.
func New(baseURL string, httpc resilience.HTTPClient) *Client {
	if httpc.Client == nil {
		httpc.Client = NewHTTPClient(10 * time.Second)
	}
	if httpc.Target == "" {
		httpc.Target = "backend"
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpc}
}

type call struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, in call, out any) error {
	target := c.BaseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}
	var body io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", in.route, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", in.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := common.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		observe(in, "error", start)
		zerolog.Ctx(ctx).Warn().Err(err).Str("endpoint", in.route).Msg("backend_request_failed")
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	observe(in, strconv.Itoa(resp.StatusCode), start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", in.route, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return &APIError{Status: resp.StatusCode, Message: env.Message, Endpoint: in.route}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s envelope: %w", in.route, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Endpoint: in.route}
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, jsonNull) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", in.route, err)
	}
	return nil
}

func observe(in call, status string, start time.Time) {
	if obs.BackendRequestsTotal != nil {
		obs.BackendRequestsTotal.WithLabelValues(in.method, in.route, status).Inc()
	}
	if obs.BackendRequestDuration != nil {
		obs.BackendRequestDuration.WithLabelValues(in.method, in.route).Observe(obs.DurationMillis(time.Since(start)))
	}
}

// AsAppError maps a client error onto the HTTP error the storefront reports.
func AsAppError(err error) *common.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := common.AsAppError(err); ok {
		return appErr
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return common.NewAppError("UNAUTHORIZED", "sign in required", http.StatusUnauthorized, err).
			WithDetails(map[string]string{"redirect": "/signin"})
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "resource not found", http.StatusNotFound, err)
	case errors.Is(err, resilience.ErrOpenCircuit):
		return common.NewAppError("BACKEND_UNAVAILABLE", "catalog service temporarily unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("BACKEND_TIMEOUT", "catalog service timed out", http.StatusGatewayTimeout, err)
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		msg := apiErr.Message
		if msg == "" {
			msg = "request rejected"
		}
		return common.NewAppError("BACKEND_REJECTED", msg, http.StatusUnprocessableEntity, err)
	default:
		return common.NewAppError("BACKEND_ERROR", "catalog service error", http.StatusBadGateway, err)
	}
}
