package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 1 << 20 // 1MB

type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures consecutive transport/5xx failures open the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open.
	BreakerCooldown time.Duration
}

// Client talks to the shop backend REST API. Every call is a single attempt.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

type itemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Category  domain.Category `json:"category"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type orderResponse struct {
	Order domain.Order `json:"order"`
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	failures := cfg.BreakerFailures
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:    "storefront-backend",
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				var abandoned *abandonedError
				return err == nil || errors.As(err, &abandoned)
			},
		}),
	}
}

// GetCart returns the caller's cart. A missing cart comes back as a 404
// StatusError.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// SetItem posts a line item. The backend treats quantity as the target value
// for an existing line.
func (c *Client) SetItem(ctx context.Context, token, productID string, quantity int, category domain.Category) error {
	body := itemRequest{ProductID: productID, Quantity: quantity, Category: category}
	return c.do(ctx, http.MethodPost, "/cart/items", token, body, nil)
}

func (c *Client) RemoveItem(ctx context.Context, token, productID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(productID), token, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/carts", token, nil, nil)
}

func (c *Client) ConfirmOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.Order, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/confirm", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := middleware.GetReqID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(ErrUnavailable, "%s %s", method, path)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	if resp.status < 200 || resp.status > 299 {
		return newStatusError(resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

// roundTrip reports 5xx as an error so the breaker counts it; 4xx is the
// caller's problem and does not trip it.
func (c *Client) roundTrip(req *http.Request) (*response, error) {
	httpResp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	resp := &response{status: httpResp.StatusCode, body: data}
	if resp.status >= 500 {
		return nil, newStatusError(resp)
	}
	return resp, nil
}

// abandonedError is a request the caller cancelled or gave up on. The backend
// is not at fault, so the breaker does not count it.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

func newStatusError(resp *response) *StatusError {
	e := &StatusError{Status: resp.status}
	var eb errorBody
	if json.Unmarshal(resp.body, &eb) == nil {
		e.Message = eb.Message
		if e.Message == "" {
			e.Message = eb.Error
		}
	}
	return e
}
