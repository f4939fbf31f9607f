package payment

import (
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
)

const (
	defaultAPIBase = "https://api.stripe.com"
	// Currency is fixed, prices are in Danish kroner and unit amounts in øre.
	Currency = "dkk"
)

// LineItem is a priced, quantified entry sent to the provider. UnitAmount is
// in the smallest currency unit.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

// Session is the provider-hosted payment flow instance. URL is where the
// browser is redirected to complete payment.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ProviderError carries the provider's own message for a rejected session.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("payment provider error (status %d)", e.StatusCode)
}

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	maxRetries int
}

type Option func(*Client)

// WithBaseURL points the client at a different API host, used by tests to
// swap in a mock provider.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultAPIBase,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 1, // one retry on transport failure, mirroring the SDK default we replaced
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession creates a single payment-mode checkout session with fixed
// currency and redirect targets derived from the storefront origin. The
// success URL carries the provider session id as a query parameter.
func (c *Client) CreateSession(ctx context.Context, origin string, items []LineItem) (*Session, error) {
	if len(items) == 0 {
		return nil, errors.New("no line items")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", origin+"/order-success?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", origin+"/checkout")

	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		name := item.Name
		if name == "" {
			name = "Product"
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		form.Set(prefix+"[price_data][currency]", Currency)
		form.Set(prefix+"[price_data][product_data][name]", name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(quantity))
	}

	res, err := c.post(ctx, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &ProviderError{
			StatusCode: res.StatusCode,
			Message:    decodeErrorMessage(body),
		}
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if session.URL == "" {
		return nil, &ProviderError{StatusCode: res.StatusCode, Message: "provider returned no redirect URL"}
	}

	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	encoded := form.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		res, err := c.httpClient.Do(req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("payment request failed: %w", lastErr)
}

// decodeErrorMessage pulls the human-readable message out of a provider error
// body shaped like {"error": {"message": "..."}}.
func decodeErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}
