// Package hosted implements payment.Processor against the processor's REST
// API for hosted checkout sessions.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teamwear/storefront/internal/payment"
)

// defaultTimeout bounds every processor call. A slow processor must surface
// as a retryable failure, never as a hung checkout request.
const defaultTimeout = 10 * time.Second

// Client talks to the processor's checkout-session endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ payment.Processor = (*Client)(nil)

// NewClient builds a client for the given API base URL and secret key.
// Outbound calls are traced via the otelhttp transport.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type sessionLineItemJSON struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"image_url,omitempty"`
}

type createSessionJSON struct {
	LineItems     []sessionLineItemJSON `json:"line_items"`
	Mode          string                `json:"mode"`
	SuccessURL    string                `json:"success_url"`
	CancelURL     string                `json:"cancel_url"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	Metadata      map[string]string     `json:"metadata"`
}

type sessionJSON struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

// CreateSession asks the processor for a new hosted checkout session.
func (c *Client) CreateSession(ctx context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	items := make([]sessionLineItemJSON, len(params.LineItems))
	for i, it := range params.LineItems {
		items[i] = sessionLineItemJSON{
			Name:        it.Name,
			Description: it.Description,
			UnitAmount:  it.UnitAmount,
			Quantity:    it.Quantity,
			ImageURL:    it.ImageURL,
		}
	}

	body := createSessionJSON{
		LineItems:     items,
		Mode:          "payment",
		SuccessURL:    params.SuccessURL,
		CancelURL:     params.CancelURL,
		CustomerEmail: params.CustomerEmail,
		Metadata:      map[string]string{payment.MetadataOrderID: params.OrderID},
	}

	var out sessionJSON
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body, &out); err != nil {
		return nil, fmt.Errorf("payment: create session: %w", err)
	}
	return &payment.Session{ID: out.ID, URL: out.URL, Metadata: out.Metadata}, nil
}

// RetrieveSession fetches an existing session, mainly to resolve its order
// token on the success-redirect path.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	var out sessionJSON
	err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &out)
	if err != nil {
		return nil, fmt.Errorf("payment: retrieve session %s: %w", sessionID, err)
	}
	return &payment.Session{ID: out.ID, URL: out.URL, Metadata: out.Metadata}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return payment.ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("processor returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
