package pay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayURL = "https://api.razorpay.com"

// Client creates checkout orders on a Razorpay-compatible gateway.
type Client struct {
	http   *resty.Client
	keyID  string
	secret string
}

// NewClient constructs a gateway client. An empty baseURL targets Razorpay.
func NewClient(baseURL, keyID, secret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultGatewayURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetBasicAuth(keyID, secret).
		SetHeader("Content-Type", "application/json")
	return &Client{http: client, keyID: keyID, secret: secret}
}

// KeyID is the publishable key handed to the checkout widget.
func (c *Client) KeyID() string { return c.keyID }

// Secret returns the key secret used for signature verification.
func (c *Client) Secret() string { return c.secret }

// CreateOrderRequest describes a checkout order. Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if c.keyID == "" || c.secret == "" {
		return Order{}, errors.New("gateway: credentials not configured")
	}
	if req.Amount <= 0 {
		return Order{}, errors.New("gateway: amount must be positive")
	}

	var (
		order Order
		gwErr gatewayError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&order).
		SetError(&gwErr).
		Post("/v1/orders")
	if err != nil {
		return Order{}, fmt.Errorf("gateway: create order: %w", err)
	}
	if resp.IsError() {
		if gwErr.Error.Description != "" {
			return Order{}, fmt.Errorf("gateway: %s (%d)", gwErr.Error.Description, resp.StatusCode())
		}
		return Order{}, fmt.Errorf("gateway: unexpected status %d", resp.StatusCode())
	}
	if order.ID == "" {
		return Order{}, errors.New("gateway: empty order id")
	}
	return order, nil
}
