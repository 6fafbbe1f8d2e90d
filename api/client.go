// Package api is the HTTP client for the Foodies backend (cart, orders, payments, catalog).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodies-telegram/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Error is a non-2xx response from the backend. Message is the server-supplied message when present.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, msg)
}

// ServerMessage returns the backend-supplied message carried by err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type Client struct {
	baseURL    string
	regionsURL string
	http       *http.Client
}

// New returns a client with a traced, pooled transport. timeout 0 means no client-side timeout.
func New(baseURL, regionsURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return NewWithHTTPClient(baseURL, regionsURL, &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   timeout,
	})
}

func NewWithHTTPClient(baseURL, regionsURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		regionsURL: regionsURL,
		http:       hc,
	}
}

type cartResponse struct {
	Items map[string]int `json:"items"`
}

type cartRequest struct {
	FoodID string `json:"foodId"`
}

// GetCart returns the authoritative quantity map for the credential.
func (c *Client) GetCart(ctx context.Context, token string) (models.QuantityMap, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/cart", token, nil, &resp); err != nil {
		return nil, err
	}
	q := make(models.QuantityMap, len(resp.Items))
	for id, n := range resp.Items {
		if n > 0 {
			q[id] = n
		}
	}
	return q, nil
}

func (c *Client) AddToCart(ctx context.Context, foodID, token string) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/cart", token, cartRequest{FoodID: foodID}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, foodID, token string) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/cart/remove", token, cartRequest{FoodID: foodID}, nil)
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/cart", token, nil, nil)
}

// CreateOrder posts the payload. A 2xx response without approvalUrl is not an error here.
func (c *Client) CreateOrder(ctx context.Context, payload models.OrderPayload, token string) (*models.CreateOrderResult, error) {
	var res models.CreateOrderResult
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/orders", token, payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) PaymentStatus(ctx context.Context, orderID, token string) (*models.PaymentStatusResult, error) {
	var res models.PaymentStatusResult
	path := c.baseURL + "/orders/payment/status/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UserOrders accepts both a bare array and a {"data": [...]} envelope.
func (c *Client) UserOrders(ctx context.Context, token string) ([]models.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/orders", token, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOrders(raw)
}

func (c *Client) AllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/orders/all", "", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	path := c.baseURL + "/orders/status/" + url.PathEscape(orderID) + "?status=" + url.QueryEscape(status)
	return c.do(ctx, http.MethodPatch, path, "", nil, nil)
}

func (c *Client) Foods(ctx context.Context) ([]models.FoodItem, error) {
	var foods []models.FoodItem
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/foods", "", nil, &foods); err != nil {
		return nil, err
	}
	return foods, nil
}

func (c *Client) Regions(ctx context.Context) ([]models.Region, error) {
	if c.regionsURL == "" {
		return nil, nil
	}
	var regions []models.Region
	if err := c.do(ctx, http.MethodGet, c.regionsURL, "", nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func decodeOrders(raw json.RawMessage) ([]models.Order, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var orders []models.Order
		if err := json.Unmarshal(raw, &orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
		return orders, nil
	}
	var envelope struct {
		Data []models.Order `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) do(ctx context.Context, method, target, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	return &Error{StatusCode: resp.StatusCode, Message: msg}
}
