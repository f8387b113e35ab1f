package orderapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

var userAgent = "Brewdesk Alert Service (https://console.brewdesk.app)"

// Client talks to the order-management API this service fronts.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// ListPending fetches the currently pending orders. pageSize is a fixed upper
// bound, not real pagination; the console never walks past the first page.
func (c *Client) ListPending(ctx context.Context, pageSize int) ([]Record, error) {
	endpoint := c.base + "/orders?status=pending&page_size=" + strconv.Itoa(pageSize)
	body, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode pending orders: %w", err)
	}
	return records, nil
}

// Get fetches a single order record by id.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	body, err := c.getJSON(ctx, c.base+"/orders/"+url.PathEscape(id))
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return Record{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return record, nil
}

// SetStatus submits an accept/reject disposition for one order.
func (c *Client) SetStatus(ctx context.Context, id string, status string) error {
	form := url.Values{}
	form.Set("status", status)

	endpoint := c.base + "/orders/" + url.PathEscape(id) + "/edit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			// Some deployments answer the edit endpoint with an empty body.
			return nil
		}
		return fmt.Errorf("order %s status update failed: http %d", id, res.StatusCode)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 || (env.Error != "" && !env.Success) {
		return fmt.Errorf("order %s status update failed: %s", id, upstreamMessage(env, res.StatusCode))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 || !env.Success {
		return nil, fmt.Errorf("upstream error: %s", upstreamMessage(env, res.StatusCode))
	}
	return env.Data, nil
}

func upstreamMessage(env envelope, status int) string {
	if strings.TrimSpace(env.Message) != "" {
		return env.Message
	}
	if strings.TrimSpace(env.Error) != "" {
		return env.Error
	}
	return "http " + strconv.Itoa(status)
}
