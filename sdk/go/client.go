package pulsepactsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal PulsePact HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Pact represents the API pact model (partial). Amounts are decimal strings.
type Pact struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	TargetAmount string  `json:"target_amount"`
	StakedAmount string  `json:"staked_amount"`
	Progress     float64 `json:"progress"`
	Deadline     string  `json:"deadline"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

// PactDraft is the create payload. Set the terms matching Type.
type PactDraft struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Type         string         `json:"type"`
	TargetAmount float64        `json:"target_amount"`
	InitialStake float64        `json:"initial_stake,omitempty"`
	Deadline     string         `json:"deadline"`
	Solo         map[string]any `json:"solo,omitempty"`
	Duo          map[string]any `json:"duo,omitempty"`
	Cause        map[string]any `json:"cause,omitempty"`
	Borrow       map[string]any `json:"borrow,omitempty"`
}

type StakeResult struct {
	Pact    Pact   `json:"pact"`
	Applied string `json:"applied"`
	Balance string `json:"balance"`
}

type CompleteResult struct {
	Pact    Pact   `json:"pact"`
	Reward  string `json:"reward"`
	Balance string `json:"balance"`
}

type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// ListPacts returns pacts filtered by the optional query values
// (search, type, status, sort).
func (c *Client) ListPacts(ctx context.Context, query url.Values) ([]Pact, error) {
	endpoint := "v0/pacts"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var resp []Pact
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) CreatePact(ctx context.Context, d PactDraft) (Pact, error) {
	var resp Pact
	err := c.do(ctx, http.MethodPost, "v0/pacts", d, &resp)
	return resp, err
}

// Stake moves amount ADA from the wallet into the pact.
func (c *Client) Stake(ctx context.Context, pactID string, amount float64) (StakeResult, error) {
	var resp StakeResult
	err := c.do(ctx, http.MethodPost, c.pactPath(pactID, "stake"), map[string]any{"amount": amount}, &resp)
	return resp, err
}

func (c *Client) Complete(ctx context.Context, pactID string) (CompleteResult, error) {
	var resp CompleteResult
	err := c.do(ctx, http.MethodPost, c.pactPath(pactID, "complete"), nil, &resp)
	return resp, err
}

func (c *Client) Fail(ctx context.Context, pactID string) (Pact, error) {
	var resp Pact
	err := c.do(ctx, http.MethodPost, c.pactPath(pactID, "fail"), nil, &resp)
	return resp, err
}

// Balance returns the wallet balance as a decimal string.
func (c *Client) Balance(ctx context.Context) (string, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	err := c.do(ctx, http.MethodGet, "v0/wallet", nil, &resp)
	return resp.Balance, err
}

// Notifications returns the notification list and unread count.
func (c *Client) Notifications(ctx context.Context) ([]Notification, int, error) {
	var resp struct {
		Items  []Notification `json:"items"`
		Unread int            `json:"unread"`
	}
	err := c.do(ctx, http.MethodGet, "v0/notifications", nil, &resp)
	return resp.Items, resp.Unread, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) pactPath(id, action string) string {
	return fmt.Sprintf("v0/pacts/%s/%s", url.PathEscape(id), action)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
