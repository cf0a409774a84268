// Package warehouse talks to a Databricks SQL warehouse through the SQL
// Statement Execution REST API and exposes the game tables as a store.DB.
//
// Statements run synchronously: the client asks the warehouse to wait up to
// WaitTimeout for a result and cancels the statement if it is not done by
// then. Nothing is retried.
//
// # Usage
//
//	client := warehouse.NewClient(warehouse.Config{
//	    Host:        "dbc-1234.cloud.databricks.com",
//	    WarehouseID: "abc123",
//	    Token:       token,
//	})
//	res, err := client.Execute(ctx, "SELECT 1")
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const statementsPath = "/api/2.0/sql/statements"

// Config holds configuration for the warehouse client.
type Config struct {
	// Host is the workspace host, with or without scheme.
	Host string

	// WarehouseID selects the SQL warehouse that runs statements.
	WarehouseID string

	// Token is a personal access token sent as a bearer token.
	Token string

	// Catalog and Schema set the default namespace for unqualified names.
	Catalog string
	Schema  string

	// WaitTimeout is how long the warehouse may hold a request open.
	// The API accepts 5s to 50s. Defaults to 30s.
	WaitTimeout time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client
}

// Client executes SQL statements on one warehouse.
type Client struct {
	config Config
	http   *http.Client
	mu     sync.RWMutex
}

// NewClient creates a warehouse client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	if cfg.WaitTimeout < 5*time.Second {
		cfg.WaitTimeout = 5 * time.Second
	}
	if cfg.WaitTimeout > 50*time.Second {
		cfg.WaitTimeout = 50 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.WaitTimeout + 10*time.Second}
	}

	return &Client{config: cfg, http: httpClient}
}

// SetToken replaces the access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Token = token
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Token
}

// Host returns the configured workspace host.
func (c *Client) Host() string {
	return c.config.Host
}

// Execute runs one statement and returns its inline result.
func (c *Client) Execute(ctx context.Context, statement string, params ...Param) (*Result, error) {
	if c.config.WarehouseID == "" {
		return nil, fmt.Errorf("warehouse: no warehouse id configured")
	}
	req := statementRequest{
		WarehouseID:   c.config.WarehouseID,
		Statement:     statement,
		Parameters:    params,
		Catalog:       c.config.Catalog,
		Schema:        c.config.Schema,
		WaitTimeout:   fmt.Sprintf("%ds", int(c.config.WaitTimeout/time.Second)),
		OnWaitTimeout: "CANCEL",
		Disposition:   "INLINE",
		Format:        "JSON_ARRAY",
	}

	var resp statementResponse
	if err := c.doRequest(ctx, http.MethodPost, statementsPath, req, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// doRequest sends one request to the workspace API and decodes the JSON body into out.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	base := c.config.Host
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	url := strings.TrimRight(base, "/") + path

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("warehouse: marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("warehouse: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("warehouse: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("warehouse: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: apiMessage(respBody)}
	case resp.StatusCode != http.StatusOK:
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("warehouse: decode response: %w", err)
	}
	return nil
}

// apiMessage extracts the "message" field of an API error body.
func apiMessage(body []byte) string {
	var e struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
