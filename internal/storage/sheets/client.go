package sheets

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

	"golang.org/x/time/rate"

	"github.com/mcoot/keyquest/internal/storage"
)

// Client talks to a spreadsheet-style REST API that exposes a table as
// records of named fields.
//
//	GET    {base}/{table}?pageSize=&offset=   list page
//	GET    {base}/{table}/{id}                single record
//	POST   {base}/{table}      {fields}       create
//	PATCH  {base}/{table}/{id} {fields}       partial update
type Client struct {
	tableURL   string
	token      string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// record is the wire representation of one row
type record struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// New creates a new sheets client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("sheets: base URL is required")
	}
	if cfg.Table == "" {
		return nil, errors.New("sheets: table is required")
	}
	defaults := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}

	return &Client{
		tableURL:   strings.TrimSuffix(cfg.BaseURL, "/") + "/" + url.PathEscape(cfg.Table),
		token:      cfg.Token,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Ensure Client implements the interface
var _ storage.Table = (*Client)(nil)

func (c *Client) Scan(ctx context.Context) ([]storage.Row, error) {
	var rows []storage.Row
	offset := ""
	for {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(c.pageSize))
		if offset != "" {
			query.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL+"?"+query.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			rows = append(rows, toRow(rec))
		}
		if page.Offset == "" {
			return rows, nil
		}
		offset = page.Offset
	}
}

func (c *Client) Get(ctx context.Context, loc storage.Locator) (storage.Row, error) {
	var rec record
	if err := c.do(ctx, http.MethodGet, c.recordURL(loc), nil, &rec); err != nil {
		return storage.Row{}, err
	}
	return toRow(rec), nil
}

func (c *Client) Append(ctx context.Context, values map[storage.Column]string) (storage.Locator, error) {
	var rec record
	if err := c.do(ctx, http.MethodPost, c.tableURL, record{Fields: toFields(values)}, &rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", fmt.Errorf("%w: create returned no record id", storage.ErrMalformedRequest)
	}
	return storage.Locator(rec.ID), nil
}

func (c *Client) UpdateCells(ctx context.Context, loc storage.Locator, values map[storage.Column]string) error {
	return c.do(ctx, http.MethodPatch, c.recordURL(loc), record{Fields: toFields(values)}, nil)
}

func (c *Client) recordURL(loc storage.Locator) string {
	return c.tableURL + "/" + url.PathEscape(string(loc))
}

// do paces, sends and classifies one API call
func (c *Client) do(ctx context.Context, method, reqURL string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", storage.ErrMalformedRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Timeouts, DNS failures and refused connections all land here
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: decode response: %w", storage.ErrTransient, err)
		}
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the store error taxonomy
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Keep a short excerpt of the body for logs
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	detail := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", storage.ErrRateLimited, detail)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", storage.ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", storage.ErrRowNotFound, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", storage.ErrTransient, detail)
	default:
		return fmt.Errorf("%w: %s", storage.ErrMalformedRequest, detail)
	}
}

func toFields(values map[storage.Column]string) map[string]any {
	fields := make(map[string]any, len(values))
	for col, v := range values {
		fields[string(col)] = v
	}
	return fields
}

// toRow flattens API field values to strings. Checkbox columns come back
// as JSON booleans and are mapped onto TRUE/FALSE.
func toRow(rec record) storage.Row {
	values := make(map[storage.Column]string, len(rec.Fields))
	for name, v := range rec.Fields {
		switch tv := v.(type) {
		case string:
			values[storage.Column(name)] = tv
		case bool:
			if tv {
				values[storage.Column(name)] = storage.True
			} else {
				values[storage.Column(name)] = storage.False
			}
		case nil:
		default:
			values[storage.Column(name)] = fmt.Sprint(tv)
		}
	}
	return storage.Row{Locator: storage.Locator(rec.ID), Values: values}
}
