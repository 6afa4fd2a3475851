// Package client is the HTTP client for the worksheet server. It satisfies
// listing.API so the browse CLI can drive a listing controller against a
// running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// Client talks to the worksheet server over HTTP, authenticating with a
// session token sent as a Bearer header.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the server at baseURL. token may be empty for anonymous use.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the session token
func (c *Client) SetToken(token string) {
	c.token = token
}

// HasToken reports whether a session token is set
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ListWorksheets fetches one page of the catalog
func (c *Client) ListWorksheets(ctx context.Context, q models.ListingQuery) (models.WorksheetPage, error) {
	v := url.Values{}
	if q.Level != "" {
		v.Set("level", string(q.Level))
	}
	if q.Skill != "" {
		v.Set("skill", string(q.Skill))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}

	path := "/worksheets"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var page models.WorksheetPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return models.WorksheetPage{}, err
	}
	return page, nil
}

// RatingSummaries fetches the rating summary of every worksheet
func (c *Client) RatingSummaries(ctx context.Context) ([]models.RatingSummary, error) {
	var out []models.RatingSummary
	if err := c.do(ctx, http.MethodGet, "/ratings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordDownload logs a download for the signed-in user
func (c *Client) RecordDownload(ctx context.Context, worksheetID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	body := map[string]string{"worksheetId": worksheetID}
	if err := c.do(ctx, http.MethodPost, "/download", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RecordRating rates a worksheet for the signed-in user
func (c *Client) RecordRating(ctx context.Context, worksheetID string, rating int) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	body := map[string]any{"worksheetId": worksheetID, "rating": rating}
	if err := c.do(ctx, http.MethodPost, "/rate", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Downloads lists the signed-in user's downloaded worksheets
func (c *Client) Downloads(ctx context.Context) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	if err := c.do(ctx, http.MethodGet, "/downloaded-worksheets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the identity behind the current token
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	var identity models.Identity
	if err := c.do(ctx, http.MethodGet, "/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SendContact posts a contact form message
func (c *Client) SendContact(ctx context.Context, name, email, message string) error {
	body := map[string]string{"name": name, "email": email, "message": message}
	return c.do(ctx, http.MethodPost, "/contact", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.mapError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) mapError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		kind = ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		kind = ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case resp.StatusCode >= 500:
		kind = ErrUnavailable
	default:
		kind = ErrBadRequest
	}
	return fmt.Errorf("%w: %s", kind, msg)
}
