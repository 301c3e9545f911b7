package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
)

const (
	loginPath    = "/api/auth/login/"
	listingsPath = "/api/community/market/"
	ordersPath   = "/api/community/market/orders/"
	reportsPath  = "/api/community/reports/"
)

// Client talks to the GreenBite REST API
type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy that authenticates with a bearer access token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, creds domain.UserLogin) (*domain.TokenPair, error) {
	var pair domain.TokenPair
	if err := c.doJSON(ctx, http.MethodPost, loginPath, creds, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

type listResponse struct {
	Count   int              `json:"count"`
	Results []domain.Listing `json:"results"`
}

// ListListings fetches listings filtered server-side. Both paginated and
// bare-array responses are accepted.
func (c *Client) ListListings(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	path := listingsPath
	if q := criteria.Values().Encode(); q != "" {
		path += "?" + q
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []domain.Listing
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("failed to decode listings: %w", err)
		}
		return &domain.ListingPage{Results: results, Count: len(results)}, nil
	}

	var resp listResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	if resp.Results == nil {
		resp.Results = []domain.Listing{}
	}
	return &domain.ListingPage{Results: resp.Results, Count: resp.Count}, nil
}

// GetListing fetches a single listing
func (c *Client) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := c.doJSON(ctx, http.MethodGet, listingsPath+url.PathEscape(id)+"/", nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateListing submits a new listing as multipart form data
func (c *Client) CreateListing(ctx context.Context, p *listingform.Payload) (*domain.Listing, error) {
	return c.sendListing(ctx, http.MethodPost, listingsPath, p)
}

// UpdateListing patches an existing listing. The image is sent only when set.
func (c *Client) UpdateListing(ctx context.Context, id string, p *listingform.Payload) (*domain.Listing, error) {
	return c.sendListing(ctx, http.MethodPatch, listingsPath+url.PathEscape(id)+"/", p)
}

// DeleteListing removes a listing
func (c *Client) DeleteListing(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, listingsPath+url.PathEscape(id)+"/", nil, nil)
}

// CreateOrder places a cash-on-delivery order
func (c *Client) CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.OrderReceipt, error) {
	var receipt domain.OrderReceipt
	if err := c.doJSON(ctx, http.MethodPost, ordersPath, order, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// SubmitReview rates a listing
func (c *Client) SubmitReview(ctx context.Context, listingID string, review domain.ReviewCreate) error {
	return c.doJSON(ctx, http.MethodPost, listingsPath+url.PathEscape(listingID)+"/reviews/", review, nil)
}

// SubmitReport flags a listing or user
func (c *Client) SubmitReport(ctx context.Context, report domain.ReportCreate) error {
	return c.doJSON(ctx, http.MethodPost, reportsPath, report, nil)
}

func (c *Client) sendListing(ctx context.Context, method, path string, p *listingform.Payload) (*domain.Listing, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":           p.Title,
		"price":           p.Price.String(),
		"currency":        p.Currency,
		"quantity":        strconv.Itoa(p.Quantity),
		"unit":            p.Unit,
		"available_until": p.AvailableUntil,
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	if p.Image != nil {
		fw, err := mw.CreateFormFile("featured_image", p.Image.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := fw.Write(p.Image.Data); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var l domain.Listing
	if err := c.do(req, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
