// Package salesapi reads the aggregate endpoints of the sales backend.
package salesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
)

// ErrMalformed marks responses that could not be decoded or failed validation.
var ErrMalformed = errors.New("salesapi: malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("salesapi: %s returned status %d", e.Endpoint, e.Code)
}

// Endpoint paths relative to the API prefix.
const (
	PathHourlySales        = "/hourly_sales"
	PathProfitDistribution = "/profit_distribution"
	PathTimeOfDaySales     = "/time_of_day_sales"
	PathKPI                = "/kpi"
	PathRecentSales        = "/recent_sales"
)

const maxBodyBytes = 4 << 20

// Client wraps HTTP access to the sales backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient builds a client for baseURL joined with prefix (for example "/api").
func NewClient(baseURL, prefix string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("salesapi: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("salesapi: base url %q must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(u.String(), "/")
	if p := strings.Trim(prefix, "/"); p != "" {
		base += "/" + p
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// BaseURL returns the resolved endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HourlySales returns today's revenue and profit per hour.
func (c *Client) HourlySales(ctx context.Context) ([]dashboard.HourlyPoint, error) {
	var points []dashboard.HourlyPoint
	if err := c.getJSON(ctx, PathHourlySales, &points); err != nil {
		return nil, err
	}
	if err := validateEach(c.validate, PathHourlySales, points); err != nil {
		return nil, err
	}
	return points, nil
}

// ProfitDistribution returns the daily min/max/avg profit bands.
func (c *Client) ProfitDistribution(ctx context.Context) ([]dashboard.ProfitBand, error) {
	var bands []dashboard.ProfitBand
	if err := c.getJSON(ctx, PathProfitDistribution, &bands); err != nil {
		return nil, err
	}
	if err := validateEach(c.validate, PathProfitDistribution, bands); err != nil {
		return nil, err
	}
	for i, b := range bands {
		if b.Min.GreaterThan(b.Max) {
			return nil, fmt.Errorf("%w: %s[%d]: min above max", ErrMalformed, PathProfitDistribution, i)
		}
	}
	return bands, nil
}

// TimeOfDaySales returns revenue grouped into parts of the day.
func (c *Client) TimeOfDaySales(ctx context.Context) ([]dashboard.TimeOfDaySlice, error) {
	var rows []timeOfDayRow
	if err := c.getJSON(ctx, PathTimeOfDaySales, &rows); err != nil {
		return nil, err
	}
	slices := make([]dashboard.TimeOfDaySlice, 0, len(rows))
	for _, r := range rows {
		slices = append(slices, r.toSlice())
	}
	if err := validateEach(c.validate, PathTimeOfDaySales, slices); err != nil {
		return nil, err
	}
	return slices, nil
}

// KPI returns the headline KPI summary.
func (c *Client) KPI(ctx context.Context) (dashboard.KPISummary, error) {
	var summary dashboard.KPISummary
	if err := c.getJSON(ctx, PathKPI, &summary); err != nil {
		return dashboard.KPISummary{}, err
	}
	if err := c.validate.Struct(summary); err != nil {
		return dashboard.KPISummary{}, fmt.Errorf("%w: %s: %v", ErrMalformed, PathKPI, err)
	}
	return summary, nil
}

// RecentSales returns the latest transactions, newest first.
func (c *Client) RecentSales(ctx context.Context) ([]dashboard.RecentSale, error) {
	var sales []dashboard.RecentSale
	if err := c.getJSON(ctx, PathRecentSales, &sales); err != nil {
		return nil, err
	}
	if err := validateEach(c.validate, PathRecentSales, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("salesapi: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("salesapi: get %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: path, Code: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

func validateEach[T any](v *validator.Validate, path string, items []T) error {
	for i := range items {
		if err := v.Struct(items[i]); err != nil {
			return fmt.Errorf("%w: %s[%d]: %v", ErrMalformed, path, i, err)
		}
	}
	return nil
}
