// Package netlify is a small client for the Netlify sites REST API.
package netlify

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
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/alvesdmateus/publify/internal/observability"
)

const (
	// DefaultBaseURL is the public Netlify API
	DefaultBaseURL = "https://api.netlify.com/api/v1"

	sitesPerPage = 100
	maxErrorBody = 4 << 10
)

// Options configures a Client
type Options struct {
	BaseURL    string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Tracer     *observability.Tracer
	Metrics    *observability.Metrics
	Logger     zerolog.Logger
}

// Client performs authenticated calls against the Netlify API
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	tracer    *observability.Tracer
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewClient creates a new API client
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("netlify token is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(RateLimitConfig{})
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "publify"
	}

	return &Client{
		baseURL:   baseURL,
		token:     opts.Token,
		userAgent: userAgent,
		http:      httpClient,
		limiter:   limiter,
		tracer:    tracer,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With().Str("component", "netlify-client").Logger(),
	}, nil
}

// ListSites returns every site of the account, following pagination
func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var all []Site
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(sitesPerPage))

		var sites []Site
		if err := c.do(ctx, OpListSites, http.MethodGet, "/sites?"+query.Encode(), nil, "", -1, &sites); err != nil {
			return nil, err
		}
		all = append(all, sites...)
		if len(sites) < sitesPerPage {
			break
		}
	}

	c.logger.Debug().Int("sites", len(all)).Msg("Listed sites")
	return all, nil
}

// CreateSite creates a new site from a zip archive of its files
func (c *Client) CreateSite(ctx context.Context, archive io.Reader, size int64) (*Site, error) {
	var site Site
	if err := c.do(ctx, OpCreateSite, http.MethodPost, "/sites", archive, "application/zip", size, &site); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("site_id", site.ID).
		Str("url", site.URL).
		Msg("Site created")
	return &site, nil
}

// DeleteSite deletes a site
func (c *Client) DeleteSite(ctx context.Context, siteID string) error {
	if err := c.do(ctx, OpDeleteSite, http.MethodDelete, "/sites/"+url.PathEscape(siteID), nil, "", -1, nil); err != nil {
		return err
	}

	c.logger.Info().Str("site_id", siteID).Msg("Site deleted")
	return nil
}

// SetCustomDomain assigns a custom domain to a site. A nil domain removes it.
func (c *Client) SetCustomDomain(ctx context.Context, siteID string, domain *string) (*Site, error) {
	body, err := json.Marshal(customDomainUpdate{CustomDomain: domain})
	if err != nil {
		return nil, fmt.Errorf("encode custom domain: %w", err)
	}

	var site Site
	if err := c.do(ctx, OpSetCustomDomain, http.MethodPut, "/sites/"+url.PathEscape(siteID),
		bytes.NewReader(body), "application/json", int64(len(body)), &site); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("site_id", siteID).
		Str("custom_domain", site.Domain()).
		Msg("Custom domain updated")
	return &site, nil
}

// do sends one request and decodes a JSON response into out when out is not nil
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, size int64, out interface{}) (err error) {
	endpoint := c.baseURL + path

	ctx, span := c.tracer.StartSpan(ctx, "netlify."+op)
	span.SetAttributes(observability.RequestSpanAttributes(op, method, endpoint)...)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("netlify %s: wait for rate limiter: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("netlify %s: build request: %w", op, err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(req.Header))

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", endpoint).
		Msg("Sending request")

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.record(op, method, 0, elapsed)
		return fmt.Errorf("netlify %s: %w", op, err)
	}
	defer resp.Body.Close()

	c.record(op, method, resp.StatusCode, elapsed)
	span.SetAttributes(observability.AttrHTTPStatus.Int(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug().
			Str("op", op).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("Request failed")
		return &RequestError{
			Op:         op,
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(b),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("netlify %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) record(op, method string, statusCode int, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(op, method, statusCode, elapsed.Seconds())
	}
}
