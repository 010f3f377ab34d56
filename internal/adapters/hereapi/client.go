// Package hereapi implements ports.RouteProvider against the HERE Routing
// API v8.
package hereapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/planning"
	"github.com/otzarri/fleetplan/internal/core/ports"
	"github.com/otzarri/fleetplan/internal/pkg/metrics"
)

// Client calls the HERE Routing API.
type Client struct {
	baseURL    string
	apiKey     string
	session    *http.Client
	maxRetries int
}

// New creates a routing client. timeout bounds a single attempt; retries on
// transient failures happen on top of it.
func New(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		session:    &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// FetchRoute requests a route and returns its raw sections. The polylines
// stay encoded; decoding and stitching is the assembler's job.
func (c *Client) FetchRoute(ctx context.Context, req ports.RouteRequest) ([]domain.RouteSection, error) {
	u := c.routesURL(req)

	start := time.Now()
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, u)
	})
	metrics.ProviderRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	metrics.ProviderRequests.WithLabelValues("ok").Inc()

	var body routesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Routes) == 0 {
		return nil, nil
	}

	sections := make([]domain.RouteSection, 0, len(body.Routes[0].Sections))
	for _, ws := range body.Routes[0].Sections {
		sections = append(sections, ws.toDomain())
	}
	return sections, nil
}

func (c *Client) routesURL(req ports.RouteRequest) string {
	q := url.Values{}
	q.Set("transportMode", transportMode(req.TollProfile))
	q.Set("origin", coord(req.Origin))
	q.Set("destination", coord(req.Destination))
	for _, p := range req.Via {
		q.Add("via", coord(p))
	}
	if len(req.AvoidAreas) > 0 {
		q.Set("avoid[areas]", strings.Join(req.AvoidAreas, planning.AvoidAreaSeparator))
	}
	q.Set("return", "polyline,summary,tolls")
	q.Set("spans", "notices")
	if p := req.TollProfile; p != nil {
		if p.AxleCount > 0 {
			q.Set("vehicle[axleCount]", strconv.Itoa(p.AxleCount))
		}
		if p.GrossWeightKg > 0 {
			q.Set("vehicle[grossWeight]", strconv.Itoa(p.GrossWeightKg))
		}
		if p.HeightCm > 0 {
			q.Set("vehicle[height]", strconv.Itoa(p.HeightCm))
		}
		if p.TrailerCount > 0 {
			q.Set("vehicle[trailerCount]", strconv.Itoa(p.TrailerCount))
		}
		if p.EmissionClass != "" {
			q.Set("tolls[emissionType]", p.EmissionClass)
		}
		if p.Currency != "" {
			q.Set("currency", p.Currency)
		}
	}
	q.Set("apikey", c.apiKey)
	return c.baseURL + "/routes?" + q.Encode()
}

func coord(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

func transportMode(p *domain.TollProfile) string {
	if p == nil || p.VehicleType == "" {
		return "car"
	}
	return p.VehicleType
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider status %d: %s", e.Code, e.Body)
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429, 5xx) using
// exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == c.maxRetries+1 {
			return nil, lastErr
		}
		metrics.ProviderRetries.Inc()

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
