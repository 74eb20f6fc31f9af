package gbfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/gbfs-nearby/internal/metrics"
)

const (
	DefaultBaseURL = "https://beryl-gbfs-production.web.app/v2_2"
	userAgent      = "gbfs-nearby/1.0"
)

var ErrFeedUnavailable = errors.New("gbfs feed unavailable")

// Client reads the three GBFS datasets used to build a nearby snapshot.
type Client interface {
	StationInformation(ctx context.Context, location string) ([]StationInformation, error)
	StationStatus(ctx context.Context, location string) ([]StationStatus, error)
	FreeBikeStatus(ctx context.Context, location string) ([]FreeBike, error)
}

// HTTPClient implements Client against a GBFS host laid out as
// {baseURL}/{location}/{feed}.json.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

func NewHTTPClient(baseURL string, timeout time.Duration, m *metrics.Collector) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		tracer:  otel.Tracer("gbfs"),
	}
}

func (c *HTTPClient) StationInformation(ctx context.Context, location string) ([]StationInformation, error) {
	var env envelope[struct {
		Stations *[]StationInformation `json:"stations"`
	}]
	if err := c.fetch(ctx, location, FeedStationInformation, &env); err != nil {
		return nil, err
	}
	if env.Data.Stations == nil {
		return nil, missingList(FeedStationInformation, "stations")
	}
	return *env.Data.Stations, nil
}

func (c *HTTPClient) StationStatus(ctx context.Context, location string) ([]StationStatus, error) {
	var env envelope[struct {
		Stations *[]StationStatus `json:"stations"`
	}]
	if err := c.fetch(ctx, location, FeedStationStatus, &env); err != nil {
		return nil, err
	}
	if env.Data.Stations == nil {
		return nil, missingList(FeedStationStatus, "stations")
	}
	return *env.Data.Stations, nil
}

func (c *HTTPClient) FreeBikeStatus(ctx context.Context, location string) ([]FreeBike, error) {
	var env envelope[struct {
		Bikes *[]FreeBike `json:"bikes"`
	}]
	if err := c.fetch(ctx, location, FeedFreeBikeStatus, &env); err != nil {
		return nil, err
	}
	if env.Data.Bikes == nil {
		return nil, missingList(FeedFreeBikeStatus, "bikes")
	}
	return *env.Data.Bikes, nil
}

// FeedURL returns the address of a dataset for a location.
func (c *HTTPClient) FeedURL(location string, feed Feed) string {
	return fmt.Sprintf("%s/%s/%s.json", c.baseURL, url.PathEscape(location), feed)
}

func (c *HTTPClient) fetch(ctx context.Context, location string, feed Feed, dst any) (err error) {
	ctx, span := c.tracer.Start(ctx, "gbfs.fetch "+string(feed), trace.WithAttributes(
		attribute.String("gbfs.feed", string(feed)),
		attribute.String("gbfs.location", location),
	))
	start := time.Now()
	defer func() {
		c.metrics.ObserveFetch(string(feed), time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(location, feed), nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, feed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, feed, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrFeedUnavailable, feed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, feed, err)
	}

	return nil
}

func missingList(feed Feed, field string) error {
	return fmt.Errorf("%w: %s: missing data.%s", ErrFeedUnavailable, feed, field)
}
