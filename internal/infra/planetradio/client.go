// Package planetradio provides a client for the Planet Radio listen API.
package planetradio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	rhttp "github.com/hashicorp/go-retryablehttp"
	zlog "github.com/rs/zerolog/log"
)

// TimeLayout is the timestamp format used by the events endpoint, both in
// request paths and in nowPlayingTime.
const TimeLayout = "2006-01-02 15:04:05"

// MaxPageSize is the largest page the events endpoint serves.
const MaxPageSize = 100

// DefaultBaseURL is the public listen API root.
const DefaultBaseURL = "https://listenapi.planetradio.co.uk/api9.2"

// Client is a Planet Radio listen API client.
type Client struct {
	baseURL    string
	httpClient *rhttp.Client
}

// Config represents Planet Radio client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int // 0 disables retries
}

// Event is a single entry of a station's play history.
type Event struct {
	Artist string `json:"nowPlayingArtist"`
	Track  string `json:"nowPlayingTrack"`
	Time   string `json:"nowPlayingTime"`
}

// Station is an entry of the station directory.
type Station struct {
	Code string `json:"stationCode"`
	Name string `json:"stationName"`
}

// New creates a new Planet Radio client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := rhttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = time.Second
	httpClient.RetryWaitMax = 10 * time.Second
	httpClient.Logger = nil
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Events retrieves up to pageSize events aired on the station up to the given time.
// Reference: GET /events/{stationId}/{YYYY-MM-DD HH:MM:SS}/{pageSize}
func (c *Client) Events(ctx context.Context, stationID string, until time.Time, pageSize int) ([]Event, error) {
	if stationID == "" {
		return nil, errors.New("station id is required")
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	reqURL := fmt.Sprintf("%s/events/%s/%s/%d",
		c.baseURL,
		url.PathEscape(stationID),
		url.PathEscape(until.Format(TimeLayout)),
		pageSize,
	)

	var events []Event
	if err := c.getJSON(ctx, reqURL, &events); err != nil {
		return nil, errors.Wrapf(err, "failed to get events for station %s", stationID)
	}

	zlog.Debug().Msgf("fetched station events: station=%s until=%s count=%d",
		stationID, until.Format(TimeLayout), len(events))
	return events, nil
}

// Stations retrieves the station directory for a country.
// Reference: GET /stations/{country}?premium=1
func (c *Client) Stations(ctx context.Context, country string) ([]Station, error) {
	if country == "" {
		country = "GB"
	}

	params := url.Values{}
	params.Set("premium", "1")
	reqURL := fmt.Sprintf("%s/stations/%s?%s", c.baseURL, url.PathEscape(country), params.Encode())

	var stations []Station
	if err := c.getJSON(ctx, reqURL, &stations); err != nil {
		return nil, errors.Wrap(err, "failed to get stations")
	}
	return stations, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := rhttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
