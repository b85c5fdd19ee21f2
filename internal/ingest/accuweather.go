package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"sandwach/internal/httputil"
	"sandwach/internal/metrics"
	"sandwach/internal/models"
)

const DefaultBaseURL = "http://dataservice.accuweather.com"

var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrProviderRateLimited = errors.New("weather provider rate limited")
)

// Client fetches current conditions and the 12-hour hourly forecast from
// AccuWeather. The provider has a low daily call quota, so calls run behind
// a circuit breaker and a bounded retry.
type Client struct {
	apiKey      string
	locationKey string
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	maxRetry    time.Duration
	now         func() time.Time
}

func NewClient(apiKey, locationKey string) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "accuweather",
		Timeout: 5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Client{
		apiKey:      apiKey,
		locationKey: locationKey,
		baseURL:     DefaultBaseURL,
		client:      httputil.NewClient(0),
		breaker:     breaker,
		maxRetry:    2 * time.Minute,
		now:         time.Now,
	}
}

type currentConditions struct {
	EpochTime   int64  `json:"EpochTime"`
	WeatherText string `json:"WeatherText"`
	Temperature struct {
		Imperial struct {
			Value float64 `json:"Value"`
		} `json:"Imperial"`
	} `json:"Temperature"`
}

type hourlyEntry struct {
	EpochDateTime int64 `json:"EpochDateTime"`
	Temperature   struct {
		Value float64 `json:"Value"`
	} `json:"Temperature"`
	PrecipitationProbability int `json:"PrecipitationProbability"`
}

// FetchSnapshot retrieves current conditions plus the hourly forecast and
// merges them into a ForecastSnapshot.
func (c *Client) FetchSnapshot() (*models.ForecastSnapshot, error) {
	var current []currentConditions
	if err := c.getJSON("currentconditions", fmt.Sprintf("/currentconditions/v1/%s", c.locationKey), &current); err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%w: empty current conditions for %s", ErrProviderUnavailable, c.locationKey)
	}

	var hourly []hourlyEntry
	if err := c.getJSON("hourly12", fmt.Sprintf("/forecasts/v1/hourly/12hour/%s", c.locationKey), &hourly); err != nil {
		return nil, err
	}
	if len(hourly) == 0 {
		return nil, fmt.Errorf("%w: empty hourly forecast for %s", ErrProviderUnavailable, c.locationKey)
	}

	fetchedAt := c.now().UTC()
	snap := &models.ForecastSnapshot{
		FetchedAt:   fetchedAt,
		CurrentTemp: current[0].Temperature.Imperial.Value,
	}

	lastOffset := 0
	for _, h := range hourly {
		ts := time.Unix(h.EpochDateTime, 0).UTC()
		offset := int(math.Round(ts.Sub(fetchedAt).Hours()))
		if offset <= lastOffset {
			// Out-of-order or duplicate entries from the provider are dropped
			// rather than violating the increasing-offset invariant.
			continue
		}
		snap.Hourly = append(snap.Hourly, models.HourlyPoint{
			HourOffset: offset,
			Time:       ts,
			Temp:       h.Temperature.Value,
			PrecipProb: h.PrecipitationProbability,
		})
		lastOffset = offset
	}

	if !snap.Valid() {
		return nil, fmt.Errorf("%w: no usable hourly entries", ErrProviderUnavailable)
	}
	return snap, nil
}

func (c *Client) getJSON(endpoint, path string, v any) error {
	url := fmt.Sprintf("%s%s?apikey=%s&details=true", c.baseURL, path, c.apiKey)

	var body []byte
	operation := func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			start := time.Now()
			resp, err := c.client.Get(url)
			metrics.ProviderAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.ProviderAPICalls.WithLabelValues(endpoint, "error").Inc()
				return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
			}
			defer resp.Body.Close()
			metrics.ProviderAPICalls.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			switch {
			case resp.StatusCode == http.StatusOK:
				b, err := io.ReadAll(resp.Body)
				if err != nil {
					return nil, backoff.Permanent(fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err))
				}
				body = b
				return nil, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, fmt.Errorf("%w: status %d", ErrProviderRateLimited, resp.StatusCode)
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
			default:
				b, _ := io.ReadAll(resp.Body)
				return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, string(b)))
			}
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry
	if err := backoff.Retry(operation, bo); err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: unmarshal %s: %v", ErrProviderUnavailable, endpoint, err)
	}
	return nil
}
