/*
This file fetches historical hourly prices from the CryptoCompare API.

The risk manager fits its return model to these prices when a price source is
configured, instead of using the static mean and standard deviation.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/types"
)

var priceLogger = logger.GetForComponent("price_retriever")

var ErrInvalidPriceData = errors.New("invalid price data received")
var ErrAPIConfiguration = errors.New("API configuration error")

const (
	DefaultBaseURL = "https://min-api.cryptocompare.com/data/v2/histohour"
	DefaultHours   = 720 // 30 days of hourly closes
	MaxRetries     = 3
	RequestTimeout = 30 * time.Second
)

type cryptoCompareResponse struct {
	Response   string `json:"Response"`
	Message    string `json:"Message"`
	HasWarning bool   `json:"HasWarning"`
	Data       struct {
		Data []histoHour `json:"Data"`
	} `json:"Data"`
}

type histoHour struct {
	Time  int64   `json:"time"`
	Close float64 `json:"close"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
}

// PriceFetcher retrieves hourly USD closes for a token.
type PriceFetcher struct {
	BaseURL string
	APIKey  string
	Hours   int
	Client  *http.Client
	// Backoff is the base delay between retries; attempt n waits n*Backoff.
	Backoff time.Duration
}

// NewPriceFetcher creates a fetcher for the public CryptoCompare endpoint.
func NewPriceFetcher(apiKey string, hours int) (*PriceFetcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrAPIConfiguration)
	}
	if hours <= 1 {
		hours = DefaultHours
	}
	return &PriceFetcher{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Hours:   hours,
		Client:  &http.Client{Timeout: RequestTimeout},
		Backoff: time.Second,
	}, nil
}

// FetchHourlyPrices returns the last Hours hourly closes of coin, oldest first.
func (f *PriceFetcher) FetchHourlyPrices(ctx context.Context, coin string) ([]types.PriceData, error) {
	coin = strings.TrimSpace(strings.ToUpper(coin))
	if coin == "" {
		return nil, fmt.Errorf("%w: empty coin symbol", ErrAPIConfiguration)
	}

	query := url.Values{}
	query.Set("fsym", coin)
	query.Set("tsym", "USD")
	query.Set("limit", strconv.Itoa(f.Hours))
	query.Set("api_key", f.APIKey)
	endpoint := f.BaseURL + "?" + query.Encode()

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		priceLogger.Debug().
			Str("coin", coin).
			Int("attempt", attempt).
			Msg("Making API request")

		result, err := f.fetchOnce(ctx, endpoint, coin)
		if err == nil {
			priceLogger.Info().
				Str("coin", coin).
				Int("dataPoints", len(result)).
				Time("oldestData", result[0].Timestamp).
				Time("newestData", result[len(result)-1].Timestamp).
				Msg("Successfully retrieved and validated price data")
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrInvalidPriceData) {
			break
		}

		priceLogger.Warn().
			Err(err).
			Str("coin", coin).
			Int("attempt", attempt).
			Msg("Price request failed, will retry if attempts remain")
		if attempt < MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * f.Backoff):
			}
		}
	}

	priceLogger.Error().
		Err(lastErr).
		Str("coin", coin).
		Msg("All retry attempts failed")
	return nil, fmt.Errorf("failed to fetch price data for %s: %w", coin, lastErr)
}

func (f *PriceFetcher) fetchOnce(ctx context.Context, endpoint, coin string) ([]types.PriceData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d for %s", resp.StatusCode, coin)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", coin, err)
	}

	var parsed cryptoCompareResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response for %s: %v", ErrInvalidPriceData, coin, err)
	}
	if parsed.Response != "Success" {
		return nil, fmt.Errorf("API error for %s: %s - %s", coin, parsed.Response, parsed.Message)
	}
	if parsed.HasWarning {
		priceLogger.Warn().Str("coin", coin).Str("message", parsed.Message).Msg("API returned warning but has data - continuing")
	}
	return convertHistory(parsed.Data.Data, coin)
}

// convertHistory validates the points and converts them to PriceData.
func convertHistory(points []histoHour, coin string) ([]types.PriceData, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: %d data points for %s, need at least 2", ErrInvalidPriceData, len(points), coin)
	}

	prices := make([]types.PriceData, 0, len(points))
	for i, p := range points {
		if p.Time <= 0 {
			return nil, fmt.Errorf("%w: invalid timestamp %d at index %d for %s", ErrInvalidPriceData, p.Time, i, coin)
		}
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return nil, fmt.Errorf("%w: close price %v at index %d for %s", ErrInvalidPriceData, p.Close, i, coin)
		}
		if p.High < p.Low || p.Close < p.Low || p.Close > p.High {
			return nil, fmt.Errorf("%w: close %v outside [%v, %v] at index %d for %s", ErrInvalidPriceData, p.Close, p.Low, p.High, i, coin)
		}
		ts := time.Unix(p.Time, 0).UTC()
		if len(prices) > 0 && !ts.After(prices[len(prices)-1].Timestamp) {
			return nil, fmt.Errorf("%w: data points not in chronological order at index %d for %s", ErrInvalidPriceData, i, coin)
		}
		prices = append(prices, types.PriceData{Timestamp: ts, Price: p.Close})
	}
	return prices, nil
}
