package alphavantage

import (
	"context"
	"math"
	"net/url"
	"sort"

	"github.com/markcheno/go-talib"
)

const (
	sixMonthSessions = 126
	volatilityWindow = 30
)

// History holds the metrics derived from daily adjusted closes
type History struct {
	Symbol          string
	Past6MReturn    float64
	Volatility      string
	VolatilityValue float64
	PriceTrend      string
}

type dailyResponse struct {
	apiStatus
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchHistory returns six-month metrics, or nil with fewer than two sessions
func (c *Client) FetchHistory(ctx context.Context, symbol string) (*History, error) {
	var resp dailyResponse
	extra := url.Values{"outputsize": {"compact"}}
	if err := c.call(ctx, "TIME_SERIES_DAILY_ADJUSTED", symbol, extra, &resp); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(resp.Series))
	for d := range resp.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	closes := make([]float64, len(dates))
	for i, d := range dates {
		closes[i] = number(resp.Series[d]["5. adjusted close"])
	}

	h, ok := Metrics(closes)
	if !ok {
		return nil, nil
	}
	h.Symbol = symbol
	return &h, nil
}

// Metrics derives return, volatility and trend from closes ordered
// oldest first.
func Metrics(closes []float64) (History, bool) {
	n := len(closes)
	if n < 2 {
		return History{}, false
	}

	lag := sixMonthSessions
	if lag > n-1 {
		lag = n - 1
	}
	if closes[n-1-lag] == 0 {
		return History{}, false
	}
	past6m := talib.Roc(closes, lag)[n-1]

	window := volatilityWindow
	if window > n-1 {
		window = n - 1
	}
	daily := talib.Roc(closes[n-1-window:], 1)[1:]
	vol := sampleStdDev(daily)

	return History{
		Past6MReturn:    round2(past6m),
		Volatility:      VolatilityBucket(vol),
		VolatilityValue: round2(vol),
		PriceTrend:      priceTrend(closes),
	}, true
}

// VolatilityBucket classifies a daily-return standard deviation in percent
func VolatilityBucket(stdev float64) string {
	switch {
	case stdev < 2:
		return "Low"
	case stdev < 4:
		return "Medium"
	default:
		return "High"
	}
}

// sampleStdDev uses the n-1 denominator; talib.StdDev is population-based
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// priceTrend compares the last five closes with sessions 21-25 back
func priceTrend(closes []float64) string {
	n := len(closes)
	if n < 25 {
		return "Unknown"
	}
	recent := talib.Sma(closes[n-5:], 5)[4]
	older := talib.Sma(closes[n-25:n-20], 5)[4]
	if recent > older {
		return "Upward"
	}
	return "Downward"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
