package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/astrostocks/internal/metrics"
	"github.com/wonny/astrostocks/pkg/config"
	"github.com/wonny/astrostocks/pkg/httputil"
	"github.com/wonny/astrostocks/pkg/logger"
)

var (
	// ErrThrottled is returned when the API answers with a quota note
	ErrThrottled = errors.New("alpha vantage call frequency exceeded")

	// ErrAPI is returned for an "Error Message" reply
	ErrAPI = errors.New("alpha vantage error")
)

// Client handles communication with the Alpha Vantage API
// ⭐ SSOT: Alpha Vantage calls are made only by this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	suffix     string
}

// NewClient creates a new Alpha Vantage client. The http client should
// carry the shared rate limiter.
func NewClient(httpClient *httputil.Client, cfg config.AlphaVantageConfig, log *logger.Logger) *Client {
	if cfg.APIKey == "demo" {
		log.Warn("Using Alpha Vantage demo API key")
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		suffix:     cfg.SymbolSuffix,
	}
}

// apiStatus carries the informational keys Alpha Vantage puts in a 200 reply
type apiStatus struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (s apiStatus) err() error {
	if s.ErrorMessage != "" {
		return fmt.Errorf("%w: %s", ErrAPI, s.ErrorMessage)
	}
	note := s.Note
	if note == "" {
		note = s.Information
	}
	if strings.Contains(strings.ToLower(note), "call frequency") || strings.Contains(strings.ToLower(note), "rate limit") {
		return fmt.Errorf("%w: %s", ErrThrottled, note)
	}
	return nil
}

// fullSymbol appends the exchange suffix unless the symbol has one
func (c *Client) fullSymbol(symbol string) string {
	if c.suffix == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + c.suffix
}

func (c *Client) call(ctx context.Context, function, symbol string, extra url.Values, dest interface{ err() error }) error {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", c.fullSymbol(symbol))
	params.Set("apikey", c.apiKey)
	for k, v := range extra {
		params[k] = v
	}

	err := c.httpClient.GetJSON(ctx, c.baseURL+"?"+params.Encode(), dest)
	if err == nil {
		err = dest.err()
	}
	metrics.RecordExternalCall("alphavantage", err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", function, symbol, err)
	}
	return nil
}
