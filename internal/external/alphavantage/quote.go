package alphavantage

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a GLOBAL_QUOTE snapshot
type Quote struct {
	Symbol           string
	Price            float64
	Open             float64
	High             float64
	Low              float64
	Volume           float64
	ChangePercent    float64
	LatestTradingDay string
}

type quoteResponse struct {
	apiStatus
	GlobalQuote map[string]string `json:"Global Quote"`
}

// FetchQuote returns the latest quote. A nil quote means the symbol has
// no data.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp quoteResponse
	if err := c.call(ctx, "GLOBAL_QUOTE", symbol, nil, &resp); err != nil {
		return nil, err
	}

	q := resp.GlobalQuote
	if _, ok := q["05. price"]; !ok {
		c.logger.WithField("symbol", symbol).Warn("No quote data")
		return nil, nil
	}

	return &Quote{
		Symbol:           symbol,
		Price:            number(q["05. price"]),
		Open:             number(q["02. open"]),
		High:             number(q["03. high"]),
		Low:              number(q["04. low"]),
		Volume:           number(q["06. volume"]),
		ChangePercent:    number(strings.TrimSuffix(q["10. change percent"], "%")),
		LatestTradingDay: q["07. latest trading day"],
	}, nil
}

// number parses an Alpha Vantage numeric string; "None", "-" and blanks read as 0
func number(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
