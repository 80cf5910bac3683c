package alphavantage

import (
	"context"

	"github.com/wonny/astrostocks/internal/contracts"
)

// FetchStock combines quote, overview and history into a StockRecord.
// A nil record means the symbol has no quote and must be skipped.
// Overview and history are best effort.
func (c *Client) FetchStock(ctx context.Context, symbol string) (*contracts.StockRecord, error) {
	quote, err := c.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, nil
	}

	rec := &contracts.StockRecord{
		Symbol:        symbol,
		Sector:        "Unknown",
		CurrentPrice:  quote.Price,
		OpenPrice:     quote.Open,
		High:          quote.High,
		Low:           quote.Low,
		Volume:        quote.Volume,
		ChangePercent: quote.ChangePercent,
		Volatility:    "Medium",
	}

	if ov, err := c.FetchOverview(ctx, symbol); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Overview unavailable")
	} else if ov != nil {
		rec.Sector = ov.Sector
		rec.MarketCap = ov.MarketCap
		rec.PERatio = ov.PERatio
		rec.Week52High = ov.Week52High
		rec.Week52Low = ov.Week52Low
	}

	if h, err := c.FetchHistory(ctx, symbol); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("History unavailable")
	} else if h != nil {
		rec.Past6MReturn = h.Past6MReturn
		rec.Volatility = h.Volatility
	}

	return rec, nil
}
