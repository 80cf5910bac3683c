package alphavantage

import "context"

// Overview is the OVERVIEW fundamentals subset the scorer can use
type Overview struct {
	Symbol     string
	Sector     string
	Industry   string
	MarketCap  float64
	PERatio    float64
	Week52High float64
	Week52Low  float64
}

type overviewResponse struct {
	apiStatus
	Symbol               string `json:"Symbol"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	Week52High           string `json:"52WeekHigh"`
	Week52Low            string `json:"52WeekLow"`
}

// FetchOverview returns company fundamentals, or nil when unknown
func (c *Client) FetchOverview(ctx context.Context, symbol string) (*Overview, error) {
	var resp overviewResponse
	if err := c.call(ctx, "OVERVIEW", symbol, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Symbol == "" {
		return nil, nil
	}

	sector := resp.Sector
	if sector == "" {
		sector = "Unknown"
	}
	return &Overview{
		Symbol:     symbol,
		Sector:     sector,
		Industry:   resp.Industry,
		MarketCap:  number(resp.MarketCapitalization),
		PERatio:    number(resp.PERatio),
		Week52High: number(resp.Week52High),
		Week52Low:  number(resp.Week52Low),
	}, nil
}
