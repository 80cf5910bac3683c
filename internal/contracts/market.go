package contracts

import "time"

// StockRecord is one stock's market snapshot. Missing metrics read as
// zero; an empty volatility reads as Medium.
// ⭐ SSOT: market data → scorer
type StockRecord struct {
	Symbol        string     `json:"symbol"`
	Sector        string     `json:"sector"`
	CurrentPrice  float64    `json:"current_price"`
	OpenPrice     float64    `json:"open_price,omitempty"`
	High          float64    `json:"high,omitempty"`
	Low           float64    `json:"low,omitempty"`
	Volume        float64    `json:"volume,omitempty"`
	ChangePercent float64    `json:"change_percent"`
	Past6MReturn  float64    `json:"past_6m_return"`
	Volatility    string     `json:"volatility"`
	PERatio       float64    `json:"pe_ratio,omitempty"`
	MarketCap     float64    `json:"market_cap,omitempty"`
	Week52High    float64    `json:"week_52_high,omitempty"`
	Week52Low     float64    `json:"week_52_low,omitempty"`
	CachedAt      *time.Time `json:"cached_at,omitempty"`
}

// VolatilityOrDefault returns Medium when unset
func (s StockRecord) VolatilityOrDefault() string {
	if s.Volatility == "" {
		return "Medium"
	}
	return s.Volatility
}
