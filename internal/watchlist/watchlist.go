package watchlist

// Watchlist is the set of stocks tracked for real-data analyses
// ⭐ SSOT: tracked symbols and their sector pins when WATCHLIST_PATH is set
type Watchlist struct {
	Meta   Meta    `yaml:"meta" json:"meta"`
	Stocks []Entry `yaml:"stocks" json:"stocks"`
}

// Meta describes the file
type Meta struct {
	Name     string `yaml:"name" json:"name"`
	Exchange string `yaml:"exchange" json:"exchange"` // informational, e.g. BSE
}

// Entry pins one symbol. Empty volatility keeps the market-data value.
type Entry struct {
	Symbol     string `yaml:"symbol" json:"symbol"`
	Sector     string `yaml:"sector" json:"sector"`
	Volatility string `yaml:"volatility,omitempty" json:"volatility,omitempty"`
}

// Symbols returns the tracked symbols in file order
func (w *Watchlist) Symbols() []string {
	out := make([]string, len(w.Stocks))
	for i, e := range w.Stocks {
		out[i] = e.Symbol
	}
	return out
}
