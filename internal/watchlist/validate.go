package watchlist

import (
	"fmt"

	"github.com/wonny/astrostocks/internal/astro"
)

// MaxStocks bounds one watchlist; every symbol costs an API call per TTL
const MaxStocks = 200

// ValidationError fails the load
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a usable but suspicious entry
type Warning struct {
	Code    string
	Message string
}

// Validate checks required fields and duplicate symbols. A sector the
// rule table never predicts is a warning: such stocks score on
// performance alone.
func Validate(w *Watchlist) ([]Warning, error) {
	if len(w.Stocks) == 0 {
		return nil, ValidationError{"stocks", "at least one stock required"}
	}
	if len(w.Stocks) > MaxStocks {
		return nil, ValidationError{"stocks", fmt.Sprintf("at most %d stocks", MaxStocks)}
	}

	var warnings []Warning
	seen := make(map[string]bool, len(w.Stocks))
	for i, e := range w.Stocks {
		field := fmt.Sprintf("stocks[%d]", i)
		if e.Symbol == "" {
			return nil, ValidationError{field + ".symbol", "required"}
		}
		if seen[e.Symbol] {
			return nil, ValidationError{field + ".symbol", fmt.Sprintf("duplicate symbol %s", e.Symbol)}
		}
		seen[e.Symbol] = true

		if e.Sector == "" {
			return nil, ValidationError{field + ".sector", "required"}
		}
		switch e.Volatility {
		case "", "Low", "Medium", "High":
		default:
			return nil, ValidationError{field + ".volatility", "must be Low, Medium or High"}
		}

		if !astro.KnownSector(e.Sector) {
			warnings = append(warnings, Warning{
				Code:    "UNKNOWN_SECTOR",
				Message: fmt.Sprintf("%s: sector %q is not in the rule table", e.Symbol, e.Sector),
			})
		}
	}
	return warnings, nil
}
