package marketdata

import "strings"

// symbolSectors pins the default NSE watchlist to rule-table sectors.
// Alpha Vantage returns no OVERVIEW for most BSE listings.
var symbolSectors = map[string]string{
	"RELIANCE":   "Oil & Gas",
	"ONGC":       "Oil & Gas",
	"TCS":        "Technology",
	"INFY":       "Technology",
	"WIPRO":      "Technology",
	"HCLTECH":    "Technology",
	"HDFCBANK":   "Banking",
	"ICICIBANK":  "Banking",
	"SBIN":       "Banking",
	"KOTAKBANK":  "Banking",
	"BAJFINANCE": "Finance",
	"TATASTEEL":  "Mining",
	"JSWSTEEL":   "Mining",
	"COALINDIA":  "Mining",
	"SUNPHARMA":  "Pharmaceuticals",
	"CIPLA":      "Pharmaceuticals",
	"DRREDDY":    "Pharmaceuticals",
	"ITC":        "FMCG",
	"HINDUNILVR": "FMCG",
	"NESTLEIND":  "FMCG",
	"BHARTIARTL": "Telecom",
	"MARUTI":     "Automotive",
	"TATAMOTORS": "Automotive",
	"NTPC":       "Power",
	"POWERGRID":  "Power",
	"LT":         "Construction",
	"DLF":        "Real Estate",
	"TITAN":      "Luxury Goods",
	"INDIGO":     "Aviation",
}

// overviewSectors maps Alpha Vantage OVERVIEW sector labels
var overviewSectors = map[string]string{
	"TECHNOLOGY":             "Technology",
	"FINANCIAL SERVICES":     "Finance",
	"FINANCE":                "Finance",
	"ENERGY":                 "Energy",
	"HEALTHCARE":             "Pharmaceuticals",
	"LIFE SCIENCES":          "Pharmaceuticals",
	"BASIC MATERIALS":        "Chemicals",
	"CONSUMER DEFENSIVE":     "FMCG",
	"CONSUMER CYCLICAL":      "Automotive",
	"COMMUNICATION SERVICES": "Telecom",
	"REAL ESTATE":            "Real Estate",
	"UTILITIES":              "Power",
	"INDUSTRIALS":            "Machinery",
	"MANUFACTURING":          "Machinery",
}

// NormalizeSector resolves the sector a stock is scored under: the
// watchlist pin, then the mapped OVERVIEW label, then the raw label.
func NormalizeSector(symbol, raw string) string {
	if s, ok := symbolSectors[baseSymbol(symbol)]; ok {
		return s
	}
	if s, ok := overviewSectors[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	if strings.TrimSpace(raw) == "" {
		return "Unknown"
	}
	return raw
}

// baseSymbol drops the exchange suffix: "tcs.BSE" -> "TCS"
func baseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(strings.SplitN(symbol, ".", 2)[0]))
}
