package watchlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
meta:
  name: nifty-core
  exchange: BSE
stocks:
  - symbol: reliance
    sector: Oil & Gas
  - symbol: TCS
    sector: Technology
    volatility: Low
  - symbol: ZOMATO
    sector: Food Delivery
`

func TestParse(t *testing.T) {
	w, warnings, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "nifty-core", w.Meta.Name)
	assert.Equal(t, []string{"RELIANCE", "TCS", "ZOMATO"}, w.Symbols())
	assert.Equal(t, "Low", w.Stocks[1].Volatility)

	require.Len(t, warnings, 1)
	assert.Equal(t, "UNKNOWN_SECTOR", warnings[0].Code)
	assert.Contains(t, warnings[0].Message, "ZOMATO")
}

func TestParse_UnknownField(t *testing.T) {
	_, _, err := Parse([]byte("stocks:\n  - symbol: TCS\n    sector: Technology\n    weight: 2\n"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"empty", "meta:\n  name: x\n", "stocks"},
		{"no symbol", "stocks:\n  - sector: Technology\n", "stocks[0].symbol"},
		{"duplicate", "stocks:\n  - {symbol: TCS, sector: Technology}\n  - {symbol: tcs, sector: Technology}\n", "stocks[1].symbol"},
		{"no sector", "stocks:\n  - symbol: TCS\n", "stocks[0].sector"},
		{"volatility", "stocks:\n  - {symbol: TCS, sector: Technology, volatility: Extreme}\n", "stocks[0].volatility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.yaml))
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	w, _, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, w.Stocks, 3)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash_Stable(t *testing.T) {
	a, _, err := Parse([]byte(sample))
	require.NoError(t, err)
	b, _, err := Parse([]byte(sample))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Stocks[0].Sector = "Energy"
	hc, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
