package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

func signal(symbol string, sig contracts.Signal, score float64) contracts.StockSignal {
	return contracts.StockSignal{
		StockSummary: contracts.StockSummary{Symbol: symbol, Signal: sig},
		Score:        score,
	}
}

func TestRanker_BuyThenHold(t *testing.T) {
	in := []contracts.StockSignal{
		signal("A", contracts.SignalBuy, 95),
		signal("B", contracts.SignalHold, 65),
		signal("C", contracts.SignalBuy, 80),
		signal("D", contracts.SignalSell, 20),
		signal("E", contracts.SignalHold, 55),
	}

	got := NewRanker(10, logger.Nop()).Rank(in)

	if assert.Len(t, got, 4) {
		assert.Equal(t, "A", got[0].Stock.Symbol)
		assert.Equal(t, "C", got[1].Stock.Symbol)
		assert.Equal(t, "B", got[2].Stock.Symbol)
		assert.Equal(t, "E", got[3].Stock.Symbol)
		for i, r := range got {
			assert.Equal(t, i+1, r.Rank)
			assert.NotEqual(t, contracts.SignalSell, r.Stock.Signal)
		}
		assert.Equal(t, 95.0, got[0].Score)
	}
}

func TestRanker_Limit(t *testing.T) {
	in := []contracts.StockSignal{
		signal("A", contracts.SignalBuy, 90),
		signal("B", contracts.SignalBuy, 85),
		signal("C", contracts.SignalBuy, 75),
		signal("D", contracts.SignalHold, 60),
	}

	got := NewRanker(2, logger.Nop()).Rank(in)
	assert.Len(t, got, 2)
	assert.Equal(t, "B", got[1].Stock.Symbol)

	got = NewRanker(4, logger.Nop()).Rank(in)
	assert.Equal(t, "D", got[3].Stock.Symbol)
}

func TestRanker_OnlySell(t *testing.T) {
	got := NewRanker(10, logger.Nop()).Rank([]contracts.StockSignal{signal("X", contracts.SignalSell, 10)})
	assert.Empty(t, got)
}

func TestRanker_Pipeline(t *testing.T) {
	stocks := []contracts.StockRecord{
		{Symbol: "RELIANCE", Sector: "Energy", Past6MReturn: 22, ChangePercent: 2.5, Volatility: "Low"},
		{Symbol: "HDFCBANK", Sector: "Banking", Past6MReturn: -12, ChangePercent: -1},
		{Symbol: "TCS", Sector: "Technology", Past6MReturn: 8, ChangePercent: 0.4},
	}
	views := map[string]SectorView{
		"Energy":  {Trend: contracts.TrendBullish, Confidence: 0.65},
		"Banking": {Trend: contracts.TrendBearish, Confidence: 0.45},
	}

	recs := NewRanker(10, logger.Nop()).Rank(ScoreAll(stocks, views))

	// RELIANCE 136 BUY, TCS 70 BUY, HDFCBANK 2 SELL
	if assert.Len(t, recs, 2) {
		assert.Equal(t, "RELIANCE", recs[0].Stock.Symbol)
		assert.Equal(t, "TCS", recs[1].Stock.Symbol)
	}
}
