package contracts

import (
	"encoding/json"
	"time"
)

// Kind names an analysis cache slot
type Kind string

const (
	KindBasic    Kind = "basic"
	KindEnhanced Kind = "enhanced"
	KindPredict  Kind = "predict"
)

// Valid reports a known kind
func (k Kind) Valid() bool {
	return k == KindBasic || k == KindEnhanced || k == KindPredict
}

// WritesLive reports whether runs of this kind persist live sector
// predictions (and therefore archive them on hard refresh).
func (k Kind) WritesLive() bool {
	return k == KindBasic || k == KindEnhanced
}

// Trend is a sector direction
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// ConfidenceLevel is the predictor's coarse confidence
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// Numeric maps a level onto [0,1]; unknown levels read as 0.5
func (c ConfidenceLevel) Numeric() float64 {
	switch c {
	case ConfidenceHigh:
		return 0.85
	case ConfidenceMedium:
		return 0.65
	case ConfidenceLow:
		return 0.45
	default:
		return 0.5
	}
}

// SectorForecast is the rule-based predictor output
type SectorForecast struct {
	Sector     string          `json:"sector"`
	Trend      Trend           `json:"trend"`
	Confidence ConfidenceLevel `json:"confidence"`
	Reason     string          `json:"reason"`
}

// SectorPrediction is one sector's enriched prediction (basic shape)
// ⭐ SSOT: predictor → enrichment → response/live rows
type SectorPrediction struct {
	Sector             string          `json:"sector"`
	PlanetaryInfluence string          `json:"planetary_influence"`
	Trend              Trend           `json:"trend"`
	Reason             string          `json:"reason"`
	TopStocks          []string        `json:"top_stocks"`
	Confidence         ConfidenceLevel `json:"confidence"`
	AIInsights         Insight         `json:"ai_insights"`

	Influences []Influence `json:"-"`
}

// BasicResult is the basic analysis response
type BasicResult struct {
	SectorPredictions      []SectorPrediction `json:"sector_predictions"`
	OverallMarketSentiment string             `json:"overall_market_sentiment"`
	AccuracyEstimate       string             `json:"accuracy_estimate"`
	Timestamp              time.Time          `json:"timestamp"`
}

// StockSummary is a scored stock without its raw score
type StockSummary struct {
	Symbol                string  `json:"symbol"`
	Sector                string  `json:"sector"`
	CurrentPrice          float64 `json:"current_price"`
	ChangePercent         float64 `json:"change_percent"`
	Signal                Signal  `json:"signal"`
	Confidence            float64 `json:"confidence"`
	AstrologicalReasoning string  `json:"astrological_reasoning"`
	TechnicalSummary      string  `json:"technical_summary"`
	Past6MReturn          float64 `json:"past_6m_return"`
	Volatility            string  `json:"volatility"`
}

// Signal is a stock call
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// StockSignal is a scored stock
type StockSignal struct {
	StockSummary
	Score float64 `json:"score"`
}

// Recommendation is a ranked stock
type Recommendation struct {
	Rank  int          `json:"rank"`
	Stock StockSummary `json:"stock"`
	Score float64      `json:"score"`
}

// SectorAnalysis is one sector of the enhanced response
type SectorAnalysis struct {
	Sector             string        `json:"sector"`
	Trend              Trend         `json:"trend"`
	PlanetaryInfluence string        `json:"planetary_influence"`
	AIInsights         Insight       `json:"ai_insights"`
	StocksInSector     []StockSignal `json:"stocks_in_sector"`
	Confidence         float64       `json:"confidence"`
}

// EnhancedResult is the enhanced analysis response
type EnhancedResult struct {
	TopRecommendations []Recommendation `json:"top_recommendations"`
	SectorAnalysis     []SectorAnalysis `json:"sector_analysis"`
	AllStocks          []StockSignal    `json:"all_stocks"`
	OverallSentiment   string           `json:"overall_sentiment"`
	Timestamp          time.Time        `json:"timestamp"`
}

// MarketPrediction is the body of a date prediction
type MarketPrediction struct {
	OverallSentiment  string             `json:"overall_sentiment"`
	SectorPredictions []SectorPrediction `json:"sector_predictions"`
	KeyInfluences     []KeyInfluence     `json:"key_influences"`
	AIAnalysis        Insight            `json:"ai_analysis"`
}

// PredictionReport is the date-keyed prediction response
type PredictionReport struct {
	PredictionDate    string           `json:"prediction_date"`
	Timezone          string           `json:"timezone"`
	PlanetaryTransits []Transit        `json:"planetary_transits"`
	MarketPrediction  MarketPrediction `json:"market_prediction"`
	Confidence        float64          `json:"confidence"`
}

// LivePrediction is a row of sector_predictions
type LivePrediction struct {
	ID                 int64           `json:"id"`
	PredictionDate     time.Time       `json:"prediction_date"`
	Sector             string          `json:"sector"`
	PlanetaryInfluence string          `json:"planetary_influence"`
	Trend              Trend           `json:"trend"`
	Confidence         string          `json:"confidence"`
	Reason             string          `json:"reason"`
	AIInsights         json.RawMessage `json:"ai_insights,omitempty"`
	TopStocks          []string        `json:"top_stocks"`
	AccuracyEstimate   float64         `json:"accuracy_estimate"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ArchivedPrediction is a row of sector_archive
type ArchivedPrediction struct {
	LivePrediction
	OriginalID        int64     `json:"original_id"`
	BatchID           string    `json:"batch_id"`
	OriginalCreatedAt time.Time `json:"original_created_at"`
	ArchivedAt        time.Time `json:"archived_at"`
	ArchiveDate       time.Time `json:"archive_date"`
}
