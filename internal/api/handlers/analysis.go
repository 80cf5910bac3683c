package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Analyzer runs analyses; satisfied by *analysis.Service
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
	Location() *time.Location
}

// AnalysisHandler serves the analyze and predict endpoints
// ⭐ SSOT: analysis request parsing and validation live here
type AnalysisHandler struct {
	analyzer Analyzer
	validate *validator.Validate
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer Analyzer, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		validate: validator.New(),
		logger:   log,
	}
}

// StockInput is a caller-supplied stock
type StockInput struct {
	Symbol        string  `json:"symbol" validate:"required,max=32"`
	Sector        string  `json:"sector" validate:"max=64"`
	CurrentPrice  float64 `json:"current_price" validate:"gte=0"`
	ChangePercent float64 `json:"change_percent"`
	Past6MReturn  float64 `json:"past_6m_return"`
	Volatility    string  `json:"volatility" validate:"omitempty,oneof=Low Medium High"`
}

// TransitInput is a caller-supplied planetary position
type TransitInput struct {
	Planet       string  `json:"planet" validate:"required"`
	Sign         string  `json:"sign" validate:"required"`
	Motion       string  `json:"motion" validate:"omitempty,oneof=Direct Retrograde"`
	Longitude    float64 `json:"longitude" validate:"gte=0,lt=360"`
	DegreeInSign float64 `json:"degree_in_sign" validate:"gte=0,lt=30"`
	TransitStart string  `json:"transit_start"`
	TransitEnd   string  `json:"transit_end"`
}

// AnalyzeRequest is the body of POST /api/analyze and /api/analyze/enhanced
type AnalyzeRequest struct {
	Date        string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Stocks      []StockInput   `json:"stocks" validate:"omitempty,max=500,dive"`
	Transits    []TransitInput `json:"transits" validate:"omitempty,max=20,dive"`
	HardRefresh bool           `json:"hard_refresh"`
}

// Analyze runs a basic analysis
// POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, contracts.KindBasic)
}

// AnalyzeEnhanced runs an enhanced analysis
// POST /api/analyze/enhanced?use_real_data=true
func (h *AnalysisHandler) AnalyzeEnhanced(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, contracts.KindEnhanced)
}

func (h *AnalysisHandler) serve(w http.ResponseWriter, r *http.Request, kind contracts.Kind) {
	req, err := h.decode(w, r, kind)
	if err != nil {
		respondFailure(w, err)
		return
	}

	out, err := h.analyzer.Run(r.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("kind", string(kind)).Error("Analysis failed")
		respondFailure(w, err)
		return
	}

	writeOutcome(w, out)
}

// decode parses and validates the body into a Request
func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request, kind contracts.Kind) (analysis.Request, error) {
	useRealData, err := parseBool(r, "use_real_data", true)
	if err != nil {
		return analysis.Request{}, err
	}

	var body AnalyzeRequest
	if r.Body != nil {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return analysis.Request{}, invalidf("malformed request body: %v", err)
		}
	}
	if err := h.validate.Struct(body); err != nil {
		return analysis.Request{}, invalidf("%s", validationMessage(err))
	}

	req := analysis.Request{
		Kind:        kind,
		HardRefresh: body.HardRefresh,
		UseRealData: kind == contracts.KindEnhanced && useRealData,
		Stocks:      toStockRecords(body.Stocks),
		Transits:    toTransits(body.Transits),
	}
	if body.Date != "" {
		req.Date, _ = time.ParseInLocation(dateLayout, body.Date, h.analyzer.Location())
	}
	return req, nil
}

// Predict returns the date-keyed prediction
// GET /api/predict?date=2025-01-15&hard_refresh=false
func (h *AnalysisHandler) Predict(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date", h.analyzer.Location())
	if err != nil {
		respondFailure(w, err)
		return
	}
	hard, err := parseBool(r, "hard_refresh", false)
	if err != nil {
		respondFailure(w, err)
		return
	}

	out, err := h.analyzer.Run(r.Context(), analysis.Request{
		Kind:        contracts.KindPredict,
		Date:        date,
		HardRefresh: hard,
	})
	if err != nil {
		h.logger.WithError(err).Error("Prediction failed")
		respondFailure(w, err)
		return
	}

	writeOutcome(w, out)
}

// writeOutcome sends the stored payload so cached and fresh answers
// are byte-identical
func writeOutcome(w http.ResponseWriter, out *analysis.Outcome) {
	if out.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if out.Archived > 0 {
		w.Header().Set("X-Archived", fmt.Sprint(out.Archived))
	}
	respondRaw(w, http.StatusOK, out.Payload)
}

func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.TrimPrefix(fe.Namespace(), "AnalyzeRequest.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func toStockRecords(in []StockInput) []contracts.StockRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]contracts.StockRecord, len(in))
	for i, s := range in {
		out[i] = contracts.StockRecord{
			Symbol:        strings.ToUpper(strings.TrimSpace(s.Symbol)),
			Sector:        s.Sector,
			CurrentPrice:  s.CurrentPrice,
			ChangePercent: s.ChangePercent,
			Past6MReturn:  s.Past6MReturn,
			Volatility:    s.Volatility,
		}
	}
	return out
}

func toTransits(in []TransitInput) []contracts.Transit {
	if len(in) == 0 {
		return nil
	}
	out := make([]contracts.Transit, len(in))
	for i, t := range in {
		out[i] = contracts.Transit{
			Planet:       t.Planet,
			Sign:         t.Sign,
			Motion:       contracts.Motion(t.Motion),
			Longitude:    t.Longitude,
			DegreeInSign: t.DegreeInSign,
			TransitStart: t.TransitStart,
			TransitEnd:   t.TransitEnd,
		}
	}
	return out
}
