package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/pkg/logger"
)

const writeWait = 10 * time.Second

// StreamMessage is one websocket frame
type StreamMessage struct {
	Type  string          `json:"type"` // event, error
	Event *analysis.Event `json:"event,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StreamHandler streams the stages of an analysis run over a websocket
type StreamHandler struct {
	analyzer Analyzer
	origins  map[string]bool
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler. Browsers may connect
// from the server's own origin or from one of allowedOrigins.
func NewStreamHandler(analyzer Analyzer, allowedOrigins []string, log *logger.Logger) *StreamHandler {
	h := &StreamHandler{
		analyzer: analyzer,
		origins:  make(map[string]bool, len(allowedOrigins)),
		logger:   log,
	}
	for _, o := range allowedOrigins {
		h.origins[normalizeOrigin(o)] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts clients without an Origin header (non-browser),
// same-origin pages and configured origins
func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins[normalizeOrigin(origin)] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// HandleAnalyze runs one analysis and sends every stage event, ending
// with complete or error, then closes the connection
// GET /ws/analyze?kind=basic&date=2025-01-15&hard_refresh=false&use_real_data=true
func (h *StreamHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r)
	if err != nil {
		respondFailure(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// client close or disconnect cancels the run
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.WithError(err).Debug("WebSocket read error")
				}
				return
			}
		}
	}()

	var mu sync.Mutex
	send := func(msg StreamMessage) {
		mu.Lock()
		defer mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.WithError(err).Debug("WebSocket write failed")
			cancel()
		}
	}

	// set once the run has reported its own failure as a stage event
	var reported atomic.Bool
	req.Observer = func(e analysis.Event) {
		if e.Stage == analysis.StageError {
			reported.Store(true)
		}
		send(StreamMessage{Type: "event", Event: &e})
	}

	h.logger.WithFields(map[string]interface{}{
		"kind":         string(req.Kind),
		"hard_refresh": req.HardRefresh,
	}).Debug("WebSocket analysis started")

	if _, err := h.analyzer.Run(ctx, req); err != nil && !reported.Load() {
		send(StreamMessage{Type: "error", Error: err.Error()})
	}

	mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	mu.Unlock()
}

func (h *StreamHandler) request(r *http.Request) (analysis.Request, error) {
	kind := contracts.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = contracts.KindBasic
	}
	if !kind.Valid() {
		return analysis.Request{}, invalidf("kind must be basic, enhanced or predict, got %q", kind)
	}

	date, err := parseDate(r, "date", h.analyzer.Location())
	if err != nil {
		return analysis.Request{}, err
	}
	hard, err := parseBool(r, "hard_refresh", false)
	if err != nil {
		return analysis.Request{}, err
	}
	useRealData, err := parseBool(r, "use_real_data", true)
	if err != nil {
		return analysis.Request{}, err
	}

	return analysis.Request{
		Kind:        kind,
		Date:        date,
		HardRefresh: hard,
		UseRealData: kind == contracts.KindEnhanced && useRealData,
	}, nil
}
