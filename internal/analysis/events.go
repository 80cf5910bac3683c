package analysis

// Stage names a step of an analysis run
type Stage string

const (
	StageStarted        Stage = "started"
	StageTransitsLoaded Stage = "transits_loaded"
	StageStocksLoaded   Stage = "stocks_loaded"
	StageSectors        Stage = "sectors"
	StageEnriched       Stage = "enriched"
	StageSectorDetail   Stage = "sector_detail"
	StageCached         Stage = "cached"
	StageComplete       Stage = "complete"
	StageError          Stage = "error"
)

// Event is one progress notification of a run
type Event struct {
	Stage   Stage       `json:"stage"`
	Message string      `json:"message,omitempty"`
	Count   int         `json:"count,omitempty"`
	Index   int         `json:"index,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Observer receives events synchronously on the run's goroutine
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}
