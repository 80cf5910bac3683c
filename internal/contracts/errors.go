package contracts

import "errors"

// Error taxonomy shared by every layer. Wrap with fmt.Errorf("...: %w")
// and match with errors.Is; the API maps each sentinel to one status.
// ⭐ SSOT: error kinds are declared only here
var (
	// ErrUnavailable means a data collaborator (ephemeris, market data)
	// returned nothing. Surfaced as 503, never retried internally.
	ErrUnavailable = errors.New("external data unavailable")

	// ErrEnrichment means the insight generator failed. Fatal to the run.
	ErrEnrichment = errors.New("insight enrichment failed")

	// ErrUnknownPlanet is recovered locally by the aggregator.
	ErrUnknownPlanet = errors.New("unknown planet")

	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidInput rejects malformed requests (400).
	ErrInvalidInput = errors.New("invalid input")
)
