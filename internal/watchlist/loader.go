package watchlist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a YAML watchlist. Unknown fields fail the
// load. Warnings are returned alongside a valid watchlist.
func Load(path string) (*Watchlist, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read watchlist: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates watchlist YAML
func Parse(data []byte) (*Watchlist, []Warning, error) {
	var w Watchlist
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, nil, fmt.Errorf("failed to decode watchlist: %w", err)
	}

	for i := range w.Stocks {
		w.Stocks[i].Symbol = strings.ToUpper(strings.TrimSpace(w.Stocks[i].Symbol))
		w.Stocks[i].Sector = strings.TrimSpace(w.Stocks[i].Sector)
	}

	warnings, err := Validate(&w)
	if err != nil {
		return nil, nil, err
	}
	return &w, warnings, nil
}

// Hash is a SHA256 over the canonical JSON form; two files that decode
// to the same watchlist hash the same.
func Hash(w *Watchlist) (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
