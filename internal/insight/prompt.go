package insight

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/wonny/astrostocks/internal/contracts"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptKind tells generators what a prompt asks for
type PromptKind string

const (
	KindSector  PromptKind = "sector"
	KindOverall PromptKind = "overall"
)

const (
	sectorMaxTokens  = 200
	overallMaxTokens = 500

	maxSectorInfluences = 3
	maxOverallTransits  = 5
	maxOverallSectors   = 3
)

// Prompt is one rendered language-model request. Facts carries the
// structured input so offline generators need not parse text.
type Prompt struct {
	Kind        PromptKind
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	Facts       Facts
}

// Facts is the structured input a prompt was rendered from
type Facts struct {
	Sector     string
	Trend      contracts.Trend
	Confidence contracts.ConfidenceLevel
	Influences []contracts.Influence

	Date      time.Time
	Transits  []contracts.Transit
	Sectors   []contracts.SectorPrediction
	Sentiment string
}

// SectorInput is the data of a sector prompt
type SectorInput struct {
	Sector     string
	Trend      contracts.Trend
	Confidence contracts.ConfidenceLevel
	Influences []contracts.Influence
}

// OverallInput is the data of a market-outlook prompt
type OverallInput struct {
	Date      time.Time
	Transits  []contracts.Transit
	Sectors   []contracts.SectorPrediction
	Sentiment string
}

// Builder renders prompts from embedded templates
type Builder struct {
	system      string
	templates   map[PromptKind]*template.Template
	temperature float64
}

// NewBuilder parses the embedded templates
func NewBuilder(temperature float64) (*Builder, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string { return t.Format("2006-01-02") },
	}

	b := &Builder{
		templates:   make(map[PromptKind]*template.Template),
		temperature: temperature,
	}

	system, err := templateFS.ReadFile("templates/system.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read system prompt: %w", err)
	}
	b.system = string(system)

	for _, kind := range []PromptKind{KindSector, KindOverall} {
		filename := fmt.Sprintf("templates/%s.tmpl", kind)
		tmpl, err := template.New(fmt.Sprintf("%s.tmpl", kind)).Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", kind, err)
		}
		b.templates[kind] = tmpl
	}

	return b, nil
}

// Sector renders the per-sector insight prompt; only the first three
// influences are listed.
func (b *Builder) Sector(in SectorInput) (Prompt, error) {
	in.Influences = firstN(in.Influences, maxSectorInfluences)

	user, err := b.render(KindSector, in)
	if err != nil {
		return Prompt{}, err
	}

	return Prompt{
		Kind:        KindSector,
		System:      b.system,
		User:        user,
		Temperature: b.temperature,
		MaxTokens:   sectorMaxTokens,
		Facts: Facts{
			Sector:     in.Sector,
			Trend:      in.Trend,
			Confidence: in.Confidence,
			Influences: in.Influences,
		},
	}, nil
}

// Overall renders the market-outlook prompt from the first five
// transits and first three sectors.
func (b *Builder) Overall(in OverallInput) (Prompt, error) {
	in.Transits = firstN(in.Transits, maxOverallTransits)
	in.Sectors = firstN(in.Sectors, maxOverallSectors)

	user, err := b.render(KindOverall, in)
	if err != nil {
		return Prompt{}, err
	}

	return Prompt{
		Kind:        KindOverall,
		System:      b.system,
		User:        user,
		Temperature: b.temperature,
		MaxTokens:   overallMaxTokens,
		Facts: Facts{
			Date:      in.Date,
			Transits:  in.Transits,
			Sectors:   in.Sectors,
			Sentiment: in.Sentiment,
		},
	}, nil
}

func (b *Builder) render(kind PromptKind, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := b.templates[kind].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", kind, err)
	}
	return buf.String(), nil
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
