package ephemeris

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/astrostocks/internal/astro"
	"github.com/wonny/astrostocks/internal/contracts"
	"github.com/wonny/astrostocks/internal/metrics"
	"github.com/wonny/astrostocks/pkg/httputil"
	"github.com/wonny/astrostocks/pkg/logger"
)

// Client reads sidereal planetary positions from an ephemeris service
// ⭐ SSOT: ephemeris calls are made only by this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	ayanamsa   string
}

// NewClient creates an ephemeris client. An empty baseURL yields a
// client that reports no data.
func NewClient(httpClient *httputil.Client, baseURL, ayanamsa string, log *logger.Logger) *Client {
	if ayanamsa == "" {
		ayanamsa = "lahiri"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		ayanamsa:   ayanamsa,
	}
}

// Configured reports whether a service URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// PositionsResponse is the service's reply
type PositionsResponse struct {
	Datetime  string     `json:"datetime"`
	Ayanamsa  string     `json:"ayanamsa"`
	Positions []Position `json:"positions"`
}

// Position is one body's sidereal position
type Position struct {
	Planet       string  `json:"planet"`
	Longitude    float64 `json:"longitude"`
	Speed        float64 `json:"speed"` // degrees per day, negative when retrograde
	TransitStart string  `json:"transit_start,omitempty"`
	TransitEnd   string  `json:"transit_end,omitempty"`
}

// Transits implements contracts.TransitProvider. It returns no transits
// when the client is not configured.
func (c *Client) Transits(ctx context.Context, date time.Time) ([]contracts.Transit, error) {
	if !c.Configured() {
		c.logger.Warn("Ephemeris service not configured")
		return nil, nil
	}

	params := url.Values{}
	params.Set("datetime", date.Format("2006-01-02")+"T00:00:00Z")
	params.Set("ayanamsa", c.ayanamsa)
	endpoint := fmt.Sprintf("%s/positions?%s", c.baseURL, params.Encode())

	var resp PositionsResponse
	err := c.httpClient.GetJSON(ctx, endpoint, &resp)
	metrics.RecordExternalCall("ephemeris", err)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeris positions: %v", contracts.ErrUnavailable, err)
	}

	transits := ToTransits(resp.Positions)

	c.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"ayanamsa": c.ayanamsa,
		"count":    len(transits),
	}).Debug("Ephemeris positions fetched")

	return transits, nil
}

// ToTransits converts positions to transits. Ketu is derived opposite
// Rahu when the service omits it.
func ToTransits(positions []Position) []contracts.Transit {
	out := make([]contracts.Transit, 0, len(positions)+1)
	var rahu *Position
	hasKetu := false

	for i := range positions {
		p := positions[i]
		switch p.Planet {
		case "Rahu":
			rahu = &positions[i]
		case "Ketu":
			hasKetu = true
		}
		out = append(out, toTransit(p))
	}

	if rahu != nil && !hasKetu {
		out = append(out, toTransit(Position{
			Planet:    "Ketu",
			Longitude: math.Mod(rahu.Longitude+180, 360),
			Speed:     rahu.Speed,
		}))
	}
	return out
}

func toTransit(p Position) contracts.Transit {
	sign, deg := astro.SignFromLongitude(p.Longitude)
	motion := contracts.MotionDirect
	if isRetrograde(p) {
		motion = contracts.MotionRetrograde
	}

	return contracts.Transit{
		Planet:       p.Planet,
		Sign:         sign,
		Motion:       motion,
		Dignity:      astro.DignityOf(p.Planet, sign),
		Longitude:    round(p.Longitude, 4),
		DegreeInSign: round(deg, 2),
		Speed:        round(p.Speed, 4),
		Nakshatra:    NakshatraOf(p.Longitude),
		TransitStart: p.TransitStart,
		TransitEnd:   p.TransitEnd,
	}
}

// luminaries never station; the nodes are reported as direct
func isRetrograde(p Position) bool {
	switch p.Planet {
	case "Sun", "Moon", "Rahu", "Ketu":
		return false
	}
	return p.Speed < 0
}

var nakshatras = []string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni", "Uttara Phalguni",
	"Hasta", "Chitra", "Swati", "Vishakha", "Anuradha", "Jyeshtha",
	"Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana", "Dhanishta", "Shatabhisha",
	"Purva Bhadrapada", "Uttara Bhadrapada", "Revati",
}

// NakshatraOf returns the lunar mansion of a longitude (13°20' each)
func NakshatraOf(longitude float64) string {
	lon := math.Mod(longitude, 360)
	if lon < 0 {
		lon += 360
	}
	idx := int(lon / (360.0 / 27))
	if idx >= len(nakshatras) {
		idx = len(nakshatras) - 1
	}
	return nakshatras[idx]
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
