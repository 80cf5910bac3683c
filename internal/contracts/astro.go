package contracts

import (
	"encoding/json"
	"time"
)

// Motion of a planet on a date
type Motion string

const (
	MotionDirect     Motion = "Direct"
	MotionRetrograde Motion = "Retrograde"
)

// Dignity is a planet's strength class in a sign
type Dignity string

const (
	DignityExalted     Dignity = "Exalted"
	DignityDebilitated Dignity = "Debilitated"
	DignityNormal      Dignity = "Normal"
)

// Transit is one planet's position on one date
// ⭐ SSOT: ephemeris → analyzer
type Transit struct {
	Planet       string  `json:"planet"`
	Sign         string  `json:"sign"`
	Motion       Motion  `json:"motion"`
	Dignity      Dignity `json:"dignity"`
	Longitude    float64 `json:"longitude"`
	DegreeInSign float64 `json:"degree_in_sign"`
	Speed        float64 `json:"speed"`
	Nakshatra    string  `json:"nakshatra,omitempty"`
	TransitStart string  `json:"transit_start,omitempty"`
	TransitEnd   string  `json:"transit_end,omitempty"`
}

// IsRetrograde reports retrograde motion
func (t Transit) IsRetrograde() bool {
	return t.Motion == MotionRetrograde
}

// UnmarshalJSON accepts the legacy "status" key for dignity and a
// boolean "retrograde" flag when motion is absent.
func (t *Transit) UnmarshalJSON(data []byte) error {
	type plain Transit
	var aux struct {
		plain
		Status     Dignity `json:"status"`
		Retrograde *bool   `json:"retrograde"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*t = Transit(aux.plain)
	if t.Dignity == "" {
		t.Dignity = aux.Status
	}
	if t.Motion == "" && aux.Retrograde != nil && *aux.Retrograde {
		t.Motion = MotionRetrograde
	}
	return nil
}

// TransitSet is the transits of one date
type TransitSet struct {
	Date      time.Time `json:"date"`
	Transits  []Transit `json:"transits"`
	Cached    bool      `json:"cached"`
	Timestamp time.Time `json:"timestamp"`
}

// TransitAnalysis is the rule-table reading of one transit
type TransitAnalysis struct {
	Planet          string   `json:"planet"`
	Sign            string   `json:"sign"`
	Motion          Motion   `json:"motion"`
	Dignity         Dignity  `json:"dignity"`
	Element         string   `json:"element"`
	Strength        string   `json:"strength"`
	InfluenceType   string   `json:"influence_type"`
	AffectedSectors []string `json:"affected_sectors"`
	Qualities       []string `json:"qualities"`
}

// Influence is one planet's contribution to one sector. Exists only
// within a single analysis run.
type Influence struct {
	Planet        string   `json:"planet"`
	Sign          string   `json:"sign"`
	Strength      string   `json:"strength"`
	InfluenceType string   `json:"influence_type"`
	Qualities     []string `json:"qualities"`
}

// KeyInfluence is a highlighted influence in a date prediction
type KeyInfluence struct {
	Planet        string `json:"planet"`
	Sign          string `json:"sign"`
	InfluenceType string `json:"influence_type"`
	Strength      string `json:"strength"`
	Description   string `json:"description"`
}
