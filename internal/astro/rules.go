package astro

// Rule table: planet significations, planet and sign elements, and
// element sectors. Immutable; read by the analyzer only.

// Signification is a planet's market reading
type Signification struct {
	Sectors       []string
	Qualities     []string
	ExaltedIn     string
	DebilitatedIn string
}

var planetElement = map[string]string{
	"Sun":     "Fire",
	"Moon":    "Water",
	"Mars":    "Fire",
	"Mercury": "Earth",
	"Jupiter": "Ether",
	"Venus":   "Water",
	"Saturn":  "Air",
	"Rahu":    "Air",
	"Ketu":    "Fire",
}

var signElement = map[string]string{
	"Aries":       "Fire",
	"Taurus":      "Earth",
	"Gemini":      "Air",
	"Cancer":      "Water",
	"Leo":         "Fire",
	"Virgo":       "Earth",
	"Libra":       "Air",
	"Scorpio":     "Water",
	"Sagittarius": "Fire",
	"Capricorn":   "Earth",
	"Aquarius":    "Air",
	"Pisces":      "Water",
}

var elementSectors = map[string][]string{
	"Fire":  {"Energy", "Oil & Gas", "Power", "Automotive"},
	"Earth": {"Real Estate", "Agriculture", "Mining", "Construction", "FMCG"},
	"Water": {"Chemicals", "Pharmaceuticals", "Beverages", "Marine"},
	"Air":   {"Technology", "Telecom", "Aviation", "Media"},
	"Ether": {"Banking", "Finance", "Insurance", "Education"},
}

var significations = map[string]Signification{
	"Jupiter": {
		Sectors:       []string{"Banking", "Finance", "Education", "Pharma"},
		Qualities:     []string{"Expansion", "Growth", "Wisdom", "Prosperity"},
		ExaltedIn:     "Cancer",
		DebilitatedIn: "Capricorn",
	},
	"Saturn": {
		Sectors:       []string{"Iron & Steel", "Oil", "Mining", "Real Estate"},
		Qualities:     []string{"Discipline", "Restriction", "Delay", "Stability"},
		ExaltedIn:     "Libra",
		DebilitatedIn: "Aries",
	},
	"Mars": {
		Sectors:       []string{"Defense", "Real Estate", "Energy", "Machinery"},
		Qualities:     []string{"Action", "Energy", "Aggression", "Speed"},
		ExaltedIn:     "Capricorn",
		DebilitatedIn: "Cancer",
	},
	"Venus": {
		Sectors:       []string{"Luxury Goods", "Entertainment", "Hospitality", "Fashion"},
		Qualities:     []string{"Beauty", "Harmony", "Pleasure", "Wealth"},
		ExaltedIn:     "Pisces",
		DebilitatedIn: "Virgo",
	},
	"Mercury": {
		Sectors:       []string{"IT", "Communication", "Trading", "Commerce"},
		Qualities:     []string{"Intelligence", "Communication", "Analysis", "Trade"},
		ExaltedIn:     "Virgo",
		DebilitatedIn: "Pisces",
	},
	"Moon": {
		Sectors:       []string{"FMCG", "Dairy", "Public Services", "Hospitality"},
		Qualities:     []string{"Emotions", "Public", "Fluctuation", "Nourishment"},
		ExaltedIn:     "Taurus",
		DebilitatedIn: "Scorpio",
	},
	"Sun": {
		Sectors:       []string{"Government", "Pharmaceuticals", "Gold", "Power"},
		Qualities:     []string{"Authority", "Leadership", "Vitality", "Government"},
		ExaltedIn:     "Aries",
		DebilitatedIn: "Libra",
	},
	"Rahu": {
		Sectors:       []string{"Technology", "Foreign Trade", "Aviation", "Speculation"},
		Qualities:     []string{"Innovation", "Foreign", "Unconventional", "Sudden Changes"},
		ExaltedIn:     "Taurus",
		DebilitatedIn: "Scorpio",
	},
	"Ketu": {
		Sectors:       []string{"Spirituality", "Research", "Occult", "Electronics"},
		Qualities:     []string{"Detachment", "Liberation", "Research", "Mysticism"},
		ExaltedIn:     "Scorpio",
		DebilitatedIn: "Taurus",
	},
}

// Planets lists the planets of the rule table in ephemeris order
var Planets = []string{"Sun", "Moon", "Mars", "Mercury", "Jupiter", "Venus", "Saturn", "Rahu", "Ketu"}

// Signs lists the zodiac in order, Aries at 0°
var Signs = []string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// LookupPlanet returns a planet's signification
func LookupPlanet(planet string) (Signification, bool) {
	s, ok := significations[planet]
	return s, ok
}

// SignElement returns a sign's element, or "Unknown"
func SignElement(sign string) string {
	if e, ok := signElement[sign]; ok {
		return e
	}
	return "Unknown"
}

// PlanetElement returns a planet's own element, or "Unknown"
func PlanetElement(planet string) string {
	if e, ok := planetElement[planet]; ok {
		return e
	}
	return "Unknown"
}

// ElementSectors returns the sectors governed by an element
func ElementSectors(element string) []string {
	return elementSectors[element]
}

// SignFromLongitude maps a sidereal longitude onto (sign, degree in sign)
func SignFromLongitude(longitude float64) (string, float64) {
	for longitude < 0 {
		longitude += 360
	}
	for longitude >= 360 {
		longitude -= 360
	}
	idx := int(longitude / 30)
	return Signs[idx], longitude - float64(idx)*30
}

// KnownSector reports whether any planet or element of the rule table
// names the sector
func KnownSector(sector string) bool {
	for _, s := range significations {
		for _, name := range s.Sectors {
			if name == sector {
				return true
			}
		}
	}
	for _, sectors := range elementSectors {
		for _, name := range sectors {
			if name == sector {
				return true
			}
		}
	}
	return false
}
