package astro

import (
	"fmt"
	"sort"

	"github.com/wonny/astrostocks/internal/contracts"
)

const (
	strengthExalted     = "Exalted (Very Strong)"
	strengthDebilitated = "Debilitated (Weak)"
	strengthNeutral     = "Neutral"
	retrogradeQualifier = " + Retrograde (Introspective/Delayed)"

	InfluenceHighlyPositive = "Highly Positive"
	InfluenceChallenging    = "Challenging"
	InfluenceMixed          = "Mixed (Delays/Review)"
	InfluencePositive       = "Positive"
)

// DignityOf classifies a planet in a sign. Unknown planets are Normal.
func DignityOf(planet, sign string) contracts.Dignity {
	sig, ok := significations[planet]
	switch {
	case !ok:
		return contracts.DignityNormal
	case sign == sig.ExaltedIn:
		return contracts.DignityExalted
	case sign == sig.DebilitatedIn:
		return contracts.DignityDebilitated
	default:
		return contracts.DignityNormal
	}
}

// Analyze reads one transit against the rule table.
// An empty motion is treated as Direct.
func Analyze(planet, sign string, motion contracts.Motion) (contracts.TransitAnalysis, error) {
	sig, ok := significations[planet]
	if !ok {
		return contracts.TransitAnalysis{}, fmt.Errorf("%w: %q", contracts.ErrUnknownPlanet, planet)
	}
	if motion == "" {
		motion = contracts.MotionDirect
	}

	dignity := DignityOf(planet, sign)
	element := SignElement(sign)

	return contracts.TransitAnalysis{
		Planet:          planet,
		Sign:            sign,
		Motion:          motion,
		Dignity:         dignity,
		Element:         element,
		Strength:        strengthLabel(dignity, motion),
		InfluenceType:   influenceType(dignity, motion),
		AffectedSectors: affectedSectors(sig.Sectors, ElementSectors(element)),
		Qualities:       append([]string(nil), sig.Qualities...),
	}, nil
}

func strengthLabel(d contracts.Dignity, m contracts.Motion) string {
	label := strengthNeutral
	switch d {
	case contracts.DignityExalted:
		label = strengthExalted
	case contracts.DignityDebilitated:
		label = strengthDebilitated
	}
	if m == contracts.MotionRetrograde {
		label += retrogradeQualifier
	}
	return label
}

// precedence: exalted+direct, then debilitated, then retrograde
func influenceType(d contracts.Dignity, m contracts.Motion) string {
	switch {
	case d == contracts.DignityExalted && m == contracts.MotionDirect:
		return InfluenceHighlyPositive
	case d == contracts.DignityDebilitated:
		return InfluenceChallenging
	case m == contracts.MotionRetrograde:
		return InfluenceMixed
	default:
		return InfluencePositive
	}
}

// affectedSectors returns the sorted union of both lists
func affectedSectors(own, element []string) []string {
	seen := make(map[string]struct{}, len(own)+len(element))
	out := make([]string, 0, len(own)+len(element))
	for _, list := range [][]string{own, element} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
