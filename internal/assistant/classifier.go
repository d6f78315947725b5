// Package assistant turns free-text questions ("is it safe to go fishing near
// Hurghada next week?") into probability queries. It is rule-based: keyword
// scoring picks a persona and an intent, and a small extractor finds
// coordinates or a place name.
package assistant

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-likelihood/internal/common"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

// Persona selects the preset thresholds a question is scored against.
type Persona string

const (
	PersonaFarmer  Persona = "farmer"
	PersonaFisher  Persona = "fisher"
	PersonaGeneral Persona = "general"
)

// ParsePersona accepts farmer, fisher or general; anything else is general.
func ParsePersona(s string) Persona {
	switch Persona(strings.ToLower(strings.TrimSpace(s))) {
	case PersonaFarmer:
		return PersonaFarmer
	case PersonaFisher:
		return PersonaFisher
	default:
		return PersonaGeneral
	}
}

// Intent is what the user wants to know.
type Intent string

const (
	IntentSuitability Intent = "suitability_check"
	IntentTiming      Intent = "timing_advice"
	IntentOptimal     Intent = "optimal_timing"
	IntentRisk        Intent = "risk_assessment"
	IntentGeneral     Intent = "general_advice"
)

var (
	farmerKeywords = []string{"farmer", "farming", "farm", "crop", "plant", "harvest", "agriculture", "irrigation", "field", "seed", "spraying"}
	fisherKeywords = []string{"fisher", "fishing", "fish", "boat", "sea", "ocean", "cruise", "maritime", "sail", "angler", "offshore", "coastal"}

	coordPattern     = regexp.MustCompile(`(-?\d{1,2}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)`)
	bareCoordPattern = regexp.MustCompile(`^\s*-?\d{1,2}(?:\.\d+)?\s*,\s*-?\d{1,3}(?:\.\d+)?\s*$`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	placePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:in|at|near|around)\s+([a-z][a-z\s]*?)(?:\s+(?:on|for|this|next|tomorrow|today|during|in)\b|[,.?!]|$)`),
		regexp.MustCompile(`\b([a-z][a-z\s]*?)\s+(?:area|region)\b`),
	}
	placeStopWords = map[string]bool{
		"the": true, "my": true, "this": true, "that": true, "our": true, "here": true,
		"a": true, "an": true, "all": true, "least": true, "sea": true, "home": true,
	}
	titleCase = cases.Title(language.English)
)

// Place is a resolved or named location.
type Place struct {
	Name     string            `json:"name"`
	Location *weather.Location `json:"location,omitempty"`
}

// Analysis is the structured reading of one question.
type Analysis struct {
	Persona       Persona    `json:"persona"`
	Intent        Intent     `json:"intent"`
	Place         *Place     `json:"place,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	NeedsLocation bool       `json:"needs_location"`
	IsCoordinate  bool       `json:"is_coordinate"`
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (weather.Location, error)
}

// Classifier analyzes free-text questions.
type Classifier struct {
	gazetteer []gazetteerEntry
	geocoder  Geocoder
	now       func() time.Time
}

// NewClassifier builds a classifier with the built-in gazetteer. geocoder
// may be nil.
func NewClassifier(geocoder Geocoder) *Classifier {
	return &Classifier{
		gazetteer: defaultGazetteer(),
		geocoder:  geocoder,
		now:       time.Now,
	}
}

type gazetteerEntry struct {
	key   string
	place Place
}

func defaultGazetteer() []gazetteerEntry {
	entries := []struct {
		key      string
		name     string
		lat, lon float64
	}{
		{"cairo", "Cairo, Egypt", 30.0444, 31.2357},
		{"alexandria", "Alexandria, Egypt", 31.2001, 29.9187},
		{"red sea", "Red Sea, Egypt", 27.9158, 34.3300},
		{"sharm el sheikh", "Sharm El Sheikh, Egypt", 27.9158, 34.3300},
		{"hurghada", "Hurghada, Egypt", 27.2574, 33.8129},
		{"luxor", "Luxor, Egypt", 25.6872, 32.6396},
		{"aswan", "Aswan, Egypt", 24.0889, 32.8998},
		{"giza", "Giza, Egypt", 30.0131, 31.2089},
	}
	g := make([]gazetteerEntry, 0, len(entries))
	for _, e := range entries {
		loc := weather.Location{Lat: e.lat, Lon: e.lon}
		g = append(g, gazetteerEntry{key: e.key, place: Place{Name: e.name, Location: &loc}})
	}
	return g
}

// Analyze classifies query. hint overrides the detected persona when set;
// known, when non-nil, is a location the caller already has.
func (c *Classifier) Analyze(ctx context.Context, query string, hint Persona, known *weather.Location) Analysis {
	lower := strings.ToLower(strings.TrimSpace(query))

	a := Analysis{
		Persona: detectPersona(lower),
		Intent:  detectIntent(lower),
	}
	if hint != "" {
		a.Persona = hint
	}

	if bareCoordPattern.MatchString(lower) {
		a.IsCoordinate = true
		a.Intent = IntentSuitability
	}

	switch {
	case known != nil:
		a.Place = &Place{Name: formatCoords(*known), Location: known}
	default:
		a.Place = c.extractPlace(ctx, lower)
	}
	a.NeedsLocation = a.Place == nil || a.Place.Location == nil

	if d, ok := c.extractDate(lower); ok {
		a.TargetDate = &d
	}
	return a
}

func detectPersona(q string) Persona {
	switch {
	case common.HasAny(q, "i'm a farmer", "i am a farmer"):
		return PersonaFarmer
	case common.HasAny(q, "i'm a fisher", "i am a fisher"):
		return PersonaFisher
	}

	farmer := common.CountAny(q, farmerKeywords...)
	fisher := common.CountAny(q, fisherKeywords...)
	switch {
	case farmer > fisher:
		return PersonaFarmer
	case fisher > farmer:
		return PersonaFisher
	default:
		return PersonaGeneral
	}
}

func detectIntent(q string) Intent {
	switch {
	case common.HasWord(q, "good", "suitable", "safe", "ok", "okay"):
		return IntentSuitability
	case common.HasWord(q, "delay", "postpone", "wait"):
		return IntentTiming
	case common.HasWord(q, "when") || strings.Contains(q, "best time"):
		return IntentOptimal
	case common.HasWord(q, "risk", "risky", "danger", "dangerous"):
		return IntentRisk
	default:
		return IntentGeneral
	}
}

func (c *Classifier) extractPlace(ctx context.Context, q string) *Place {
	if m := coordPattern.FindStringSubmatch(q); m != nil {
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lon, errLon := strconv.ParseFloat(m[2], 64)
		if errLat == nil && errLon == nil && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			loc := weather.Location{Lat: lat, Lon: lon}
			return &Place{Name: formatCoords(loc), Location: &loc}
		}
	}

	for _, e := range c.gazetteer {
		if strings.Contains(q, e.key) {
			p := e.place
			return &p
		}
	}

	for _, re := range placePatterns {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" || placeStopWords[name] {
			continue
		}
		p := &Place{Name: titleCase.String(name)}
		if c.geocoder != nil {
			if loc, err := c.geocoder.Geocode(ctx, p.Name); err == nil {
				p.Location = &loc
			}
		}
		return p
	}
	return nil
}

func (c *Classifier) extractDate(q string) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(q); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			return d, true
		}
	}
	today := c.now().UTC().Truncate(24 * time.Hour)
	switch {
	case common.HasWord(q, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case common.HasWord(q, "today"):
		return today, true
	case strings.Contains(q, "next week"):
		return today.AddDate(0, 0, 7), true
	case strings.Contains(q, "next month"):
		return today.AddDate(0, 1, 0), true
	}
	return time.Time{}, false
}

func formatCoords(l weather.Location) string {
	return strconv.FormatFloat(l.Lat, 'f', 4, 64) + "°, " + strconv.FormatFloat(l.Lon, 'f', 4, 64) + "°"
}
