package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

// Check is one preset threshold scored for a persona.
type Check struct {
	Label      string
	Variable   weather.Variable
	Threshold  float64
	Comparison climate.Comparison
}

var presets = map[Persona][]Check{
	PersonaFarmer: {
		{"heavy rain", weather.VarPrecip, 15, climate.GreaterThan},
		{"extreme heat", weather.VarTempMax, 35, climate.GreaterThan},
		{"cold night", weather.VarTempMin, 10, climate.LessThan},
		{"strong wind", weather.VarWind, 6.9, climate.GreaterThan},
	},
	PersonaFisher: {
		{"rough wind", weather.VarWind, 5.6, climate.GreaterThan},
		{"heavy rain", weather.VarPrecip, 8, climate.GreaterThan},
		{"freezing", weather.VarTempMean, 0, climate.LessThan},
	},
	PersonaGeneral: {
		{"very hot", weather.VarTempMax, 32, climate.GreaterThan},
		{"very cold", weather.VarTempMin, 0, climate.LessThan},
		{"very windy", weather.VarWind, 10, climate.GreaterThan},
		{"very wet", weather.VarPrecip, 10, climate.GreaterThan},
	},
}

// Presets returns the checks scored for p.
func Presets(p Persona) []Check {
	return append([]Check(nil), presets[ParsePersona(string(p))]...)
}

// Risk levels.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskUnknown  = "unknown"
)

// Prober answers probability queries.
type Prober interface {
	Probability(ctx context.Context, q weather.Query) (climate.ProbabilityView, error)
}

// Request is an assistant query.
type Request struct {
	Query      string            `json:"query"`
	Persona    string            `json:"persona,omitempty"`
	Location   *weather.Location `json:"location,omitempty"`
	TargetDate string            `json:"target_date,omitempty"`
	WindowDays *int              `json:"window_days,omitempty"`
}

// Finding is the result of one preset check.
type Finding struct {
	Label       string             `json:"label"`
	Variable    weather.Variable   `json:"variable"`
	Threshold   float64            `json:"threshold"`
	Comparison  climate.Comparison `json:"comparison"`
	Probability *float64           `json:"probability,omitempty"`
	CI95        *[2]float64        `json:"ci_95,omitempty"`
	NSamples    int                `json:"n_samples,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Response is the assistant's answer.
type Response struct {
	Analysis   Analysis  `json:"analysis"`
	TargetDate string    `json:"target_date,omitempty"`
	Findings   []Finding `json:"findings"`
	Risk       string    `json:"risk"`
	Message    string    `json:"message"`
}

// Advisor turns free-text questions into scored preset checks.
type Advisor struct {
	classifier *Classifier
	prober     Prober
	windowDays int
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewAdvisor creates a new Advisor. windowDays is the default window radius.
func NewAdvisor(classifier *Classifier, prober Prober, windowDays int, log *zap.SugaredLogger) *Advisor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Advisor{
		classifier: classifier,
		prober:     prober,
		windowDays: windowDays,
		log:        log,
		now:        time.Now,
	}
}

// Ask classifies req and scores the persona's presets at the resolved
// location and date. Without a location no checks run and NeedsLocation is set.
func (a *Advisor) Ask(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Query) == "" && req.Location == nil {
		return Response{}, climate.Invalid("query must not be empty")
	}
	var hint Persona
	if req.Persona != "" {
		hint = ParsePersona(req.Persona)
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return Response{}, err
		}
	}

	an := a.classifier.Analyze(ctx, req.Query, hint, req.Location)
	resp := Response{Analysis: an, Risk: RiskUnknown}

	target, err := a.targetDate(req, an)
	if err != nil {
		return Response{}, err
	}
	resp.TargetDate = climate.FormatDate(target)

	window := a.windowDays
	if req.WindowDays != nil {
		window = *req.WindowDays
	}

	if an.NeedsLocation {
		resp.Message = needsLocationMessage(an)
		return resp, nil
	}

	loc := *an.Place.Location
	var sum float64
	var ok int
	for _, c := range Presets(an.Persona) {
		f := Finding{Label: c.Label, Variable: c.Variable, Threshold: c.Threshold, Comparison: c.Comparison}
		view, err := a.prober.Probability(ctx, weather.Query{
			Location:   loc,
			Variable:   c.Variable,
			TargetDate: target,
			Threshold:  c.Threshold,
			Comparison: c.Comparison,
			WindowDays: window,
		})
		if err != nil {
			if climate.KindOf(err) == climate.KindInvalidParameters {
				return Response{}, err
			}
			a.log.Warnw("assistant check failed", "check", c.Label, "variable", c.Variable, "error", err)
			f.Error = err.Error()
		} else {
			p := view.Probability
			ci := view.CI95
			f.Probability = &p
			f.CI95 = &ci
			f.NSamples = view.NSamples
			sum += p
			ok++
		}
		resp.Findings = append(resp.Findings, f)
	}

	if ok > 0 {
		resp.Risk = RiskLevel(sum / float64(ok))
	}
	resp.Message = composeMessage(an, resp)
	return resp, nil
}

func (a *Advisor) targetDate(req Request, an Analysis) (time.Time, error) {
	if req.TargetDate != "" {
		d, err := time.Parse(climate.DateLayout, req.TargetDate)
		if err != nil {
			return time.Time{}, climate.Invalid("target_date %q is not YYYY-MM-DD", req.TargetDate)
		}
		return d, nil
	}
	if an.TargetDate != nil {
		return *an.TargetDate, nil
	}
	return a.now().UTC().Truncate(24 * time.Hour), nil
}

// RiskLevel buckets a mean probability.
func RiskLevel(mean float64) string {
	switch {
	case mean < 0.2:
		return RiskLow
	case mean < 0.5:
		return RiskModerate
	default:
		return RiskHigh
	}
}

func needsLocationMessage(an Analysis) string {
	if an.Place != nil && an.Place.Name != "" {
		return fmt.Sprintf("I couldn't find coordinates for %s. Please share latitude and longitude.", an.Place.Name)
	}
	return "Please tell me where: a place name or coordinates like 30.04, 31.24."
}

func composeMessage(an Analysis, resp Response) string {
	where := an.Place.Name
	if resp.Risk == RiskUnknown {
		return fmt.Sprintf("Historical data for %s around %s is unavailable right now.", where, resp.TargetDate)
	}

	var top *Finding
	for i := range resp.Findings {
		f := &resp.Findings[i]
		if f.Probability == nil {
			continue
		}
		if top == nil || *f.Probability > *top.Probability {
			top = f
		}
	}
	concern := fmt.Sprintf("the main concern is %s at %.0f%% historically", top.Label, *top.Probability*100)

	switch an.Intent {
	case IntentSuitability:
		verdict := map[string]string{RiskLow: "Conditions look favourable", RiskModerate: "Conditions are mixed", RiskHigh: "Conditions look unfavourable"}[resp.Risk]
		return fmt.Sprintf("%s in %s around %s; %s.", verdict, where, resp.TargetDate, concern)
	case IntentTiming:
		if resp.Risk == RiskHigh {
			return fmt.Sprintf("Consider postponing: around %s in %s %s.", resp.TargetDate, where, concern)
		}
		return fmt.Sprintf("No strong reason to delay in %s around %s; %s.", where, resp.TargetDate, concern)
	case IntentOptimal:
		return fmt.Sprintf("Around %s, %s has %s risk; %s. Compare other dates to find a lower-risk window.", resp.TargetDate, where, resp.Risk, concern)
	case IntentRisk:
		return fmt.Sprintf("Overall risk in %s around %s is %s; %s.", where, resp.TargetDate, resp.Risk, concern)
	default:
		return fmt.Sprintf("For %s around %s the historical risk is %s; %s.", where, resp.TargetDate, resp.Risk, concern)
	}
}
