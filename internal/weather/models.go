package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-likelihood/internal/climate"
)

// Variable is one of the daily variables the service can score.
type Variable string

const (
	VarTempMax  Variable = "T2M_MAX"
	VarTempMin  Variable = "T2M_MIN"
	VarTempMean Variable = "T2M"
	VarWind     Variable = "WS10M"
	VarPrecip   Variable = "PRECTOTCORR"
	VarHumidity Variable = "RH2M"
)

// VariableInfo describes a variable and how each provider names it.
type VariableInfo struct {
	Code      Variable `json:"code"`
	Name      string   `json:"name"`
	Units     string   `json:"units"`
	OpenMeteo string   `json:"-"`
}

var variables = []VariableInfo{
	{Code: VarTempMax, Name: "Maximum temperature at 2 m", Units: "°C", OpenMeteo: "temperature_2m_max"},
	{Code: VarTempMin, Name: "Minimum temperature at 2 m", Units: "°C", OpenMeteo: "temperature_2m_min"},
	{Code: VarTempMean, Name: "Mean temperature at 2 m", Units: "°C", OpenMeteo: "temperature_2m_mean"},
	{Code: VarWind, Name: "Wind speed at 10 m", Units: "m/s", OpenMeteo: "wind_speed_10m_mean"},
	{Code: VarPrecip, Name: "Precipitation (bias corrected)", Units: "mm/day", OpenMeteo: "precipitation_sum"},
	{Code: VarHumidity, Name: "Relative humidity at 2 m", Units: "%", OpenMeteo: "relative_humidity_2m_mean"},
}

// Variables returns the supported variables in catalogue order.
func Variables() []VariableInfo {
	return append([]VariableInfo(nil), variables...)
}

// Info returns the catalogue entry for v.
func (v Variable) Info() (VariableInfo, bool) {
	for _, info := range variables {
		if info.Code == v {
			return info, true
		}
	}
	return VariableInfo{}, false
}

// ParseVariable accepts a variable code, case-insensitively.
func ParseVariable(s string) (Variable, error) {
	v := Variable(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := v.Info(); !ok {
		return "", climate.Invalid("unknown variable %q", s)
	}
	return v, nil
}

// POWER grid resolution in degrees.
const (
	gridLat = 0.5
	gridLon = 0.625
)

// Location is a point on the globe.
type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// GridCell snaps the location to the provider grid, so nearby points share
// one cached series.
func (l Location) GridCell() Location {
	return Location{
		Lat: math.Round(l.Lat/gridLat) * gridLat,
		Lon: math.Round(l.Lon/gridLon) * gridLon,
	}
}

// YearRange is an inclusive span of calendar years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Resolve fills an End of 0 with the last complete year before now.
func (r YearRange) Resolve(now time.Time) YearRange {
	if r.End <= 0 {
		r.End = now.UTC().Year() - 1
	}
	return r
}

// From returns January 1 of the first year.
func (r YearRange) From() time.Time {
	return time.Date(r.Start, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// To returns December 31 of the last year.
func (r YearRange) To() time.Time {
	return time.Date(r.End, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Query is one request against the statistical views.
type Query struct {
	Location   Location
	Variable   Variable           `validate:"required,oneof=T2M_MAX T2M_MIN T2M WS10M PRECTOTCORR RH2M"`
	TargetDate time.Time          `validate:"required"`
	Threshold  float64
	Comparison climate.Comparison `validate:"required,oneof=gt lt"`
	WindowDays int                `validate:"gte=0"`
}

var validate = validator.New()

// Validate rejects out-of-range coordinates as InvalidParameters.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return climate.Invalid("coordinates must be numbers")
	}
	if err := validate.Struct(l); err != nil {
		return climate.Invalid("%s", describeValidation(err))
	}
	return nil
}

// Validate rejects malformed queries as InvalidParameters. maxWindow bounds
// WindowDays.
func (q Query) Validate(maxWindow int) error {
	if err := validate.Struct(q); err != nil {
		return climate.Invalid("%s", describeValidation(err))
	}
	if math.IsNaN(q.Threshold) || math.IsInf(q.Threshold, 0) {
		return climate.Invalid("threshold must be a finite number")
	}
	if q.WindowDays > maxWindow {
		return climate.Invalid("window_days %d exceeds maximum %d", q.WindowDays, maxWindow)
	}
	return nil
}

// climateQuery converts q into the echo block of a view.
func (q Query) climateQuery() climate.Query {
	info, _ := q.Variable.Info()
	return climate.Query{
		Latitude:   q.Location.Lat,
		Longitude:  q.Location.Lon,
		Variable:   string(q.Variable),
		Units:      info.Units,
		TargetDate: climate.FormatDate(q.TargetDate),
		Comparison: q.Comparison,
		WindowDays: q.WindowDays,
	}
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
