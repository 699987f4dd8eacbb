package weather

import "time"

// Kind discriminates the two fetch shapes the provider supports.
type Kind string

const (
	KindCurrent  Kind = "current"
	KindForecast Kind = "forecast"
)

// Coordinates locate a place on the globe.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Snapshot holds current conditions for one place at one moment.
type Snapshot struct {
	City        string      `json:"city"`
	Country     string      `json:"country"`
	Coord       Coordinates `json:"coord"`
	Temp        float64     `json:"temp"`
	FeelsLike   float64     `json:"feels_like"`
	TempMin     float64     `json:"temp_min"`
	TempMax     float64     `json:"temp_max"`
	Humidity    int         `json:"humidity"`
	Pressure    int         `json:"pressure"`
	WindSpeed   float64     `json:"wind_speed"`
	WindDeg     int         `json:"wind_deg"`
	Clouds      int         `json:"clouds"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	FetchedAt   int64       `json:"dt"`
}

// PeriodTemps carries the four within-day readings used when the user asks
// about "tonight" or "this afternoon" rather than a whole day.
type PeriodTemps struct {
	Morn  float64 `json:"morn"`
	Day   float64 `json:"day"`
	Eve   float64 `json:"eve"`
	Night float64 `json:"night"`
}

// ForecastDay summarizes one day of the outlook.
type ForecastDay struct {
	Date        int64       `json:"dt"`
	Temp        PeriodTemps `json:"temp"`
	TempMin     float64     `json:"temp_min"`
	TempMax     float64     `json:"temp_max"`
	Humidity    int         `json:"humidity"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	WindSpeed   float64     `json:"speed"`
	RainProb    float64     `json:"pop"`
	RainSum     float64     `json:"rain,omitempty"`
}

// Forecast is a multi-day outlook for one place.
type Forecast struct {
	City    string        `json:"city"`
	Country string        `json:"country"`
	Days    []ForecastDay `json:"list"`
}

// Result wraps whichever shape a fetch produced, plus the request window
// that produced it so follow-up turns can compare against it.
type Result struct {
	Current       *Snapshot `json:"current,omitempty"`
	Forecast      *Forecast `json:"forecast,omitempty"`
	StartOffset   int       `json:"startFrom"`
	RequestedDays int       `json:"requestedDays,omitempty"`
}

// IsForecast reports which shape the result carries.
func (r *Result) IsForecast() bool {
	return r != nil && r.Forecast != nil
}

// City returns the resolved place name regardless of shape.
func (r *Result) CityName() string {
	switch {
	case r == nil:
		return ""
	case r.Forecast != nil:
		return r.Forecast.City
	case r.Current != nil:
		return r.Current.City
	}
	return ""
}

// Country returns the resolved country regardless of shape.
func (r *Result) CountryName() string {
	switch {
	case r == nil:
		return ""
	case r.Forecast != nil:
		return r.Forecast.Country
	case r.Current != nil:
		return r.Current.Country
	}
	return ""
}

// DayCount is the number of forecast days carried, or zero for current
// conditions.
func (r *Result) DayCount() int {
	if r == nil || r.Forecast == nil {
		return 0
	}
	if r.RequestedDays > 0 {
		return r.RequestedDays
	}
	return len(r.Forecast.Days)
}

// Request describes one provider fetch.
type Request struct {
	City        string
	Coords      *Coordinates
	Kind        Kind
	Days        int
	StartOffset int
}

// CacheDate derives the cache key date component for a request issued now.
func CacheDate(now time.Time, startOffset int) string {
	return now.AddDate(0, 0, startOffset).Format("2006-01-02")
}
