package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// weatherCodes maps WMO codes to Spanish descriptions and icon codes.
var weatherCodes = map[int]struct {
	desc string
	icon string
}{
	0:  {"Despejado", "01d"},
	1:  {"Mayormente despejado", "02d"},
	2:  {"Parcialmente nublado", "03d"},
	3:  {"Nublado", "04d"},
	45: {"Niebla", "50d"},
	48: {"Niebla con escarcha", "50d"},
	51: {"Llovizna ligera", "09d"},
	53: {"Llovizna moderada", "09d"},
	55: {"Llovizna densa", "09d"},
	61: {"Lluvia ligera", "10d"},
	63: {"Lluvia moderada", "10d"},
	65: {"Lluvia intensa", "10d"},
	71: {"Nevada ligera", "13d"},
	73: {"Nevada moderada", "13d"},
	75: {"Nevada intensa", "13d"},
	77: {"Granizo", "13d"},
	80: {"Chubascos ligeros", "09d"},
	81: {"Chubascos moderados", "09d"},
	82: {"Chubascos violentos", "09d"},
	85: {"Nevada ligera", "13d"},
	86: {"Nevada intensa", "13d"},
	95: {"Tormenta", "11d"},
	96: {"Tormenta con granizo ligero", "11d"},
	99: {"Tormenta con granizo intenso", "11d"},
}

func describe(code int) (string, string) {
	if entry, ok := weatherCodes[code]; ok {
		return entry.desc, entry.icon
	}
	return "Desconocido", "01d"
}

// Client fetches conditions and forecasts from Open-Meteo. The API needs no
// credential.
type Client struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
	now          func() time.Time
}

// NewClient builds an API client.
func NewClient(geocodingURL, forecastURL string) *Client {
	if strings.TrimSpace(geocodingURL) == "" {
		geocodingURL = defaultGeocodingURL
	}
	if strings.TrimSpace(forecastURL) == "" {
		forecastURL = defaultForecastURL
	}
	return &Client{
		geocodingURL: strings.TrimRight(geocodingURL, "/"),
		forecastURL:  strings.TrimRight(forecastURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Fetch resolves the place (by coords, or geocoding the city) and retrieves
// either current conditions or a daily forecast window.
func (c *Client) Fetch(ctx context.Context, req weather.Request) (*weather.Result, error) {
	var (
		coords  weather.Coordinates
		city    = req.City
		country string
	)

	if req.Coords != nil {
		coords = *req.Coords
	} else {
		if strings.TrimSpace(req.City) == "" {
			return nil, apperrors.Wrap(apperrors.CodeInvalid, "city or coordinates required", nil)
		}
		place, err := c.geocode(ctx, req.City)
		if err != nil {
			return nil, err
		}
		coords = weather.Coordinates{Lat: place.Latitude, Lon: place.Longitude}
		city = place.Name
		country = place.Country
	}

	if req.Kind == weather.KindForecast {
		days := req.Days
		if days <= 0 {
			days = 7
		}
		forecast, err := c.fetchForecast(ctx, coords, city, country)
		if err != nil {
			return nil, err
		}
		// The API always returns the full week; the requested window is
		// sliced out afterwards so day offsets stay anchored to today.
		start := req.StartOffset
		if start > len(forecast.Days) {
			start = len(forecast.Days)
		}
		end := start + days
		if end > len(forecast.Days) {
			end = len(forecast.Days)
		}
		forecast.Days = forecast.Days[start:end]
		return &weather.Result{
			Forecast:      forecast,
			StartOffset:   req.StartOffset,
			RequestedDays: days,
		}, nil
	}

	snapshot, err := c.fetchCurrent(ctx, coords, city, country)
	if err != nil {
		return nil, err
	}
	return &weather.Result{Current: snapshot}, nil
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c *Client) geocode(ctx context.Context, city string) (*geocodeResult, error) {
	endpoint := fmt.Sprintf("%s?name=%s&count=10&language=es&format=json",
		c.geocodingURL, url.QueryEscape(city))

	var payload struct {
		Results []geocodeResult `json:"results"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeNotFound,
			fmt.Sprintf("city %q not found", city), nil)
	}
	// First result is the most populous match.
	return &payload.Results[0], nil
}

func (c *Client) fetchCurrent(ctx context.Context, coords weather.Coordinates, city, country string) (*weather.Snapshot, error) {
	endpoint := fmt.Sprintf("%s?latitude=%g&longitude=%g&current=temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,cloud_cover,pressure_msl,wind_speed_10m,wind_direction_10m&timezone=auto",
		c.forecastURL, coords.Lat, coords.Lon)

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    int     `json:"relative_humidity_2m"`
			FeelsLike   float64 `json:"apparent_temperature"`
			WeatherCode int     `json:"weather_code"`
			CloudCover  int     `json:"cloud_cover"`
			Pressure    float64 `json:"pressure_msl"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WindDeg     int     `json:"wind_direction_10m"`
		} `json:"current"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	desc, icon := describe(payload.Current.WeatherCode)
	return &weather.Snapshot{
		City:        city,
		Country:     country,
		Coord:       coords,
		Temp:        math.Round(payload.Current.Temperature),
		FeelsLike:   math.Round(payload.Current.FeelsLike),
		TempMin:     math.Round(payload.Current.Temperature),
		TempMax:     math.Round(payload.Current.Temperature),
		Humidity:    payload.Current.Humidity,
		Pressure:    int(math.Round(payload.Current.Pressure)),
		WindSpeed:   math.Round(payload.Current.WindSpeed),
		WindDeg:     payload.Current.WindDeg,
		Clouds:      payload.Current.CloudCover,
		Description: desc,
		Icon:        icon,
		FetchedAt:   c.now().Unix(),
	}, nil
}

func (c *Client) fetchForecast(ctx context.Context, coords weather.Coordinates, city, country string) (*weather.Forecast, error) {
	endpoint := fmt.Sprintf("%s?latitude=%g&longitude=%g&daily=weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max&hourly=temperature_2m&timezone=auto&forecast_days=7",
		c.forecastURL, coords.Lat, coords.Lon)

	var payload struct {
		Daily struct {
			Time          []string  `json:"time"`
			WeatherCode   []int     `json:"weather_code"`
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			Precipitation []float64 `json:"precipitation_sum"`
			RainProb      []float64 `json:"precipitation_probability_max"`
			WindMax       []float64 `json:"wind_speed_10m_max"`
		} `json:"daily"`
		Hourly struct {
			Temperature []float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	// The API can truncate or omit individual daily series; index only as
	// far as every series reaches.
	count := len(payload.Daily.Time)
	for _, n := range []int{
		len(payload.Daily.WeatherCode),
		len(payload.Daily.TempMax),
		len(payload.Daily.TempMin),
		len(payload.Daily.Precipitation),
		len(payload.Daily.RainProb),
		len(payload.Daily.WindMax),
	} {
		if n < count {
			count = n
		}
	}
	if count == 0 {
		return nil, apperrors.Wrap(apperrors.CodeProvider, "open-meteo returned no usable daily data", nil)
	}

	days := make([]weather.ForecastDay, 0, count)
	for i, date := range payload.Daily.Time[:count] {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		minTemp := math.Round(payload.Daily.TempMin[i])
		maxTemp := math.Round(payload.Daily.TempMax[i])
		desc, icon := describe(payload.Daily.WeatherCode[i])

		days = append(days, weather.ForecastDay{
			Date:        parsed.Unix(),
			Temp:        periodTemps(payload.Hourly.Temperature, i, minTemp, maxTemp),
			TempMin:     minTemp,
			TempMax:     maxTemp,
			Humidity:    50,
			Description: desc,
			Icon:        icon,
			WindSpeed:   math.Round(payload.Daily.WindMax[i]),
			RainProb:    payload.Daily.RainProb[i] / 100,
			RainSum:     payload.Daily.Precipitation[i],
		})
	}

	return &weather.Forecast{City: city, Country: country, Days: days}, nil
}

// periodTemps derives the four within-day readings from the hourly series:
// morning averages 06/09, day peaks at 12/15, evening peaks at 18/21 and
// night bottoms out over 00/03.
func periodTemps(hourly []float64, dayIndex int, minTemp, maxTemp float64) weather.PeriodTemps {
	at := func(hour int) (float64, bool) {
		idx := dayIndex*24 + hour
		if idx < 0 || idx >= len(hourly) {
			return 0, false
		}
		return hourly[idx], true
	}

	temps := weather.PeriodTemps{
		Morn:  minTemp,
		Day:   maxTemp,
		Eve:   math.Round((maxTemp + minTemp) / 2),
		Night: minTemp,
	}
	if h6, ok6 := at(6); ok6 {
		if h9, ok9 := at(9); ok9 {
			temps.Morn = math.Round((h6 + h9) / 2)
		}
	}
	if h12, ok12 := at(12); ok12 {
		if h15, ok15 := at(15); ok15 {
			temps.Day = math.Round(math.Max(h12, h15))
		}
	}
	if h18, ok18 := at(18); ok18 {
		if h21, ok21 := at(21); ok21 {
			temps.Eve = math.Round(math.Max(h18, h21))
		}
	}
	if h0, ok0 := at(0); ok0 {
		if h3, ok3 := at(3); ok3 {
			temps.Night = math.Round(math.Min(h0, h3))
		}
	}
	return temps
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeProvider, "weather request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return apperrors.Wrap(apperrors.CodeProvider,
			fmt.Sprintf("weather request error: status=%d body=%s", resp.StatusCode, string(body)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeProvider, "read weather response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(apperrors.CodeProvider, "decode weather response", err)
	}
	return nil
}
