package provider

import (
	"strings"

	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/httpclient"
	"github.com/vzahanych/weather-report/internal/units"
	"github.com/vzahanych/weather-report/internal/weather"
)

const WeatherAPIName = "WeatherAPI"

type WeatherAPI struct {
	baseURL  string
	apiKey   string
	location weather.Location
}

func NewWeatherAPI(cfg config.WeatherAPIConfig, location weather.Location) *WeatherAPI {
	return &WeatherAPI{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		location: location,
	}
}

func (p *WeatherAPI) Name() string {
	return WeatherAPIName
}

func (p *WeatherAPI) Request() (string, map[string]string) {
	return p.baseURL + "/current.json", map[string]string{
		"key": p.apiKey,
		"q":   p.location.City,
		"aqi": "no",
	}
}

func (p *WeatherAPI) Parse(payload httpclient.Payload) (weather.Reading, error) {
	current, ok, err := object(payload, "current")
	if err != nil {
		return weather.Reading{}, err
	}
	if !ok {
		return weather.Reading{}, weather.Errorf(weather.KindMalformedResponse, "response has no %q object", "current")
	}

	temp, err := required(current, "temp_c")
	if err != nil {
		return weather.Reading{}, err
	}

	r := weather.Reading{
		Temperature: temp,
		Description: units.UnknownDescription,
		Source:      WeatherAPIName,
		City:        p.location.City,
	}

	var windKph float64
	err = readOptionals(current,
		optional{key: "feelslike_c", def: temp, dst: &r.FeelsLike},
		optional{key: "humidity", dst: &r.Humidity},
		optional{key: "pressure_mb", dst: &r.Pressure},
		optional{key: "wind_kph", dst: &windKph},
		optional{key: "wind_degree", dst: &r.WindDirection},
	)
	if err != nil {
		return weather.Reading{}, err
	}
	r.WindSpeed = units.KphToMps(windKph)

	condition, ok, err := object(current, "condition")
	if err != nil {
		return weather.Reading{}, err
	}
	if ok {
		value, ok, err := text(condition, "text")
		if err != nil {
			return weather.Reading{}, err
		}
		if ok {
			r.Description = value
		}
	}

	return r, nil
}
