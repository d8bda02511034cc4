package provider

import (
	"math"
	"strconv"
	"strings"

	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/httpclient"
	"github.com/vzahanych/weather-report/internal/units"
	"github.com/vzahanych/weather-report/internal/weather"
)

const OpenMeteoName = "Open-Meteo"

var openMeteoCurrentFields = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"apparent_temperature",
	"weather_code",
	"pressure_msl",
	"wind_speed_10m",
	"wind_direction_10m",
}

// OpenMeteo queries the forecast endpoint by coordinates. Wind is already in m/s
// and conditions arrive as WMO codes.
type OpenMeteo struct {
	baseURL  string
	timezone string
	location weather.Location
}

func NewOpenMeteo(cfg config.OpenMeteoConfig, location weather.Location) *OpenMeteo {
	return &OpenMeteo{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timezone: cfg.Timezone,
		location: location,
	}
}

func (p *OpenMeteo) Name() string {
	return OpenMeteoName
}

func (p *OpenMeteo) Request() (string, map[string]string) {
	params := map[string]string{
		"latitude":  strconv.FormatFloat(p.location.Lat, 'f', -1, 64),
		"longitude": strconv.FormatFloat(p.location.Lon, 'f', -1, 64),
		"current":   strings.Join(openMeteoCurrentFields, ","),
	}
	if p.timezone != "" {
		params["timezone"] = p.timezone
	}
	return p.baseURL + "/forecast", params
}

func (p *OpenMeteo) Parse(payload httpclient.Payload) (weather.Reading, error) {
	current, ok, err := object(payload, "current")
	if err != nil {
		return weather.Reading{}, err
	}
	if !ok {
		return weather.Reading{}, weather.Errorf(weather.KindMalformedResponse, "response has no %q object", "current")
	}

	temp, err := required(current, "temperature_2m")
	if err != nil {
		return weather.Reading{}, err
	}

	r := weather.Reading{
		Temperature: temp,
		Source:      OpenMeteoName,
		City:        p.location.City,
	}

	err = readOptionals(current,
		optional{key: "apparent_temperature", def: temp, dst: &r.FeelsLike},
		optional{key: "relative_humidity_2m", dst: &r.Humidity},
		optional{key: "pressure_msl", dst: &r.Pressure},
		optional{key: "wind_speed_10m", dst: &r.WindSpeed},
		optional{key: "wind_direction_10m", dst: &r.WindDirection},
	)
	if err != nil {
		return weather.Reading{}, err
	}

	r.Description, err = describeCode(current, "weather_code")
	if err != nil {
		return weather.Reading{}, err
	}

	return r, nil
}

// describeCode maps an integral WMO code to text. Absent and fractional codes are Unknown.
func describeCode(m map[string]any, key string) (string, error) {
	code, ok, err := number(m, key)
	if err != nil {
		return "", err
	}
	if !ok || code != math.Trunc(code) || math.Abs(code) > math.MaxInt32 {
		return units.UnknownDescription, nil
	}
	return units.DescribeWeatherCode(int(code)), nil
}
