package provider

import (
	"net/url"
	"strings"

	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/httpclient"
	"github.com/vzahanych/weather-report/internal/units"
	"github.com/vzahanych/weather-report/internal/weather"
)

const WttrName = "wttr.in"

// Wttr queries wttr.in's j1 JSON format by city name. Every value arrives as a
// string and wind is reported in km/h.
type Wttr struct {
	baseURL  string
	location weather.Location
}

func NewWttr(cfg config.WttrConfig, location weather.Location) *Wttr {
	return &Wttr{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		location: location,
	}
}

func (p *Wttr) Name() string {
	return WttrName
}

func (p *Wttr) Request() (string, map[string]string) {
	return p.baseURL + "/" + url.PathEscape(p.location.City), map[string]string{"format": "j1"}
}

func (p *Wttr) Parse(payload httpclient.Payload) (weather.Reading, error) {
	current, ok, err := firstObject(payload, "current_condition")
	if err != nil {
		return weather.Reading{}, err
	}
	if !ok {
		return weather.Reading{}, weather.Errorf(weather.KindMalformedResponse, "response has no %q entry", "current_condition")
	}

	temp, err := required(current, "temp_C")
	if err != nil {
		return weather.Reading{}, err
	}

	r := weather.Reading{
		Temperature: temp,
		Description: units.UnknownDescription,
		Source:      WttrName,
		City:        p.location.City,
	}

	var windKph float64
	err = readOptionals(current,
		optional{key: "FeelsLikeC", def: temp, dst: &r.FeelsLike},
		optional{key: "humidity", dst: &r.Humidity},
		optional{key: "pressure", dst: &r.Pressure},
		optional{key: "windspeedKmph", dst: &windKph},
		optional{key: "winddirDegree", dst: &r.WindDirection},
	)
	if err != nil {
		return weather.Reading{}, err
	}
	r.WindSpeed = units.KphToMps(windKph)

	desc, ok, err := firstObject(current, "weatherDesc")
	if err != nil {
		return weather.Reading{}, err
	}
	if ok {
		value, ok, err := text(desc, "value")
		if err != nil {
			return weather.Reading{}, err
		}
		if ok {
			r.Description = value
		}
	}

	return r, nil
}
