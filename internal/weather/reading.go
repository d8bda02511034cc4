package weather

import (
	"fmt"
	"math"
)

// Location is the place readings are requested for. It is supplied as-is, never geocoded.
type Location struct {
	City string  `json:"city" mapstructure:"city" validate:"required"`
	Lat  float64 `json:"lat" mapstructure:"lat" validate:"latitude"`
	Lon  float64 `json:"lon" mapstructure:"lon" validate:"longitude"`
}

// Reading is one provider's current conditions in canonical metric units.
type Reading struct {
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Description   string  `json:"description"`
	Source        string  `json:"source"`
	City          string  `json:"city"`
}

// Validate reports whether the reading is complete enough to be published.
// Every numeric field must be finite.
func (r Reading) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"temperature", r.Temperature},
		{"feels_like", r.FeelsLike},
		{"humidity", r.Humidity},
		{"pressure", r.Pressure},
		{"wind_speed", r.WindSpeed},
		{"wind_direction", r.WindDirection},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s is not a finite number: %v", f.name, f.value)
		}
	}
	if r.Description == "" {
		return fmt.Errorf("description is empty")
	}
	if r.Source == "" {
		return fmt.Errorf("source is empty")
	}
	if r.City == "" {
		return fmt.Errorf("city is empty")
	}
	return nil
}
