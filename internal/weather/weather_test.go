package weather

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReading(source string, temp float64) Reading {
	return Reading{
		Temperature: temp,
		FeelsLike:   temp,
		Description: "Overcast",
		Source:      source,
		City:        "Vilnius",
	}
}

func TestReadingValidate(t *testing.T) {
	assert.NoError(t, validReading("Open-Meteo", 1).Validate())

	tests := []struct {
		name   string
		mutate func(r *Reading)
	}{
		{"NaN temperature", func(r *Reading) { r.Temperature = math.NaN() }},
		{"infinite temperature", func(r *Reading) { r.Temperature = math.Inf(1) }},
		{"NaN feels like", func(r *Reading) { r.FeelsLike = math.NaN() }},
		{"infinite humidity", func(r *Reading) { r.Humidity = math.Inf(-1) }},
		{"NaN pressure", func(r *Reading) { r.Pressure = math.NaN() }},
		{"NaN wind speed", func(r *Reading) { r.WindSpeed = math.NaN() }},
		{"infinite wind direction", func(r *Reading) { r.WindDirection = math.Inf(1) }},
		{"empty description", func(r *Reading) { r.Description = "" }},
		{"empty source", func(r *Reading) { r.Source = "" }},
		{"empty city", func(r *Reading) { r.City = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReading("Open-Meteo", 1)
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestAggregateOrderAndAverage(t *testing.T) {
	var agg Aggregate
	assert.True(t, agg.IsEmpty())
	_, ok := agg.AverageTemperature()
	assert.False(t, ok)
	assert.Equal(t, "", agg.City())

	agg.Add("Open-Meteo", validReading("Open-Meteo", 10))
	agg.Add("wttr.in", validReading("wttr.in", 20))
	agg.Add("WeatherAPI", validReading("WeatherAPI", 30))

	assert.Equal(t, 3, agg.Len())
	assert.Equal(t, []string{"Open-Meteo", "wttr.in", "WeatherAPI"}, agg.Names())
	assert.Equal(t, "Vilnius", agg.City())

	avg, ok := agg.AverageTemperature()
	require.True(t, ok)
	assert.InDelta(t, 20.0, avg, 1e-9)

	entries := agg.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "WeatherAPI", entries[2].Provider)
	assert.Equal(t, 30.0, entries[2].Reading.Temperature)
}

func TestAggregateReAddKeepsPosition(t *testing.T) {
	var agg Aggregate
	agg.Add("a", validReading("a", 1))
	agg.Add("b", validReading("b", 2))
	agg.Add("a", validReading("a", 5))

	assert.Equal(t, []string{"a", "b"}, agg.Names())
	r, ok := agg.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5.0, r.Temperature)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("open-meteo: %w", NewError(KindTransportFailure, "request failed", cause))

	assert.Equal(t, KindTransportFailure, KindOf(err))
	assert.True(t, IsKind(err, KindTransportFailure))
	assert.False(t, IsKind(err, KindTimeout))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transport_failure")

	assert.Equal(t, KindUnknown, KindOf(cause))
	assert.False(t, IsKind(nil, KindUnknown))
	assert.Equal(t, "missing_required_field: temp_C absent", Errorf(KindMissingRequiredField, "%s absent", "temp_C").Error())
}
