// Package report renders an aggregate as the plain-text report printed by the
// CLI and served on /report, plus a JSON view of the same data.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/vzahanych/weather-report/internal/weather"
)

// NoData is printed instead of a report when no provider answered.
const NoData = "No weather data could be retrieved from any source.\n"

const (
	timestampLayout = "2006-01-02 15:04:05"
	ruleWidth       = 40
	fallbackCity    = "WEATHER"
)

type Formatter struct {
	now func() time.Time
}

type Option func(*Formatter)

func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format never fails; an empty aggregate yields NoData.
func (f *Formatter) Format(agg weather.Aggregate) string {
	if agg.IsEmpty() {
		return NoData
	}

	city := agg.City()
	if city == "" {
		city = fallbackCity
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s REPORT\n", city)
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", f.now().Format(timestampLayout))

	for _, e := range agg.Entries() {
		r := e.Reading
		fmt.Fprintf(&b, "%s:\n", e.Provider)
		fmt.Fprintf(&b, "  Temperature: %.1f°C\n", r.Temperature)
		fmt.Fprintf(&b, "  Feels like: %.1f°C\n", r.FeelsLike)
		fmt.Fprintf(&b, "  Conditions: %s\n", r.Description)
		fmt.Fprintf(&b, "  Humidity: %.0f%%\n", r.Humidity)
		fmt.Fprintf(&b, "  Pressure: %.0f hPa\n", r.Pressure)
		fmt.Fprintf(&b, "  Wind: %.1f m/s\n", r.WindSpeed)
		b.WriteString("\n")
	}

	if avg, ok := agg.AverageTemperature(); ok {
		fmt.Fprintf(&b, "Average Temperature: %.1f°C\n", avg)
	}
	fmt.Fprintf(&b, "Successful sources: %d\n", agg.Len())

	return b.String()
}

type Source struct {
	Provider string `json:"provider"`
	weather.Reading
}

// Document is the JSON view of an aggregate.
type Document struct {
	City               string    `json:"city,omitempty"`
	GeneratedAt        time.Time `json:"generated_at"`
	Sources            []Source  `json:"sources"`
	AverageTemperature *float64  `json:"average_temperature,omitempty"`
	SuccessfulSources  int       `json:"successful_sources"`
}

func (f *Formatter) Document(agg weather.Aggregate) Document {
	doc := Document{
		City:              agg.City(),
		GeneratedAt:       f.now().UTC(),
		Sources:           make([]Source, 0, agg.Len()),
		SuccessfulSources: agg.Len(),
	}

	for _, e := range agg.Entries() {
		doc.Sources = append(doc.Sources, Source{Provider: e.Provider, Reading: e.Reading})
	}

	if avg, ok := agg.AverageTemperature(); ok {
		doc.AverageTemperature = &avg
	}

	return doc
}
