package handlers

import (
	"context"

	"github.com/vzahanych/weather-report/internal/scheduler"
)

// Snapshots is the read side of the refresher the handlers serve from.
type Snapshots interface {
	Latest() (scheduler.Snapshot, bool)
	Current(ctx context.Context) scheduler.Snapshot
	Refresh(ctx context.Context) scheduler.Snapshot
}

// WeatherQuery holds the optional query parameters of /weather and /report.
type WeatherQuery struct {
	Refresh bool `form:"refresh"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status      string   `json:"status"`
	Uptime      string   `json:"uptime"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Providers   []string `json:"providers,omitempty"`
	LastRefresh string   `json:"last_refresh,omitempty"`
	Sources     *int     `json:"sources,omitempty"`
}
