package providers

import (
	"context"
	"time"
)

// TariffProvider supplies a forecast series of priced intervals for one direction
// (import or export) of the grid connection; it has no separate live-price reading.
// Import and export are always fetched independently — see spec.md §4.1, they must
// never be conflated.
type TariffProvider interface {
	Forecast(ctx context.Context, now time.Time) ([]TariffInterval, error)
}

// PVProvider supplies a half-hourly solar production forecast (spec.md §4.2).
type PVProvider interface {
	Forecast(ctx context.Context, now time.Time) ([]PVEstimate, error)
}

// WeatherProvider supplies an hourly-or-denser outdoor temperature forecast (spec.md §6).
type WeatherProvider interface {
	Forecast(ctx context.Context, now time.Time) ([]WeatherPoint, error)
}

// HistoryProvider returns raw load-meter history for one entity over [since, until),
// sorted ascending by LastChanged (spec.md §6).
type HistoryProvider interface {
	History(ctx context.Context, entityID string, since, until time.Time) ([]LoadHistorySample, error)
}
