package httpprovider

import (
	"context"
	"time"

	"github.com/embervolt/hbc/providers"
)

// weatherPoint mirrors an hourly-or-denser outdoor temperature forecast sample (spec.md §6).
type weatherPoint struct {
	Time      time.Time `json:"time"`
	TempC     float64   `json:"temperature_c"`
}

// WeatherProvider implements providers.WeatherProvider over HTTP.
type WeatherProvider struct {
	client *Client
	path   string
}

// NewWeatherProvider constructs a weather provider against path (e.g. "/weather/forecast").
func NewWeatherProvider(client *Client, path string) *WeatherProvider {
	return &WeatherProvider{client: client, path: path}
}

func (p *WeatherProvider) Forecast(ctx context.Context, now time.Time) ([]providers.WeatherPoint, error) {
	var wire []weatherPoint
	if err := p.client.get(ctx, p.path, &wire); err != nil {
		return nil, err
	}

	out := make([]providers.WeatherPoint, len(wire))
	for i, w := range wire {
		out[i] = providers.WeatherPoint{Time: w.Time, TemperatureC: w.TempC}
	}
	return out, nil
}
