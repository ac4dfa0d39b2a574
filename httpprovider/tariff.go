package httpprovider

import (
	"context"
	"time"

	"github.com/embervolt/hbc/providers"
)

// tariffInterval mirrors the wire shape of §6's tariff forecast payload: a list of
// {period_start, period_end, per_kwh} intervals, possibly of heterogeneous (5- or 30-minute)
// duration.
type tariffInterval struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	PerKwh      float64   `json:"per_kwh"`
}

// TariffProvider implements providers.TariffProvider for a single direction (import or export)
// of the grid connection. Import and export are always two independent instances against two
// independent endpoints — never conflated, per spec.md §4.1.
type TariffProvider struct {
	client *Client
	path   string
}

// NewTariffProvider constructs a direction-specific tariff provider against path (e.g.
// "/tariff/import/forecast" or "/tariff/export/forecast").
func NewTariffProvider(client *Client, path string) *TariffProvider {
	return &TariffProvider{client: client, path: path}
}

// Forecast fetches the forward-looking tariff intervals. now is unused by this transport (the
// feed returns its own forward window) but is part of the contract so other transports can key
// a request on it.
func (p *TariffProvider) Forecast(ctx context.Context, now time.Time) ([]providers.TariffInterval, error) {
	var wire []tariffInterval
	if err := p.client.get(ctx, p.path, &wire); err != nil {
		return nil, err
	}

	out := make([]providers.TariffInterval, len(wire))
	for i, iv := range wire {
		out[i] = providers.TariffInterval{
			PeriodStart: iv.PeriodStart,
			PeriodEnd:   iv.PeriodEnd,
			PerKwhCents: iv.PerKwh,
		}
	}
	return out, nil
}
