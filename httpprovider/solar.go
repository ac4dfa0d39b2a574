package httpprovider

import (
	"context"
	"time"

	"github.com/embervolt/hbc/providers"
)

// pvEstimate mirrors a Solcast-style half-hour accumulated energy estimate, keyed by the end of
// the 30-minute window it covers (spec.md §4.2).
type pvEstimate struct {
	PeriodEnd time.Time `json:"period_end"`
	EnergyKwh float64   `json:"pv_estimate_kwh"`
}

// PVProvider implements providers.PVProvider over HTTP.
type PVProvider struct {
	client *Client
	path   string
}

// NewPVProvider constructs a PV provider against path (e.g. "/solar/forecast").
func NewPVProvider(client *Client, path string) *PVProvider {
	return &PVProvider{client: client, path: path}
}

func (p *PVProvider) Forecast(ctx context.Context, now time.Time) ([]providers.PVEstimate, error) {
	var wire []pvEstimate
	if err := p.client.get(ctx, p.path, &wire); err != nil {
		return nil, err
	}

	out := make([]providers.PVEstimate, len(wire))
	for i, e := range wire {
		out[i] = providers.PVEstimate{PeriodEnd: e.PeriodEnd, EnergyKwh: e.EnergyKwh}
	}
	return out, nil
}
