package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/embervolt/hbc/action"
	"github.com/embervolt/hbc/config"
	"github.com/embervolt/hbc/diagnostics"
	"github.com/embervolt/hbc/dispatch"
	"github.com/embervolt/hbc/historyprovider"
	"github.com/embervolt/hbc/hooks"
	"github.com/embervolt/hbc/httpprovider"
	"github.com/embervolt/hbc/load"
	"github.com/embervolt/hbc/matrix"
	"github.com/embervolt/hbc/pipeline"
	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/store"
	"github.com/embervolt/hbc/tariff"
	"github.com/embervolt/hbc/timeutils"
)

// historyEntityID identifies the load meter entity the history provider is queried for. Which
// entity represents "the house load" is a deployment detail the out-of-scope supervisory loop
// would normally supply per spec.md §1; this composition root hardcodes one for local running.
const historyEntityID = "sensor.house_energy"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.json", "path to the process configuration file")
	flag.Parse()

	slog.Info("Starting house battery dispatch optimizer...")

	cfg, err := config.Read(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	httpClient := httpprovider.New(http.Client{Timeout: 10 * time.Second}, "", cfg.Providers.AuthToken)
	providerSet := pipeline.Providers{
		TariffImport: tariffProvider(httpClient, cfg.Providers.TariffImportURL, cfg.Schedule, cfg.Schedule.Import),
		TariffExport: tariffProvider(httpClient, cfg.Providers.TariffExportURL, cfg.Schedule, cfg.Schedule.Export),
		PV:           httpprovider.NewPVProvider(httpClient, cfg.Providers.SolarURL),
		Weather:      httpprovider.NewWeatherProvider(httpClient, cfg.Providers.WeatherURL),
		History:      historyprovider.New(cfg.Providers.SupabaseURL, os.Getenv("SUPABASE_ANON_KEY"), cfg.Providers.SupabaseSchema),
	}

	hookDispatcher := hooks.New(hooksFromConfig(cfg.Hooks))

	diagStore, err := store.New(cfg.StorePath)
	if err != nil {
		slog.Error("failed to open diagnostics store", "error", err)
		return
	}

	solveDispatcher := dispatch.New()
	go solveDispatcher.Run(ctx)

	matrices := newMatrixCache()

	// measuredSoCPct stands in for the battery telemetry feed, which spec.md §1 treats as an
	// external collaborator outside this core's scope; a production supervisor would overwrite
	// this before every tick.
	measuredSoCPct := 50.0

	go runTicks(ctx, providerSet, solveDispatcher, matrices, cfg, measuredSoCPct)
	go consumeResults(ctx, solveDispatcher, hookDispatcher, diagStore, matrices, measuredSoCPct)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan

	cancel()
	time.Sleep(100 * time.Millisecond)

	slog.Info("Exiting")
	os.Exit(0)
}

// matrixCache hands the 288-row matrix a tick's solve was computed against from the synchronous
// BuildTick step over to the asynchronous result consumer, keyed by tick ID. The dispatcher is
// single-flight (spec.md §5), so at most one entry is ever pending: put drops any entry left over
// from an earlier tick, so a late result for that tick finds no matrix and is discarded, and an
// entry is deleted as soon as its matching result is consumed.
type matrixCache struct {
	mu sync.Mutex
	m  map[uuid.UUID]matrix.Matrix
}

func newMatrixCache() *matrixCache {
	return &matrixCache{m: make(map[uuid.UUID]matrix.Matrix)}
}

func (c *matrixCache) put(tickID uuid.UUID, m matrix.Matrix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[uuid.UUID]matrix.Matrix{tickID: m}
}

func (c *matrixCache) takeFor(tickID uuid.UUID) (matrix.Matrix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.m[tickID]
	delete(c.m, tickID)
	return m, ok
}

// runTicks fires BuildTick + Submit every 5-minute lattice tick (spec.md §5's cadence), never
// awaiting the solve itself — the supervisor's scheduling thread only blocks on the cheap
// synchronous alignment/compression step before handing off to the async dispatcher.
func runTicks(ctx context.Context, providerSet pipeline.Providers, solveDispatcher *dispatch.Dispatcher, matrices *matrixCache, cfg config.Config, measuredSoCPct float64) {
	ticker := time.NewTicker(timeutils.SlotDuration)
	defer ticker.Stop()

	runOnce(ctx, providerSet, solveDispatcher, matrices, cfg, measuredSoCPct)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, providerSet, solveDispatcher, matrices, cfg, measuredSoCPct)
		}
	}
}

func runOnce(ctx context.Context, providerSet pipeline.Providers, solveDispatcher *dispatch.Dispatcher, matrices *matrixCache, cfg config.Config, measuredSoCPct float64) {
	now := time.Now().UTC()

	tick, err := pipeline.BuildTick(ctx, now, providerSet, historyEntityID, load.DefaultOptions())
	if err != nil {
		slog.Error("failed to build tick, holding previous action", "error", err)
		return
	}
	if tick.Degraded {
		slog.Warn("load forecast degraded to flat mean, insufficient history")
	}

	initialSoC, wasClamped := clampedSoC(measuredSoCPct, cfg.Battery)
	if wasClamped {
		slog.Warn("measured soc outside configured range, clamping", "measured", measuredSoCPct, "clamped", initialSoC)
	}

	solveTick := dispatch.NewTick(now)
	matrices.put(solveTick.ID, tick.Matrix)
	solveDispatcher.Submit(solveTick, initialSoC, tick.Blocks, cfg.Battery)
}

// consumeResults reads completed solves and carries them through the Action Mapper (C7), the
// Hook Dispatcher (C12), and the Diagnostics Store (C13) — the "policy -> C7 -> action" tail of
// spec.md §2's data flow diagram.
func consumeResults(ctx context.Context, solveDispatcher *dispatch.Dispatcher, hookDispatcher *hooks.Dispatcher, diagStore *store.Store, matrices *matrixCache, measuredSoCPct float64) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-solveDispatcher.Results:
			if result.Err != nil {
				slog.Error("solve failed, holding previous action", "tick", result.Tick.ID, "error", result.Err)
				continue
			}

			m, ok := matrices.takeFor(result.Tick.ID)
			if !ok {
				slog.Error("no matching matrix for tick, dropping result", "tick", result.Tick.ID)
				continue
			}

			decision := action.Map(result.Policy, result.Blocks, result.Params)
			slog.Info("solve complete", "tick", result.Tick.ID, "cost_c", result.CostC, "state", decision.State, "limit_kw", decision.LimitKw)

			if err := hookDispatcher.Apply(ctx, decision); err != nil {
				slog.Error("failed to apply hooks", "error", err)
			}

			solarKw, loadKw := 0.0, 0.0
			if len(m) > 0 {
				solarKw, loadKw = m[0].PVKw, m[0].LoadKw
			}
			gridKw := loadKw - solarKw + decision.TargetKw

			snap := diagnostics.Assemble(result.Tick.ID, result.Tick.StartedAt, m, result.Blocks, result.Policy, result.Params, decision, measuredSoCPct, solarKw, loadKw, gridKw, decision.TargetKw, "")
			if err := diagStore.Add(ctx, snap); err != nil {
				slog.Error("failed to persist diagnostics snapshot", "error", err)
			}
		}
	}
}

// tariffProvider picks the live HTTP feed when url is configured, falling back to a static
// weekly schedule (SPEC_FULL.md §4.10's static schedule fallback) when it is left empty.
func tariffProvider(client *httpprovider.Client, url string, schedule config.ScheduleConfig, rateCfg config.RateScheduleConfig) providers.TariffProvider {
	if url != "" {
		return httpprovider.NewTariffProvider(client, url)
	}

	location := time.UTC
	if schedule.TimeZone != "" {
		loc, err := time.LoadLocation(schedule.TimeZone)
		if err != nil {
			slog.Error("invalid schedule.timeZone, defaulting to UTC", "timeZone", schedule.TimeZone, "error", err)
		} else {
			location = loc
		}
	}

	return tariff.NewStaticSchedule(rateCfg.DefaultPerKwhCents, location, scheduleRates(rateCfg.Rates, location)...)
}

func scheduleRates(rates []config.ScheduleRate, location *time.Location) []tariff.Rate {
	out := make([]tariff.Rate, 0, len(rates))
	for _, r := range rates {
		out = append(out, tariff.Rate{
			PerKwhCents: r.PerKwhCents,
			Period: timeutils.DayedPeriod{
				Days: timeutils.Days(r.Days),
				ClockTimePeriod: timeutils.ClockTimePeriod{
					Start: timeutils.ClockTime{Hour: r.StartHour, Minute: r.StartMinute, Location: location},
					End:   timeutils.ClockTime{Hour: r.EndHour, Minute: r.EndMinute, Location: location},
				},
			},
		})
	}
	return out
}

func hooksFromConfig(cfg config.HookConfig) hooks.Set {
	if cfg.ModbusHost != "" {
		transport := hooks.NewModbusTransport(cfg.ModbusHost, cfg.ModbusChargeCoil, cfg.ModbusDischargeCoil)
		return transport.Set()
	}
	return hooks.ScriptSet(cfg.ChargeStartScript, cfg.ChargeStopScript, cfg.DischargeStartScript, cfg.DischargeStopScript)
}

func clampedSoC(measuredSoCPct float64, params config.BatteryParameters) (float64, bool) {
	if measuredSoCPct < params.SoCMinPct {
		return params.SoCMinPct, true
	}
	if measuredSoCPct > params.SoCMaxPct {
		return params.SoCMaxPct, true
	}
	return measuredSoCPct, false
}
