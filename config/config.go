package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// BatteryParameters is the process-wide calibration for the battery and inverter (spec.md §3).
type BatteryParameters struct {
	CapacityKwh     float64 `json:"capacityKwh"`
	MaxChargeKw     float64 `json:"maxChargeKw"`
	MaxDischargeKw  float64 `json:"maxDischargeKw"`
	InverterLimitKw float64 `json:"inverterLimitKw"`
	SoCMinPct       float64 `json:"soCMinPct"`
	SoCMaxPct       float64 `json:"soCMaxPct"`
	SoCGridPct      float64 `json:"soCGridPct"`
}

// DefaultBatteryParameters returns the defaults named in spec.md §3.
func DefaultBatteryParameters() BatteryParameters {
	return BatteryParameters{
		CapacityKwh:     27.0,
		MaxChargeKw:     6.3,
		MaxDischargeKw:  6.3,
		InverterLimitKw: 10.0,
		SoCMinPct:       0,
		SoCMaxPct:       100,
		SoCGridPct:      5,
	}
}

// validSoCGridSteps enumerates the only quantization steps the solver's state space supports (spec.md §7: ConfigInvalid).
var validSoCGridSteps = map[float64]bool{1: true, 5: true, 10: true, 25: true}

// Validate checks the battery parameters against spec.md §7's ConfigInvalid conditions: non-positive
// capacity, negative power limits, or a SoCGridPct outside {1,5,10,25}. The core refuses to run until
// reconfigured when this returns an error.
func (b BatteryParameters) Validate() error {
	if b.CapacityKwh <= 0 {
		return fmt.Errorf("%w: capacityKwh must be positive, got %v", ErrConfigInvalid, b.CapacityKwh)
	}
	if b.MaxChargeKw < 0 || b.MaxDischargeKw < 0 || b.InverterLimitKw < 0 {
		return fmt.Errorf("%w: power limits must be non-negative", ErrConfigInvalid)
	}
	if !validSoCGridSteps[b.SoCGridPct] {
		return fmt.Errorf("%w: soCGridPct must be one of 1, 5, 10, 25, got %v", ErrConfigInvalid, b.SoCGridPct)
	}
	if b.SoCMinPct < 0 || b.SoCMaxPct > 100 || b.SoCMinPct >= b.SoCMaxPct {
		return fmt.Errorf("%w: soCMinPct/soCMaxPct must satisfy 0 <= min < max <= 100", ErrConfigInvalid)
	}
	return nil
}

// ProviderEndpoints configures the reference HTTP/Supabase providers (SPEC_FULL.md §4.10, §4.11).
type ProviderEndpoints struct {
	TariffImportURL string `json:"tariffImportUrl"`
	TariffExportURL string `json:"tariffExportUrl"`
	SolarURL        string `json:"solarUrl"`
	WeatherURL      string `json:"weatherUrl"`
	AuthToken       string `json:"authToken"`

	SupabaseURL    string `json:"supabaseUrl"`
	SupabaseSchema string `json:"supabaseSchema"`
	// key is specified via env var, as with the teacher's SupabaseConfig
}

// ScheduleRate configures one recurring clock-time rate window of a static fallback tariff
// schedule. Days must be "weekdays", "weekends", or "all".
type ScheduleRate struct {
	Days        string  `json:"days"`
	StartHour   int     `json:"startHour"`
	StartMinute int     `json:"startMinute"`
	EndHour     int     `json:"endHour"`
	EndMinute   int     `json:"endMinute"`
	PerKwhCents float64 `json:"perKwhCents"`
}

// RateScheduleConfig configures one direction (import or export) of tariff.StaticSchedule.
type RateScheduleConfig struct {
	DefaultPerKwhCents float64        `json:"defaultPerKwhCents"`
	Rates              []ScheduleRate `json:"rates"`
}

// ScheduleConfig configures tariff.StaticSchedule, the fixed weekly rate tables used in place of
// ProviderEndpoints.TariffImportURL/TariffExportURL when those are left empty (SPEC_FULL.md §4.10).
type ScheduleConfig struct {
	TimeZone string             `json:"timeZone"`
	Import   RateScheduleConfig `json:"import"`
	Export   RateScheduleConfig `json:"export"`
}

// HookConfig configures the four hardware command hooks (spec.md §6). When ModbusHost is set, the
// two modbus coils drive all four hooks and the script fields are ignored; otherwise a script
// field left empty runs observation-only for that hook.
type HookConfig struct {
	ChargeStartScript    string `json:"chargeStartScript"`
	ChargeStopScript     string `json:"chargeStopScript"`
	DischargeStartScript string `json:"dischargeStartScript"`
	DischargeStopScript  string `json:"dischargeStopScript"`

	ModbusHost          string `json:"modbusHost"`
	ModbusChargeCoil    uint16 `json:"modbusChargeCoil"`
	ModbusDischargeCoil uint16 `json:"modbusDischargeCoil"`
}

// Config is the top-level process configuration, unmarshalled from a JSON file in the teacher's
// config.Read style.
type Config struct {
	Battery   BatteryParameters `json:"battery"`
	Providers ProviderEndpoints `json:"providers"`
	Schedule  ScheduleConfig    `json:"schedule"`
	Hooks     HookConfig        `json:"hooks"`
	StorePath string            `json:"storePath"`
}

// Validate runs all of this Config's ConfigInvalid checks.
func (c Config) Validate() error {
	return c.Battery.Validate()
}

// Read loads and validates a Config from the JSON file at path.
func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	err = json.Unmarshal(content, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
