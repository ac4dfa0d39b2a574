// Package store implements the Diagnostics Store (spec.md §6, SPEC_FULL.md §4.13, component
// C13): local SQLite persistence of each tick's plan/policy/status snapshot. Grounded on the
// teacher's Repository (gorm + glebarez/sqlite, AutoMigrate on open), generalized from
// telemetry-reading rows with an upload-attempt counter to diagnostic-snapshot rows keyed by
// tick ID, since this repo has no upload pipeline to retry against.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/embervolt/hbc/diagnostics"
)

// StoredSnapshot is one persisted tick, with the plan and policy serialized as JSON — the same
// shape the external dashboard consumes (spec.md §6), just parked in a single column rather than
// normalized across tables the core has no other use for.
type StoredSnapshot struct {
	TickID        string `gorm:"primaryKey"`
	TakenAtUnix   int64
	PlanJSON      string
	PolicyJSON    string
	State         string
	Reason        string
	CurrentPriceC float64
	SoCPct        float64
	SolarKw       float64
	LoadKw        float64
	GridKw        float64
	BatteryKw     float64
}

// Store persists diagnostic snapshots to a local SQLite file.
type Store struct {
	db *gorm.DB
}

// New opens (creating if necessary) the SQLite database at path and migrates its schema.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&StoredSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Add persists one tick's snapshot, overwriting any prior row for the same tick ID.
func (s *Store) Add(ctx context.Context, snap diagnostics.Snapshot) error {
	row, err := toStoredSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	result := s.db.WithContext(ctx).Save(&row)
	return result.Error
}

// Recent returns up to limit snapshots, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredSnapshot, error) {
	var rows []StoredSnapshot
	result := s.db.WithContext(ctx).Order("taken_at_unix desc").Limit(limit).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// ByTickID looks up a single snapshot by its tick ID.
func (s *Store) ByTickID(ctx context.Context, tickID uuid.UUID) (StoredSnapshot, error) {
	var row StoredSnapshot
	result := s.db.WithContext(ctx).First(&row, "tick_id = ?", tickID.String())
	return row, result.Error
}

func toStoredSnapshot(snap diagnostics.Snapshot) (StoredSnapshot, error) {
	planJSON, err := json.Marshal(snap.Plan)
	if err != nil {
		return StoredSnapshot{}, err
	}
	policyJSON, err := json.Marshal(snap.Policy)
	if err != nil {
		return StoredSnapshot{}, err
	}

	return StoredSnapshot{
		TickID:        snap.TickID.String(),
		TakenAtUnix:   snap.TakenAt.Unix(),
		PlanJSON:      string(planJSON),
		PolicyJSON:    string(policyJSON),
		State:         string(snap.State),
		Reason:        snap.Reason,
		CurrentPriceC: snap.CurrentPriceC,
		SoCPct:        snap.SoCPct,
		SolarKw:       snap.SolarKw,
		LoadKw:        snap.LoadKw,
		GridKw:        snap.GridKw,
		BatteryKw:     snap.BatteryKw,
	}, nil
}
