// Package historyprovider implements the Supabase History Provider (SPEC_FULL.md §4.11,
// component C11): the load-history half of spec.md §6's external interfaces, returning the
// 5-day window of cumulative-energy samples the Load Predictor (C3) consumes. Grounded on the
// teacher's supabase.Client (supabase/supabase.go): it hides the raw nedpals/supabase-go client,
// lazily reconnects on error, and races the underlying call against a timeout channel since the
// library has no native timeout support.
package historyprovider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	supa "github.com/nedpals/supabase-go"

	"github.com/embervolt/hbc/providers"
)

// historyQueryTimeout bounds one Supabase read, mirroring the teacher's supabaseUploadTimeout.
const historyQueryTimeout = 10 * time.Second

const historyTable = "load_history"

// supabaseSample is the row shape stored in the load_history table: one cumulative-energy meter
// reading per entity per timestamp (spec.md §3's LoadHistorySample, plus the entity's raw state
// string so non-numeric samples can be rejected upstream in the Load Predictor, per spec.md §4.3
// step 1).
type supabaseSample struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
}

// Client wraps the Supabase platform for read-only history queries. It reconnects lazily: the
// underlying client is only (re)created on the first query after construction or after an error.
type Client struct {
	url     string
	anonKey string
	schema  string

	subClient       *supa.Client
	shouldReconnect bool
}

// New constructs a Client. The underlying connection is established lazily on the first History
// call, matching the teacher's reconnectIfNeccesary pattern.
func New(url, anonKey, schema string) *Client {
	return &Client{
		url:             url,
		anonKey:         anonKey,
		schema:          schema,
		shouldReconnect: true,
	}
}

// History implements providers.HistoryProvider: it returns entityID's samples in
// [since, until), sorted ascending by LastChanged, racing the query against
// historyQueryTimeout since the underlying library exposes no context support of its own.
func (c *Client) History(ctx context.Context, entityID string, since, until time.Time) ([]providers.LoadHistorySample, error) {
	if err := c.reconnectIfNecessary(); err != nil {
		return nil, fmt.Errorf("connect supabase: %w", err)
	}

	type result struct {
		rows []supabaseSample
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		var rows []supabaseSample
		err := c.subClient.DB.From(historyTable).
			Select("*").
			OrderBy("last_changed", "asc").
			Eq("entity_id", entityID).
			Gte("last_changed", since.UTC().Format(time.RFC3339)).
			Lt("last_changed", until.UTC().Format(time.RFC3339)).
			Execute(&rows)
		resultCh <- result{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(historyQueryTimeout):
		c.shouldReconnect = true
		return nil, errors.New("historyprovider: query timed out")
	case r := <-resultCh:
		if r.err != nil {
			c.shouldReconnect = true
			return nil, fmt.Errorf("query history: %w", r.err)
		}
		return toSamples(entityID, r.rows)
	}
}

// toSamples parses each row's raw state into StateKwh. A non-numeric state (spec.md §4.3 step 1:
// "reject history samples whose state is non-numeric") becomes NaN rather than an error for the
// whole batch — the Load Predictor's validSamples filter is what actually drops it.
func toSamples(entityID string, rows []supabaseSample) ([]providers.LoadHistorySample, error) {
	out := make([]providers.LoadHistorySample, 0, len(rows))
	for _, row := range rows {
		lastChanged, err := time.Parse(time.RFC3339, row.LastChanged)
		if err != nil {
			return nil, fmt.Errorf("parse last_changed for %s: %w", entityID, err)
		}

		stateKwh, err := strconv.ParseFloat(row.State, 64)
		if err != nil {
			stateKwh = math.NaN()
		}

		out = append(out, providers.LoadHistorySample{
			EntityID:    row.EntityID,
			StateKwh:    stateKwh,
			LastChanged: lastChanged,
		})
	}
	return out, nil
}

// createSubClient builds the raw nedpals/supabase-go client with the configured schema headers,
// matching the teacher's createSubClient.
func (c *Client) createSubClient() {
	sub := supa.CreateClient(c.url, c.anonKey)
	sub.DB.AddHeader("Accept-Profile", c.schema)
	sub.DB.AddHeader("Content-Profile", c.schema)
	c.subClient = sub
}

func (c *Client) reconnectIfNecessary() error {
	if !c.shouldReconnect {
		return nil
	}
	c.createSubClient()
	c.shouldReconnect = false
	return nil
}
