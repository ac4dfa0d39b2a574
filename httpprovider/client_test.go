package httpprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTariffProviderForecast(t *testing.T) {
	start := mustParseTime("2024-01-01T00:00:00Z")
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]tariffInterval{
			{PeriodStart: start, PeriodEnd: start.Add(30 * time.Minute), PerKwh: 12.5},
		})
	}))
	defer server.Close()

	client := New(http.Client{}, server.URL, "tok123")
	provider := NewTariffProvider(client, "/tariff/import/forecast")

	intervals, err := provider.Forecast(context.Background(), start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 || intervals[0].PerKwhCents != 12.5 {
		t.Fatalf("unexpected intervals: %+v", intervals)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}

func TestTariffProviderNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(http.Client{}, server.URL, "")
	provider := NewTariffProvider(client, "/tariff/import/forecast")

	_, err := provider.Forecast(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func mustParseTime(str string) time.Time {
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		panic(err)
	}
	return parsed
}
