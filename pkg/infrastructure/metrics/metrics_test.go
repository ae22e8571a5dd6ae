package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vsinha/plantsim/pkg/infrastructure/events"
)

func TestRegistry_HandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.Ticks.Inc()
	reg.UnitsProduced.WithLabelValues("L1").Add(3)
	reg.Events.WithLabelValues("PO_CREATED").Inc()
	reg.InventoryPct.Set(42.5)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, expected := range []string{
		"plantsim_ticks_total 1",
		`plantsim_units_produced_total{line="L1"} 3`,
		`plantsim_events_total{type="PO_CREATED"} 1`,
		"plantsim_inventory_pct 42.5",
	} {
		if !strings.Contains(string(body), expected) {
			t.Errorf("Expected metrics output to contain %q", expected)
		}
	}
}

func TestRegistry_Gatherer(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Expected gather to succeed: %v", err)
	}
	// Vectors without observed labels are not reported
	if len(families) != 7 {
		t.Errorf("Expected 7 metric families, got %d", len(families))
	}
}

func TestEventCounter_CountsByType(t *testing.T) {
	reg := NewRegistry()
	counter := reg.EventCounter()
	for _, e := range []events.Event{
		events.NewEvent(events.POCreatedEvent, "PO-1", "placed", nil),
		events.NewEvent(events.POCreatedEvent, "PO-2", "placed", nil),
		events.NewEvent(events.OrderCompletedEvent, "O1", "done", nil),
	} {
		if !counter.CanHandle(e.Type()) {
			t.Fatalf("Expected counter to accept %s", e.Type())
		}
		if err := counter.Handle(e); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, expected := range []string{
		`plantsim_events_total{type="PO_CREATED"} 2`,
		`plantsim_events_total{type="ORDER_COMPLETED"} 1`,
	} {
		if !strings.Contains(string(body), expected) {
			t.Errorf("Expected metrics output to contain %q", expected)
		}
	}
}
