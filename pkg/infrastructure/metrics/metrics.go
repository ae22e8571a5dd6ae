package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vsinha/plantsim/pkg/infrastructure/events"
)

// Registry holds the plant's collectors on a private Prometheus registry
type Registry struct {
	reg *prometheus.Registry

	Ticks                   prometheus.Counter
	UnitsProduced           *prometheus.CounterVec
	Events                  *prometheus.CounterVec
	PurchaseOrdersPlaced    prometheus.Counter
	PurchaseOrdersDelivered prometheus.Counter
	PlanPasses              prometheus.Counter
	InventoryPct            prometheus.Gauge
	SimulationRunning       prometheus.Gauge
	TickDurationSec         prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ticks := prometheus.NewCounter(prometheus.CounterOpts{Name: "plantsim_ticks_total"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "plantsim_units_produced_total"}, []string{"line"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "plantsim_events_total"}, []string{"type"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "plantsim_purchase_orders_placed_total"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{Name: "plantsim_purchase_orders_delivered_total"})
	passes := prometheus.NewCounter(prometheus.CounterOpts{Name: "plantsim_plan_passes_total"})
	invPct := prometheus.NewGauge(prometheus.GaugeOpts{Name: "plantsim_inventory_pct"})
	running := prometheus.NewGauge(prometheus.GaugeOpts{Name: "plantsim_simulation_running"})
	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plantsim_tick_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(ticks, units, events, placed, delivered, passes, invPct, running, tickDuration)
	return &Registry{
		reg:                     r,
		Ticks:                   ticks,
		UnitsProduced:           units,
		Events:                  events,
		PurchaseOrdersPlaced:    placed,
		PurchaseOrdersDelivered: delivered,
		PlanPasses:              passes,
		InventoryPct:            invPct,
		SimulationRunning:       running,
		TickDurationSec:         tickDuration,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// EventCounter counts events by type. Subscribe it to an event store.
type EventCounter struct {
	events *prometheus.CounterVec
}

var _ events.EventHandler = (*EventCounter)(nil)

func (r *Registry) EventCounter() *EventCounter {
	return &EventCounter{events: r.Events}
}

func (c *EventCounter) Handle(e events.Event) error {
	c.events.WithLabelValues(e.Type()).Inc()
	return nil
}

func (c *EventCounter) CanHandle(string) bool { return true }
