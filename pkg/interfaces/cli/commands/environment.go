package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/plant"
	"github.com/vsinha/plantsim/pkg/domain/services"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	"github.com/vsinha/plantsim/pkg/infrastructure/httpx"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
	"github.com/vsinha/plantsim/pkg/infrastructure/metrics"
	"github.com/vsinha/plantsim/pkg/infrastructure/persistence"
	"github.com/vsinha/plantsim/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/plantsim/pkg/infrastructure/repositories/memory"
)

// environment is one fully wired plant over a loaded scenario
type environment struct {
	cfg      config.Config
	log      *logging.Logger
	now      func() time.Time
	loader   *csv.Loader
	eventLog *events.InMemoryEventStore
	metrics  *metrics.Registry
	plant    *plant.Plant

	sinks      []io.Closer
	stopServer context.CancelFunc
	serverDone chan error
}

func newEnvironment(ctx context.Context, c Config, logOutput io.Writer) (_ *environment, err error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Options{Service: cfg.Log.Service, Level: cfg.Log.Level, Output: logOutput})
	now := c.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	env := &environment{
		cfg:      cfg,
		log:      log,
		now:      now,
		loader:   csv.NewLoader(now()),
		eventLog: events.NewInMemoryEventStore(log),
		metrics:  metrics.NewRegistry(),
	}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()
	env.eventLog.SetRetention(cfg.Events.Retention)

	store, err := env.loadScenario(ctx, c.ScenarioDir)
	if err != nil {
		return nil, err
	}

	journal, err := persistence.OpenJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := env.eventLog.Subscribe([]string{events.AllEventTypes}, env.metrics.EventCounter()); err != nil {
		journal.Close()
		return nil, fmt.Errorf("subscribe event counter: %w", err)
	}
	sink, err := env.openSinks()
	if err != nil {
		journal.Close()
		return nil, err
	}

	env.plant = plant.New(plant.Options{
		Store:   store,
		Journal: journal,
		Sink:    sink,
		Metrics: env.metrics,
		Config:  cfg,
		Now:     now,
		Log:     log,
	})

	if cfg.Metrics.Listen != "" {
		env.serveMetrics(ctx)
	}
	return env, nil
}

// loadScenario reads, validates and stores the scenario's master data
func (e *environment) loadScenario(ctx context.Context, dir string) (*memory.Store, error) {
	scenario, err := e.loader.LoadScenario(dir)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	result := services.NewMasterDataValidator().Validate(services.MasterData{
		Lines:     scenario.Lines,
		BOM:       scenario.BOM,
		Inventory: scenario.Inventory,
		Suppliers: scenario.Suppliers,
		Orders:    scenario.Orders,
	})
	for _, w := range result.Warnings {
		e.log.Warn("scenario_warning", w, logging.Fields{"scenario": dir})
	}
	if result.HasErrors() {
		return nil, fmt.Errorf("invalid scenario %s: %s", dir, strings.Join(result.Errors, "; "))
	}

	store := memory.NewStore()
	if err := store.WithinTx(ctx, scenario.Load); err != nil {
		return nil, fmt.Errorf("store scenario: %w", err)
	}
	e.log.Info("scenario_loaded", "scenario loaded", logging.Fields{
		"scenario":  dir,
		"lines":     len(scenario.Lines),
		"materials": len(scenario.Inventory),
		"orders":    len(scenario.Orders),
	})
	return store, nil
}

// openSinks fans events out to the in-memory log plus every configured
// external sink
func (e *environment) openSinks() (events.Sink, error) {
	cfg := e.cfg.Events
	sinks := []events.Sink{e.eventLog}

	if cfg.KafkaBrokers != "" {
		k := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.BufferSize, e.log)
		sinks = append(sinks, k)
		e.sinks = append(e.sinks, k)
	}
	if cfg.AMQPURL != "" {
		a, err := events.DialAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, cfg.BufferSize, e.log)
		if err != nil {
			return nil, fmt.Errorf("amqp sink: %w", err)
		}
		sinks = append(sinks, a)
		e.sinks = append(e.sinks, a)
	}
	if cfg.PebbleDir != "" {
		p, err := events.OpenPebbleSink(cfg.PebbleDir, cfg.BufferSize, e.log)
		if err != nil {
			return nil, fmt.Errorf("pebble sink: %w", err)
		}
		sinks = append(sinks, p)
		e.sinks = append(e.sinks, p)
	}
	return events.NewMultiSink(sinks...), nil
}

func (e *environment) serveMetrics(ctx context.Context) {
	srvCtx, cancel := context.WithCancel(ctx)
	e.stopServer = cancel
	e.serverDone = make(chan error, 1)

	srv := httpx.New(e.cfg.Metrics.Listen, e.metrics.Handler())
	go func() { e.serverDone <- srv.Run(srvCtx) }()
	e.log.Info("metrics_listening", "serving metrics", logging.Fields{"listen": e.cfg.Metrics.Listen})
}

// recordedEvents returns every event appended so far, oldest first
func (e *environment) recordedEvents() []events.Event {
	evts, _ := e.eventLog.ReadAllEvents(0)
	return evts
}

// Close stops the plant and the metrics endpoint, then drains the sinks
func (e *environment) Close() error {
	var firstErr error
	if e.plant != nil {
		firstErr = e.plant.Close()
	}
	if e.stopServer != nil {
		e.stopServer()
		if err := <-e.serverDone; err != nil {
			e.log.Error("metrics_server", err, nil)
		}
	}
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
