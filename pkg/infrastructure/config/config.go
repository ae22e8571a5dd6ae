package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PLANTSIM_"

// Journal backends
const (
	JournalNone     = "none"
	JournalPebble   = "pebble"
	JournalPostgres = "postgres"
)

// Duration is a time.Duration that reads from YAML strings like "1s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SimulationConfig controls the tick loop and alert thresholds
type SimulationConfig struct {
	TickInterval      Duration `yaml:"tick_interval"`
	Seed              int64    `yaml:"seed"` // 0 = seed from the clock
	CriticalMaterials []string `yaml:"critical_materials"`
	LowStockUnits     int64    `yaml:"low_stock_units"`
	UptimeAlertPct    float64  `yaml:"uptime_alert_pct"`
	WorkerAlertPct    float64  `yaml:"worker_alert_pct"`
	InventoryAlertPct float64  `yaml:"inventory_alert_pct"`
	DefectAlertPct    float64  `yaml:"defect_alert_pct"`
}

// ProductProfile overrides the defect and energy baselines of one product
type ProductProfile struct {
	DefectRatePct    float64 `yaml:"defect_rate_pct"`
	EnergyKWhPerUnit float64 `yaml:"energy_kwh_per_unit"`
}

// ProfileConfig holds the templating parameters for new shift profiles
type ProfileConfig struct {
	HoursPerDay           float64                   `yaml:"hours_per_day"`
	WorkerAvailabilityPct float64                   `yaml:"worker_availability_pct"`
	ThroughputSigmaPct    float64                   `yaml:"throughput_sigma_pct"`
	UptimeSigmaPct        float64                   `yaml:"uptime_sigma_pct"`
	WorkerSigmaPct        float64                   `yaml:"worker_sigma_pct"`
	DefectSigmaPct        float64                   `yaml:"defect_sigma_pct"`
	EnergySigmaPct        float64                   `yaml:"energy_sigma_pct"`
	DefectRatePct         float64                   `yaml:"defect_rate_pct"`
	EnergyKWhPerUnit      float64                   `yaml:"energy_kwh_per_unit"`
	Products              map[string]ProductProfile `yaml:"products"`
}

// PlanningConfig controls planning passes
type PlanningConfig struct {
	DefaultHorizonDays int           `yaml:"default_horizon_days"`
	Profiles           ProfileConfig `yaml:"profiles"`
}

// ReplenishmentConfig controls purchase order automation
type ReplenishmentConfig struct {
	AutoPlaceOnTick bool `yaml:"auto_place_on_tick"`
}

// JournalConfig selects where committed batches are recorded
type JournalConfig struct {
	Backend     string `yaml:"backend"`
	PebbleDir   string `yaml:"pebble_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// EventsConfig selects the event sinks beyond the in-memory store
type EventsConfig struct {
	KafkaBrokers string `yaml:"kafka_brokers"` // comma separated host:port
	KafkaTopic   string `yaml:"kafka_topic"`
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	PebbleDir    string `yaml:"pebble_dir"`
	BufferSize   int    `yaml:"buffer_size"`
	Retention    int    `yaml:"retention"` // events kept in memory, 0 = all
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty = no endpoint
}

// LogConfig controls structured logging
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Config is the full runtime configuration
type Config struct {
	Simulation    SimulationConfig    `yaml:"simulation"`
	Planning      PlanningConfig      `yaml:"planning"`
	Replenishment ReplenishmentConfig `yaml:"replenishment"`
	Journal       JournalConfig       `yaml:"journal"`
	Events        EventsConfig        `yaml:"events"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

// Default returns a valid configuration
func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			TickInterval:      Duration(time.Second),
			CriticalMaterials: []string{"M014", "M076", "M108"},
			LowStockUnits:     10,
			UptimeAlertPct:    80,
			WorkerAlertPct:    80,
			InventoryAlertPct: 30,
			DefectAlertPct:    5,
		},
		Planning: PlanningConfig{
			DefaultHorizonDays: 9,
			Profiles: ProfileConfig{
				HoursPerDay:           8,
				WorkerAvailabilityPct: 90,
				ThroughputSigmaPct:    10,
				UptimeSigmaPct:        5,
				WorkerSigmaPct:        5,
				DefectSigmaPct:        1,
				EnergySigmaPct:        5,
				DefectRatePct:         3.0,
				EnergyKWhPerUnit:      0.35,
				Products: map[string]ProductProfile{
					"P-HE": {DefectRatePct: 2.5, EnergyKWhPerUnit: 0.4},
				},
			},
		},
		Replenishment: ReplenishmentConfig{AutoPlaceOnTick: true},
		Journal:       JournalConfig{Backend: JournalNone},
		Events:        EventsConfig{KafkaTopic: "plantsim.events", AMQPExchange: "plantsim_events", BufferSize: 256, Retention: 10000},
		Log:           LogConfig{Level: "info", Service: "plantsim"},
	}
}

// Load builds the configuration: defaults, then the YAML file (if path is
// non-empty), then a .env file in the working directory, then PLANTSIM_*
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("JOURNAL_BACKEND", &c.Journal.Backend)
	str("JOURNAL_PEBBLE_DIR", &c.Journal.PebbleDir)
	str("POSTGRES_DSN", &c.Journal.PostgresDSN)
	str("KAFKA_BROKERS", &c.Events.KafkaBrokers)
	str("KAFKA_TOPIC", &c.Events.KafkaTopic)
	str("AMQP_URL", &c.Events.AMQPURL)
	str("AMQP_EXCHANGE", &c.Events.AMQPExchange)
	str("EVENTS_PEBBLE_DIR", &c.Events.PebbleDir)
	str("METRICS_LISTEN", &c.Metrics.Listen)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_SERVICE", &c.Log.Service)

	if v, ok := lookup(EnvPrefix + "TICK_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTICK_INTERVAL: %w", EnvPrefix, err)
		}
		c.Simulation.TickInterval = Duration(d)
	}
	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		c.Simulation.Seed = seed
	}
	if v, ok := lookup(EnvPrefix + "HORIZON_DAYS"); ok {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHORIZON_DAYS: %w", EnvPrefix, err)
		}
		c.Planning.DefaultHorizonDays = days
	}
	if v, ok := lookup(EnvPrefix + "CRITICAL_MATERIALS"); ok {
		c.Simulation.CriticalMaterials = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "AUTO_PLACE_ON_TICK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sAUTO_PLACE_ON_TICK: %w", EnvPrefix, err)
		}
		c.Replenishment.AutoPlaceOnTick = b
	}
	return nil
}

// Validate checks ranges and cross-field requirements
func (c Config) Validate() error {
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive, got %s", c.Simulation.TickInterval.Std())
	}
	if c.Planning.DefaultHorizonDays < 1 {
		return fmt.Errorf("planning.default_horizon_days must be at least 1, got %d", c.Planning.DefaultHorizonDays)
	}
	if c.Planning.Profiles.HoursPerDay <= 0 {
		return fmt.Errorf("planning.profiles.hours_per_day must be positive, got %v", c.Planning.Profiles.HoursPerDay)
	}
	for name, pct := range map[string]float64{
		"uptime_alert_pct":    c.Simulation.UptimeAlertPct,
		"worker_alert_pct":    c.Simulation.WorkerAlertPct,
		"inventory_alert_pct": c.Simulation.InventoryAlertPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("simulation.%s must be between 0 and 100, got %v", name, pct)
		}
	}
	switch c.Journal.Backend {
	case JournalNone, "":
	case JournalPebble:
		if c.Journal.PebbleDir == "" {
			return fmt.Errorf("journal.pebble_dir is required for the pebble backend")
		}
	case JournalPostgres:
		if c.Journal.PostgresDSN == "" {
			return fmt.Errorf("journal.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal.Backend)
	}
	if c.Events.KafkaBrokers != "" && c.Events.KafkaTopic == "" {
		return fmt.Errorf("events.kafka_topic is required when kafka_brokers is set")
	}
	if c.Events.AMQPURL != "" && c.Events.AMQPExchange == "" {
		return fmt.Errorf("events.amqp_exchange is required when amqp_url is set")
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size cannot be negative, got %d", c.Events.BufferSize)
	}
	if c.Events.Retention < 0 {
		return fmt.Errorf("events.retention cannot be negative, got %d", c.Events.Retention)
	}
	return nil
}

// ProductProfile returns the defect and energy baselines for a product
func (p ProfileConfig) ProductProfile(productID string) ProductProfile {
	if override, ok := p.Products[productID]; ok {
		return override
	}
	return ProductProfile{DefectRatePct: p.DefectRatePct, EnergyKWhPerUnit: p.EnergyKWhPerUnit}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
