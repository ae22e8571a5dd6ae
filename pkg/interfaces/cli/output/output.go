package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
	"github.com/vsinha/plantsim/pkg/application/services/planning"
	"github.com/vsinha/plantsim/pkg/application/services/simulation"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatSVG  = "svg"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Writer    io.Writer // stdout when nil
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// EventView is the printable form of a recorded event
type EventView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Stream    string    `json:"stream"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventViews converts recorded events for reporting
func NewEventViews(evts []events.Event) []EventView {
	views := make([]EventView, 0, len(evts))
	for _, e := range evts {
		views = append(views, EventView{
			ID:        e.ID(),
			Type:      e.Type(),
			Stream:    e.StreamID(),
			Message:   e.Message(),
			Timestamp: e.Timestamp(),
		})
	}
	return views
}

// LineSummary is one line's simulation counters
type LineSummary struct {
	LineID         entities.LineID   `json:"line_id"`
	UnitsCompleted entities.Quantity `json:"units_completed"`
	EnergyKWh      float64           `json:"energy_kwh"`
}

// NewLineSummaries flattens simulator state sorted by line id
func NewLineSummaries(states simulation.LineStates) []LineSummary {
	out := make([]LineSummary, 0, len(states))
	for _, id := range states.IDs() {
		s := states[id]
		out = append(out, LineSummary{LineID: id, UnitsCompleted: s.UnitsCompletedInt, EnergyKWh: s.EnergyKWh})
	}
	return out
}

// Report is everything one CLI action produced. Nil or empty sections are
// not rendered.
type Report struct {
	Action          string                            `json:"action"`
	GeneratedAt     time.Time                         `json:"generated_at"`
	Plan            *planning.PassResult              `json:"plan,omitempty"`
	Ticks           int                               `json:"ticks,omitempty"`
	Lines           []LineSummary                     `json:"lines,omitempty"`
	Schedule        []*entities.PlanItem              `json:"schedule,omitempty"`
	Inventory       []analytics.InventoryRow          `json:"inventory,omitempty"`
	Requirements    []entities.MaterialRequirement    `json:"requirements,omitempty"`
	KPIs            []analytics.KPI                   `json:"kpis,omitempty"`
	Delays          []analytics.OrderDelay            `json:"delays,omitempty"`
	Recommendations []*analytics.RecommendationReport `json:"recommendations,omitempty"`
	Timeline        *analytics.Timeline               `json:"timeline,omitempty"`
	PurchaseOrders  []*entities.PurchaseOrder         `json:"purchase_orders,omitempty"`
	Events          []EventView                       `json:"events,omitempty"`
}

// Generate creates output in the specified format
func Generate(report *Report, config Config) error {
	switch config.Format {
	case FormatText, "":
		return generateTextOutput(report, config)
	case FormatJSON:
		return generateJSONOutput(report, config)
	case FormatXLSX:
		return generateXLSXOutput(report, config)
	case FormatSVG:
		return generateSVGOutput(report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateJSONOutput writes the report to stdout, or to plantsim_report.json
// when an output directory is set
func generateJSONOutput(report *Report, config Config) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.writer(), string(jsonData))
		return err
	}

	filename, err := outputPath(config.OutputDir, "plantsim_report.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "JSON report saved to: %s\n", filename)
	}
	return nil
}

// generateSVGOutput writes the line schedule as an SVG Gantt chart
func generateSVGOutput(report *Report, config Config) error {
	chart := NewGanttChart(report.Schedule)
	svg := chart.GenerateSVG(report.Schedule)

	if config.OutputDir == "" {
		_, err := fmt.Fprintln(config.writer(), svg)
		return err
	}

	filename, err := outputPath(config.OutputDir, "plantsim_schedule.svg")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write SVG file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "Schedule chart saved to: %s\n", filename)
	}
	return nil
}

// outputPath creates dir if needed and joins name onto it
func outputPath(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatDelay(days *int) string {
	if days == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *days)
}
