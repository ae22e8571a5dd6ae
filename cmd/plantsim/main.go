package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/plantsim/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		configFile    = flag.String("config", "", "Path to YAML configuration file (optional)")
		action        = flag.String("action", commands.ActionReport, "plan | simulate | report | timeline | purchase-orders | resume")
		ticks         = flag.Int("ticks", 60, "simulate: number of ticks")
		duration      = flag.Duration("duration", 0, "simulate: run the tick loop for this long instead of -ticks")
		horizon       = flag.Int("horizon", 0, "Planning horizon in days (0 = configured default)")
		orderID       = flag.String("order", "", "timeline: order id")
		poID          = flag.String("po", "", "purchase-orders: purchase order to adjust")
		expedite      = flag.Int("expedite", 0, "purchase-orders: days to pull the PO's ETA in")
		delay         = flag.Int("delay", 0, "purchase-orders: days to push the PO's ETA out")
		spikesFile    = flag.String("spikes", "", "simulate, resume: orders CSV submitted after the first pass")
		resumeProduct = flag.String("product", "", "resume: product whose held orders are reopened")
		outputDir     = flag.String("output", "", "Output directory for results (optional)")
		format        = flag.String("format", "text", "Output format: text, json, xlsx, svg")
		verbose       = flag.Bool("verbose", false, "Enable verbose output")
		help          = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create command configuration
	config := commands.Config{
		ConfigFile:    *configFile,
		ScenarioDir:   *scenarioDir,
		Action:        *action,
		Ticks:         *ticks,
		Duration:      *duration,
		Horizon:       *horizon,
		OrderID:       *orderID,
		POID:          *poID,
		Expedite:      *expedite,
		Delay:         *delay,
		SpikesFile:    *spikesFile,
		ResumeProduct: *resumeProduct,
		OutputDir:     *outputDir,
		Format:        *format,
		Verbose:       *verbose,
		Help:          *help,
	}

	if err := commands.NewPlantCommand(config).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
