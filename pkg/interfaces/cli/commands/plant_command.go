package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
	"github.com/vsinha/plantsim/pkg/interfaces/cli/output"
)

// Actions
const (
	ActionPlan           = "plan"
	ActionSimulate       = "simulate"
	ActionReport         = "report"
	ActionTimeline       = "timeline"
	ActionPurchaseOrders = "purchase-orders"
	ActionResume         = "resume"
)

// Config holds configuration for the plant command
type Config struct {
	ConfigFile    string
	ScenarioDir   string
	Action        string
	Ticks         int
	Duration      time.Duration
	Horizon       int
	OrderID       string
	POID          string
	Expedite      int
	Delay         int
	SpikesFile    string
	ResumeProduct string
	OutputDir     string
	Format        string
	Verbose       bool
	Help          bool

	Now    func() time.Time // wall clock when nil
	Stdout io.Writer        // os.Stdout when nil
	Stderr io.Writer        // logs; os.Stderr when nil
}

// PlantCommand loads a scenario into a fresh plant, runs one action and
// reports the result
type PlantCommand struct {
	config Config
}

// NewPlantCommand creates a new plant command with the given configuration
func NewPlantCommand(config Config) *PlantCommand {
	if config.Action == "" {
		config.Action = ActionReport
	}
	return &PlantCommand{config: config}
}

// Execute runs the plant command
func (c *PlantCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env, err := newEnvironment(ctx, c.config, c.stderr())
	if err != nil {
		return err
	}
	defer env.Close()

	report := &output.Report{Action: c.config.Action, GeneratedAt: env.now()}
	if err := c.run(ctx, env, report); err != nil {
		return fmt.Errorf("%s: %w", c.config.Action, err)
	}
	report.Events = output.NewEventViews(env.recordedEvents())

	err = output.Generate(report, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Writer:    c.stdout(),
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}
	return nil
}

// run performs the action. Every action starts with a planning pass since
// the plant is built fresh from the scenario.
func (c *PlantCommand) run(ctx context.Context, env *environment, report *output.Report) error {
	if err := c.plan(ctx, env, report); err != nil {
		return err
	}

	switch c.config.Action {
	case ActionPlan:
		return collect(ctx, env, report, withSchedule, withRequirements)

	case ActionSimulate:
		if err := c.simulate(ctx, env, report); err != nil {
			return err
		}
		if c.config.SpikesFile != "" {
			if err := c.submitSpikes(ctx, env); err != nil {
				return err
			}
			if err := c.plan(ctx, env, report); err != nil {
				return err
			}
			if err := c.simulate(ctx, env, report); err != nil {
				return err
			}
		}
		report.Lines = output.NewLineSummaries(env.plant.LineStates())
		return collect(ctx, env, report, withSchedule, withInventory, withKPIs, withDelays, withPurchaseOrders)

	case ActionReport:
		return collect(ctx, env, report,
			withSchedule, withInventory, withRequirements, withKPIs, withDelays, withRecommendations, withPurchaseOrders)

	case ActionTimeline:
		timeline, err := env.plant.OrderTimeline(ctx, c.config.OrderID)
		if err != nil {
			return err
		}
		recs, err := env.plant.DelayRecommendations(ctx, c.config.OrderID)
		if err != nil {
			return err
		}
		report.Timeline = timeline
		report.Recommendations = []*analytics.RecommendationReport{recs}
		return nil

	case ActionPurchaseOrders:
		placed, err := env.plant.CheckAndPlacePurchaseOrders(ctx)
		if err != nil {
			return err
		}
		env.log.Info("purchase_orders_placed", "replenishment sweep done", logging.Fields{"placed": len(placed)})
		if err := c.adjustPurchaseOrder(ctx, env); err != nil {
			return err
		}
		return collect(ctx, env, report, withPurchaseOrders, withInventory)

	case ActionResume:
		if c.config.SpikesFile != "" {
			if err := c.submitSpikes(ctx, env); err != nil {
				return err
			}
			if err := c.plan(ctx, env, report); err != nil {
				return err
			}
		}
		resumed, err := env.plant.ResumeHeldOrders(ctx, entities.ProductID(c.config.ResumeProduct))
		if err != nil {
			return err
		}
		env.log.Info("orders_resumed", "held orders reopened", logging.Fields{
			"product": c.config.ResumeProduct,
			"orders":  resumed,
		})
		if err := c.plan(ctx, env, report); err != nil {
			return err
		}
		return collect(ctx, env, report, withSchedule, withDelays)
	}
	return fmt.Errorf("unknown action %q", c.config.Action)
}

func (c *PlantCommand) plan(ctx context.Context, env *environment, report *output.Report) error {
	result, err := env.plant.Plan(ctx, c.config.Horizon)
	if err != nil {
		return fmt.Errorf("planning pass: %w", err)
	}
	report.Plan = result
	return nil
}

// simulate runs a fixed number of ticks, or the tick loop for a wall-clock
// duration. Both stop early once the plan completes.
func (c *PlantCommand) simulate(ctx context.Context, env *environment, report *output.Report) error {
	if c.config.Duration > 0 {
		return c.runFor(ctx, env, c.config.Duration)
	}

	for i := 0; i < c.config.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := env.plant.Tick(ctx)
		if err != nil {
			return fmt.Errorf("tick %d: %w", report.Ticks+1, err)
		}
		report.Ticks++
		if result.Idle || result.PlanCompleted {
			break
		}
	}
	return nil
}

func (c *PlantCommand) runFor(ctx context.Context, env *environment, d time.Duration) error {
	if _, err := env.plant.StartSimulation(ctx); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-env.plant.Done():
	}

	env.plant.StopSimulation()
	<-env.plant.Done()
	return nil
}

func (c *PlantCommand) submitSpikes(ctx context.Context, env *environment) error {
	orders, err := env.loader.LoadOrders(c.config.SpikesFile)
	if err != nil {
		return fmt.Errorf("load spikes: %w", err)
	}
	for _, o := range orders {
		if err := env.plant.SubmitOrder(ctx, o); err != nil {
			return err
		}
	}
	env.log.Info("spikes_submitted", "spike orders submitted", logging.Fields{"count": len(orders)})
	return nil
}

// adjustPurchaseOrder applies the requested expedite or delay to one PO
func (c *PlantCommand) adjustPurchaseOrder(ctx context.Context, env *environment) error {
	if c.config.POID == "" {
		return nil
	}
	if c.config.Expedite > 0 {
		if _, err := env.plant.ExpeditePurchaseOrder(ctx, c.config.POID, c.config.Expedite); err != nil {
			return err
		}
	}
	if c.config.Delay > 0 {
		if _, err := env.plant.DelayPurchaseOrder(ctx, c.config.POID, c.config.Delay); err != nil {
			return err
		}
	}
	return nil
}

// validateInputs validates the command configuration
func (c *PlantCommand) validateInputs() error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("must specify a -scenario directory")
	}
	if c.config.Ticks < 0 || c.config.Duration < 0 || c.config.Expedite < 0 || c.config.Delay < 0 {
		return fmt.Errorf("-ticks, -duration, -expedite and -delay cannot be negative")
	}

	switch c.config.Action {
	case ActionPlan, ActionSimulate, ActionReport:
	case ActionTimeline:
		if c.config.OrderID == "" {
			return fmt.Errorf("%s requires -order", ActionTimeline)
		}
	case ActionPurchaseOrders:
		if (c.config.Expedite > 0 || c.config.Delay > 0) && c.config.POID == "" {
			return fmt.Errorf("-expedite and -delay require -po")
		}
	case ActionResume:
		if c.config.ResumeProduct == "" {
			return fmt.Errorf("%s requires -product", ActionResume)
		}
	default:
		return fmt.Errorf("unknown action %q", c.config.Action)
	}
	return nil
}

func (c *PlantCommand) stdout() io.Writer {
	if c.config.Stdout == nil {
		return os.Stdout
	}
	return c.config.Stdout
}

func (c *PlantCommand) stderr() io.Writer {
	if c.config.Stderr == nil {
		return os.Stderr
	}
	return c.config.Stderr
}

// showHelp displays the help message
func (c *PlantCommand) showHelp() {
	fmt.Fprint(c.stdout(), `plantsim - production planning and plant simulation

USAGE:
    plantsim -scenario <directory> [-action <action>] [options]

ACTIONS:
    plan              Run a planning pass and show the line schedule
    simulate          Plan, then advance production (-ticks or -duration)
    report            Plan, then show inventory, KPIs, delays and recommendations (default)
    timeline          Plan, then show one order's timeline (-order)
    purchase-orders   Plan, place replenishment POs, optionally -expedite or -delay one (-po)
    resume            Plan, optionally submit -spikes, then reopen held orders of -product

OPTIONS:
    -scenario <dir>     Scenario directory containing CSV files
    -config <file>      YAML configuration file (optional; PLANTSIM_* env overrides)
    -action <name>      Action to run (default: report)
    -horizon <days>     Planning horizon in days (default: planning.default_horizon_days)
    -ticks <n>          Ticks to simulate (default: 60)
    -duration <d>       Run the tick loop for a wall-clock duration instead of -ticks
    -spikes <file>      Orders CSV submitted as spikes after the first pass
    -order <id>         Order for the timeline action
    -po <id>            Purchase order to expedite or delay
    -expedite <days>    Move the PO's ETA earlier
    -delay <days>       Move the PO's ETA later
    -product <id>       Product whose held orders are resumed
    -output <dir>       Output directory for json, xlsx and svg results (optional)
    -format <fmt>       Output format: text, json, xlsx, svg (default: text)
    -verbose            Show every event
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── lines.csv                # Production lines
    ├── bom.csv                  # Materials per product unit
    ├── inventory.csv            # Material master and stock
    ├── suppliers.csv            # Suppliers and alternates
    ├── orders.csv               # Orders (optional)
    └── machine_parameters.csv   # Machine health readings (optional)

CSV FILE FORMATS:

lines.csv:
    line_id,name,product_id,daily_capacity,oee,mtbf_hours,mttr_hours
    L1,HighRange_Line1,P-HE,100,0.88,150,2.5

bom.csv:
    product_id,material_id,quantity_per_unit
    P-HE,M020,9

inventory.csv:
    material_id,description,category,reorder_point,safety_stock,lead_time_days,supplier_id,current_stock,unit_cost
    M005,Tyre,Mechanical,117,20,5,SUP01,3200,13677

suppliers.csv:
    supplier_id,name,location,lead_time_days,reliability_pct,alternate_supplier
    SUP01,Tata Autocomp,Delhi,2,88,Yes

orders.csv (dates are YYYY-MM-DD or +N days from today):
    order_id,product_id,quantity,start_date,dispatch_date,priority,is_spike
    ORD-HE-001,P-HE,500,+0,+9,,no

EXAMPLES:
    # Plan the example scenario
    plantsim -scenario example/scenario -action plan

    # Simulate 300 ticks and export a workbook
    plantsim -scenario example/scenario -action simulate -ticks 300 -format xlsx -output results/

    # Run the tick loop for 30 seconds with metrics on :9090
    PLANTSIM_METRICS_LISTEN=:9090 plantsim -scenario example/scenario -action simulate -duration 30s

    # Delay a chip purchase order by 5 days
    plantsim -scenario example/scenario -action purchase-orders -po PO-M014-2025-03-03 -delay 5
`)
}
