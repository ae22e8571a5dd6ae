package commands

import (
	"context"
	"fmt"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
	"github.com/vsinha/plantsim/pkg/application/services/plant"
	"github.com/vsinha/plantsim/pkg/interfaces/cli/output"
)

// collector fills one report section from the plant's current state
type collector func(ctx context.Context, p *plant.Plant, r *output.Report) error

func collect(ctx context.Context, env *environment, r *output.Report, collectors ...collector) error {
	for _, fn := range collectors {
		if err := fn(ctx, env.plant, r); err != nil {
			return err
		}
	}
	return nil
}

func withSchedule(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.Schedule, err = p.Schedule(ctx)
	return wrap("schedule", err)
}

func withInventory(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.Inventory, err = p.InventoryView(ctx)
	return wrap("inventory view", err)
}

func withRequirements(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.Requirements, err = p.Requirements(ctx)
	return wrap("requirements", err)
}

func withKPIs(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.KPIs, err = p.ComputeKPIs(ctx)
	return wrap("kpis", err)
}

func withDelays(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.Delays, err = p.OrderDelays(ctx)
	return wrap("order delays", err)
}

func withPurchaseOrders(ctx context.Context, p *plant.Plant, r *output.Report) (err error) {
	r.PurchaseOrders, err = p.PurchaseOrders(ctx)
	return wrap("purchase orders", err)
}

// withRecommendations covers every delayed or at-risk order. It reuses
// r.Delays when already collected.
func withRecommendations(ctx context.Context, p *plant.Plant, r *output.Report) error {
	if r.Delays == nil {
		if err := withDelays(ctx, p, r); err != nil {
			return err
		}
	}
	for _, d := range r.Delays {
		if d.Status != analytics.Delayed && d.Status != analytics.AtRisk {
			continue
		}
		rep, err := p.DelayRecommendations(ctx, d.OrderID)
		if err != nil {
			return wrap("recommendations", err)
		}
		r.Recommendations = append(r.Recommendations, rep)
	}
	return nil
}

func wrap(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}
