package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// schema mirrors the telemetry, progress and event tables of the plant database
const schema = `
CREATE TABLE IF NOT EXISTS journal_batch (
	id      BIGSERIAL PRIMARY KEY,
	kind    TEXT NOT NULL,
	run_id  TEXT,
	at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS production_realtime (
	id                         BIGSERIAL PRIMARY KEY,
	batch_id                   BIGINT NOT NULL REFERENCES journal_batch(id),
	run_id                     TEXT NOT NULL,
	plan_id                    TEXT,
	ts                         TIMESTAMPTZ NOT NULL,
	assembly_line              TEXT NOT NULL,
	shift_id                   TEXT NOT NULL,
	demand                     BIGINT NOT NULL,
	inventory_status_pct       DOUBLE PRECISION NOT NULL,
	machine_uptime_pct         DOUBLE PRECISION NOT NULL,
	worker_availability_pct    DOUBLE PRECISION NOT NULL,
	production_output_cum      BIGINT NOT NULL,
	defect_rate_pct            DOUBLE PRECISION NOT NULL,
	energy_consumption_kwh_cum DOUBLE PRECISION NOT NULL,
	semiconductor_availability TEXT NOT NULL,
	alert_status               TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_progress (
	id                        BIGSERIAL PRIMARY KEY,
	batch_id                  BIGINT NOT NULL REFERENCES journal_batch(id),
	order_id                  TEXT NOT NULL,
	run_id                    TEXT NOT NULL,
	ts                        TIMESTAMPTZ NOT NULL,
	completed_qty             BIGINT NOT NULL,
	remaining_qty             BIGINT NOT NULL,
	estimated_completion_date DATE
);
CREATE TABLE IF NOT EXISTS event (
	event_id      TEXT PRIMARY KEY,
	batch_id      BIGINT NOT NULL REFERENCES journal_batch(id),
	event_type    TEXT NOT NULL,
	stream_id     TEXT NOT NULL,
	description   TEXT NOT NULL,
	event_date    TIMESTAMPTZ NOT NULL,
	metadata_json JSONB
);`

// pgxPool is the part of *pgxpool.Pool the journal uses
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresJournal writes each committed batch in one Postgres transaction
type PostgresJournal struct {
	pool pgxPool
}

var _ repositories.Journal = (*PostgresJournal)(nil)

// OpenPostgresJournal connects, pings and ensures the schema exists
func OpenPostgresJournal(ctx context.Context, dsn string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	j := NewPostgresJournalWith(pool)
	if err := j.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

func NewPostgresJournalWith(pool pgxPool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Migrate creates the journal tables if they are missing
func (j *PostgresJournal) Migrate(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Commit(ctx context.Context, batch *repositories.JournalBatch) (err error) {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rec := toRecord(0, batch)
	var batchID int64
	if err = tx.QueryRow(ctx,
		`INSERT INTO journal_batch (kind, run_id, at) VALUES ($1, NULLIF($2, ''), $3) RETURNING id`,
		rec.Kind, rec.RunID, rec.At,
	).Scan(&batchID); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, t := range rec.Telemetry {
		if _, err = tx.Exec(ctx, `
			INSERT INTO production_realtime (
				batch_id, run_id, plan_id, ts, assembly_line, shift_id, demand,
				inventory_status_pct, machine_uptime_pct, worker_availability_pct,
				production_output_cum, defect_rate_pct, energy_consumption_kwh_cum,
				semiconductor_availability, alert_status
			) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			batchID, t.RunID, t.PlanID, t.TS, t.LineID, t.ShiftID, t.Demand,
			t.InventoryStatusPct, t.MachineUptimePct, t.WorkerAvailabilityPct,
			t.ProductionOutputCum, t.DefectRatePct, t.EnergyConsumptionKWhCum,
			t.SemiconductorAvailability, t.AlertStatus,
		); err != nil {
			return fmt.Errorf("insert telemetry for %s: %w", t.LineID, err)
		}
	}

	for _, p := range rec.Progress {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_progress (
				batch_id, order_id, run_id, ts, completed_qty, remaining_qty, estimated_completion_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			batchID, p.OrderID, p.RunID, p.TS, p.CompletedQty, p.RemainingQty, p.EstimatedCompletionDate,
		); err != nil {
			return fmt.Errorf("insert progress for %s: %w", p.OrderID, err)
		}
	}

	for _, e := range rec.Events {
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO event (event_id, batch_id, event_type, stream_id, description, event_date, metadata_json)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, batchID, e.Type, e.StreamID, e.Message, e.Timestamp, payload,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}
