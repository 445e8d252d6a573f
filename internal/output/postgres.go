package output

import (
	"context"
	"fmt"
	"time"

	"github.com/akaushal/resinet/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOutput persists run results for later analysis: one row per run,
// one row per service-level sample, one row per system per resilience
// summary.
type PostgresOutput struct {
	pool *pgxpool.Pool
}

func NewPostgresOutput(ctx context.Context, config *models.DatabaseConfig) (*PostgresOutput, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return &PostgresOutput{pool: pool}, nil
}

// CreateTables sets up the result schema if it does not exist yet.
func (p *PostgresOutput) CreateTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			network_name TEXT NOT NULL,
			strategy     TEXT NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS service_levels (
			run_id     TEXT NOT NULL REFERENCES runs(run_id),
			time_stamp BIGINT NOT NULL,
			component  TEXT NOT NULL,
			infra      TEXT NOT NULL,
			served     DOUBLE PRECISION NOT NULL,
			nominal    DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS service_levels_run_idx
			ON service_levels (run_id, infra, time_stamp)`,
		`CREATE TABLE IF NOT EXISTS resilience_summary (
			run_id           TEXT NOT NULL REFERENCES runs(run_id),
			infra            TEXT NOT NULL,
			ecs_outage_hours DOUBLE PRECISION NOT NULL,
			pcs_outage_hours DOUBLE PRECISION NOT NULL,
			weighted_eoh     DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, infra)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// InsertRun registers a run before its samples are written.
func (p *PostgresOutput) InsertRun(ctx context.Context, runID, networkName, strategy string, startedAt time.Time) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO runs (run_id, network_name, strategy, started_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO NOTHING`,
		runID, networkName, strategy, startedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}
	return nil
}

// CopyServiceLevels bulk-loads the run's samples with the COPY protocol.
func (p *PostgresOutput) CopyServiceLevels(ctx context.Context, rec *models.RunRecords) error {
	rows := make([][]interface{}, 0, len(rec.Records))
	for _, r := range rec.Records {
		rows = append(rows, []interface{}{
			rec.RunID, r.Time, r.ComponentID, string(r.Infra), r.Served, r.Nominal,
		})
	}
	_, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"service_levels"},
		[]string{"run_id", "time_stamp", "component", "infra", "served", "nominal"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy service levels for run %s: %w", rec.RunID, err)
	}
	return nil
}

// InsertSummary writes the per-system resilience metrics of a run.
func (p *PostgresOutput) InsertSummary(ctx context.Context, runID string, infra models.Infra, ecsHours, pcsHours, weightedEOH float64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO resilience_summary (run_id, infra, ecs_outage_hours, pcs_outage_hours, weighted_eoh)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, infra) DO UPDATE
		 SET ecs_outage_hours = EXCLUDED.ecs_outage_hours,
		     pcs_outage_hours = EXCLUDED.pcs_outage_hours,
		     weighted_eoh = EXCLUDED.weighted_eoh`,
		runID, string(infra), ecsHours, pcsHours, weightedEOH)
	if err != nil {
		return fmt.Errorf("failed to insert summary for run %s: %w", runID, err)
	}
	return nil
}

func (p *PostgresOutput) Close() {
	p.pool.Close()
}
