package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/energia/energia-dashboard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id                   UUID PRIMARY KEY,
	created_at           TIMESTAMPTZ NOT NULL,
	created_by           TEXT NOT NULL,
	total_generated_kw   DOUBLE PRECISION NOT NULL,
	total_consumed_kw    DOUBLE PRECISION NOT NULL,
	total_distributed_kw DOUBLE PRECISION NOT NULL,
	generators           INTEGER NOT NULL,
	dependents           INTEGER NOT NULL,
	over_allocated       INTEGER NOT NULL,
	object_key           TEXT NOT NULL,
	download_url         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS report_runs_created_at_idx ON report_runs (created_at DESC);`

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repos) InsertReportRun(ctx context.Context, run *domain.ReportRun) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO report_runs
		(id, created_at, created_by, total_generated_kw, total_consumed_kw, total_distributed_kw,
		 generators, dependents, over_allocated, object_key, download_url)
		VALUES (:id, :created_at, :created_by, :total_generated_kw, :total_consumed_kw, :total_distributed_kw,
		 :generators, :dependents, :over_allocated, :object_key, :download_url)`, run)
	return err
}

func (r *Repos) ListReportRuns(ctx context.Context, limit int) ([]domain.ReportRun, error) {
	out := []domain.ReportRun{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, created_at, created_by, total_generated_kw, total_consumed_kw,
		total_distributed_kw, generators, dependents, over_allocated, object_key, download_url
		FROM report_runs ORDER BY created_at DESC LIMIT $1`, limit)
	return out, err
}
