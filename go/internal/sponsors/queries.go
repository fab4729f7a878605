package sponsors

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBTX is the subset of pgxpool.Pool the queries need.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listActiveCampaigns = `
SELECT sponsor_slot, name, logo, url, callout, created_at
FROM campaigns
WHERE active
ORDER BY created_at, id`

// PostgresQueries reads campaigns written by the admin tooling.
type PostgresQueries struct {
	db DBTX
}

func NewPostgresQueries(db DBTX) *PostgresQueries {
	return &PostgresQueries{db: db}
}

func (q *PostgresQueries) ListActiveCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := q.db.Query(ctx, listActiveCampaigns)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	campaigns, err := pgx.CollectRows(rows, pgx.RowToStructByName[Campaign])
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaigns: %w", err)
	}
	return campaigns, nil
}

// StaticQueries serves a fixed campaign list when no database is configured.
type StaticQueries struct {
	Campaigns []Campaign
}

func (q StaticQueries) ListActiveCampaigns(context.Context) ([]Campaign, error) {
	return q.Campaigns, nil
}
