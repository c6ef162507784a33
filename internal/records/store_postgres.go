// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/voxboard/internal/platform/database/schema"
	"github.com/taibuivan/voxboard/internal/platform/dberr"
)

// PostgresRepository implements [Repository] with pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new [PostgresRepository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (repository *PostgresRepository) ListRecords(context context.Context, kind Kind, limit, offset int) ([]*Record, int, error) {
	total, err := repository.CountRecords(context, kind)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s::text, %s, %s
		FROM %s
		ORDER BY %s DESC
		LIMIT $1 OFFSET $2
	`,
		schema.DashboardRecord.ID, schema.DashboardRecord.CreatedAt, schema.DashboardRecord.Data,
		kind.Table(), schema.DashboardRecord.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_"+string(kind))
	}

	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[Record])
	if err != nil {
		return nil, 0, dberr.Wrap(err, "scan_"+string(kind))
	}

	return items, total, nil
}

func (repository *PostgresRepository) CountRecords(context context.Context, kind Kind) (int, error) {
	var total int
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, kind.Table())
	if err := repository.pool.QueryRow(context, query).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, "count_"+string(kind))
	}
	return total, nil
}
