package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/multistate/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type runRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &runRepoPG{pool: pool}
}

func (r *runRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const runCols = `id, cohort, vocabulary, secondary, polished, family,
	subjects, row_count, warnings, created_by, created_at`

func (r *runRepoPG) scanRun(row pgx.Row) (*Run, error) {
	var x Run
	err := row.Scan(&x.ID, &x.Cohort, &x.Vocabulary, &x.Secondary, &x.Polished, &x.Family,
		&x.Subjects, &x.Rows, &x.Warnings, &x.CreatedBy, &x.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &x, err
}

func (r *runRepoPG) Create(ctx context.Context, x *Run) error {
	x.ID = uuid.New()
	if x.Warnings == nil {
		x.Warnings = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO augment_run (id, cohort, vocabulary, secondary, polished, family,
			subjects, row_count, warnings, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		x.ID, x.Cohort, x.Vocabulary, x.Secondary, x.Polished, x.Family,
		x.Subjects, x.Rows, x.Warnings, x.CreatedBy).Scan(&x.CreatedAt)
}

func (r *runRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	return r.scanRun(r.conn(ctx).QueryRow(ctx, `SELECT `+runCols+` FROM augment_run WHERE id = $1`, id))
}

func (r *runRepoPG) List(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM augment_run`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+runCols+` FROM augment_run ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Run
	for rows.Next() {
		x, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, x)
	}
	return items, total, rows.Err()
}

func (r *runRepoPG) InsertRows(ctx context.Context, runID uuid.UUID, rows []*Row) (int64, error) {
	src := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		rec, err := json.Marshal(row.Record)
		if err != nil {
			return 0, fmt.Errorf("encode row %d: %w", row.Index, err)
		}
		row.RunID = runID
		src = append(src, []interface{}{runID, row.Index, row.SubjectID, row.Status, row.StatusNum, rec})
	}
	n, err := r.conn(ctx).CopyFrom(ctx, pgx.Identifier{"augmented_row"},
		[]string{"run_id", "row_index", "subject_id", "status", "status_num", "record"},
		pgx.CopyFromRows(src))
	if err != nil {
		return 0, fmt.Errorf("copy rows for run %s: %w", runID, err)
	}
	return n, nil
}

func (r *runRepoPG) ListRows(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*Row, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM augmented_row WHERE run_id = $1`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT run_id, row_index, subject_id, status, status_num, record
		FROM augmented_row WHERE run_id = $1
		ORDER BY row_index LIMIT $2 OFFSET $3`, runID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Row
	for rows.Next() {
		var row Row
		var rec []byte
		if err := rows.Scan(&row.RunID, &row.Index, &row.SubjectID, &row.Status, &row.StatusNum, &rec); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(rec, &row.Record); err != nil {
			return nil, 0, fmt.Errorf("decode row %d: %w", row.Index, err)
		}
		items = append(items, &row)
	}
	return items, total, rows.Err()
}
