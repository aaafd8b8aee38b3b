package episode

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/multistate/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type episodeRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &episodeRepoPG{pool: pool}
}

func (r *episodeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const episodeCols = `id, cohort, subject_id, episode_index, terminal_code,
	interval_start, interval_end, censoring_time, secondary_status, created_at`

var copyCols = []string{
	"id", "cohort", "subject_id", "episode_index", "terminal_code",
	"interval_start", "interval_end", "censoring_time", "secondary_status",
}

func (r *episodeRepoPG) scanRow(row pgx.Row) (*Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.Cohort, &e.SubjectID, &e.EpisodeIndex, &e.TerminalCode,
		&e.IntervalStart, &e.IntervalEnd, &e.CensoringTime, &e.SecondaryStatus, &e.CreatedAt)
	return &e, err
}

// listByCohortSQL returns subjects in order of first load and, within a
// subject, by episode index with load order breaking ties.
const listByCohortSQL = `SELECT ` + episodeCols + ` FROM episode
	WHERE cohort = $1
	ORDER BY MIN(load_seq) OVER (PARTITION BY subject_id), subject_id,
		episode_index NULLS LAST, load_seq`

func (r *episodeRepoPG) ListByCohort(ctx context.Context, cohort string) ([]*Episode, error) {
	rows, err := r.conn(ctx).Query(ctx, listByCohortSQL, cohort)
	if err != nil {
		return nil, fmt.Errorf("list episodes for cohort %s: %w", cohort, err)
	}
	defer rows.Close()
	var items []*Episode
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *episodeRepoPG) CreateBatch(ctx context.Context, cohort string, eps []*Episode) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]interface{}, 0, len(eps))
	for _, e := range eps {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.Cohort = cohort
		e.CreatedAt = now
		rows = append(rows, []interface{}{
			e.ID, e.Cohort, e.SubjectID, e.EpisodeIndex, e.TerminalCode,
			e.IntervalStart, e.IntervalEnd, e.CensoringTime, e.SecondaryStatus,
		})
	}
	n, err := r.conn(ctx).CopyFrom(ctx, pgx.Identifier{"episode"}, copyCols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy episodes into cohort %s: %w", cohort, err)
	}
	return n, nil
}

func (r *episodeRepoPG) DeleteCohort(ctx context.Context, cohort string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM episode WHERE cohort = $1`, cohort)
	if err != nil {
		return 0, fmt.Errorf("delete cohort %s: %w", cohort, err)
	}
	return tag.RowsAffected(), nil
}
