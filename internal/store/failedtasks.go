package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paymentgw/internal/domain"
)

type FailedTaskStore struct {
	pool *pgxpool.Pool
}

func NewFailedTaskStore(pool *pgxpool.Pool) *FailedTaskStore {
	return &FailedTaskStore{pool: pool}
}

// Create persists a dead-lettered job, silently ignoring duplicates on
// job_id (a DLQ handler may see the same job more than once).
func (s *FailedTaskStore) Create(ctx context.Context, f *domain.FailedTask) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO failed_tasks
			(id, job_id, job_name, payload, exception_class, exception_message, traceback, retry_count, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (job_id) DO NOTHING`,
		f.ID, f.JobID, f.JobName, f.Payload, f.ExceptionClass, f.ExceptionMessage, f.Traceback, f.RetryCount)
	return err
}

func (s *FailedTaskStore) GetByID(ctx context.Context, id string) (*domain.FailedTask, error) {
	row := s.pool.QueryRow(ctx, selectFailedTaskSQL+` WHERE id = $1`, id)
	return scanFailedTask(row)
}

func (s *FailedTaskStore) ListUnreplayed(ctx context.Context, jobName string, limit int) ([]*domain.FailedTask, error) {
	rows, err := s.pool.Query(ctx, selectFailedTaskSQL+`
		WHERE job_name = $1 AND replayed_at IS NULL
		ORDER BY failed_at
		LIMIT $2`, jobName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.FailedTask
	for rows.Next() {
		f, err := scanFailedTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkReplayed records the outcome of a replay attempt, guarding against
// double-replay: the UPDATE only applies WHERE replayed_at IS NULL, so a
// concurrent second replay attempt affects zero rows.
func (s *FailedTaskStore) MarkReplayed(ctx context.Context, id, status, note string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE failed_tasks
		SET replayed_at = now(), replay_status = $1, replay_note = $2
		WHERE id = $3 AND replayed_at IS NULL`, status, note, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const selectFailedTaskSQL = `
	SELECT id, job_id, job_name, payload, exception_class, exception_message, traceback,
	       retry_count, failed_at, replayed_at, COALESCE(replay_status, ''), COALESCE(replay_note, '')
	FROM failed_tasks`

func scanFailedTask(row pgx.Row) (*domain.FailedTask, error) {
	var f domain.FailedTask
	err := row.Scan(&f.ID, &f.JobID, &f.JobName, &f.Payload, &f.ExceptionClass, &f.ExceptionMessage,
		&f.Traceback, &f.RetryCount, &f.FailedAt, &f.ReplayedAt, &f.ReplayStatus, &f.ReplayNote)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
