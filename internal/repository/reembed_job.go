package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenkb/lumen/internal/domain"
)

var ErrReembedJobNotFound = errors.New("reembed job not found")

// ReembedJobRepository handles persistence of re-embedding jobs.
type ReembedJobRepository struct {
	db dbtx
}

func NewReembedJobRepository(pool *pgxpool.Pool) *ReembedJobRepository {
	return &ReembedJobRepository{db: pool}
}

func NewReembedJobRepositoryWithTx(tx pgx.Tx) *ReembedJobRepository {
	return &ReembedJobRepository{db: tx}
}

func (r *ReembedJobRepository) Create(ctx context.Context, job *domain.ReembedJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reembed_jobs (id, record_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.RecordID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

// EnqueueAll creates one pending job per stored embedding record, skipping
// records that already have a pending or processing job. Used after an
// embedding model change, when every vector must be regenerated.
func (r *ReembedJobRepository) EnqueueAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO reembed_jobs (id, record_id, status, retries, created_at)
		 SELECT gen_random_uuid(), e.id, $1, 0, NOW()
		 FROM embeddings e
		 WHERE NOT EXISTS (
			 SELECT 1 FROM reembed_jobs j
			 WHERE j.record_id = e.id AND j.status IN ($2, $3)
		 )`,
		domain.ReembedJobStatusPending, domain.ReembedJobStatusPending, domain.ReembedJobStatusProcessing,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Enqueue creates a pending job for a single record.
func (r *ReembedJobRepository) Enqueue(ctx context.Context, recordID string) (*domain.ReembedJob, error) {
	job := domain.NewReembedJob(uuid.NewString(), recordID, time.Now().UTC())
	if err := r.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *ReembedJobRepository) GetByID(ctx context.Context, id string) (*domain.ReembedJob, error) {
	var job domain.ReembedJob
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, record_id, status, retries, error, created_at, processed_at
		 FROM reembed_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.RecordID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReembedJobNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

// ClaimPending atomically moves up to limit pending jobs to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// job twice.
func (r *ReembedJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReembedJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM reembed_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE reembed_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE reembed_jobs.id = cte.id
		 RETURNING reembed_jobs.id, reembed_jobs.record_id, reembed_jobs.status,
		           reembed_jobs.retries, reembed_jobs.error, reembed_jobs.created_at, reembed_jobs.processed_at`,
		domain.ReembedJobStatusPending, limit, domain.ReembedJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReembedJob
	for rows.Next() {
		var job domain.ReembedJob
		var errMsg pgtype.Text
		if err := rows.Scan(&job.ID, &job.RecordID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *ReembedJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReembedJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReembedJobStatusCompleted || status == domain.ReembedJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reembed_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReembedJobNotFound
	}
	return nil
}

func (r *ReembedJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reembed_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReembedJobNotFound
	}
	return nil
}

// GetPendingJobs and UpdateJobStatus adapt the repository to the worker's
// job-source interface.
func (r *ReembedJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.ReembedJob, error) {
	return r.ClaimPending(ctx, 100)
}

func (r *ReembedJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.ReembedJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}
