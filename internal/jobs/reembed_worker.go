package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/lumenkb/lumen/internal/domain"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// ReembedJobRepository defines the interface for re-embed job persistence
type ReembedJobRepository interface {
	// GetPendingJobs retrieves and claims pending re-embed jobs
	GetPendingJobs(ctx context.Context) ([]*domain.ReembedJob, error)

	// UpdateJobStatus updates the status of a re-embed job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.ReembedJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// Reembedder regenerates the stored vector of one embedding record
type Reembedder interface {
	ReembedRecord(ctx context.Context, recordID string) error
}

// ReembedWorker drains the re-embed queue after an embedding model change.
type ReembedWorker struct {
	repo    ReembedJobRepository
	service Reembedder
}

// NewReembedWorker creates a new ReembedWorker instance
func NewReembedWorker(repo ReembedJobRepository, service Reembedder) *ReembedWorker {
	return &ReembedWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReembedWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending re-embed jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ReembedWorker) processJob(ctx context.Context, job *domain.ReembedJob) error {
	if job.RecordID == "" {
		return fmt.Errorf("job %s has no record_id", job.ID)
	}

	if err := w.service.ReembedRecord(ctx, job.RecordID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReembedJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *ReembedWorker) handleJobFailure(ctx context.Context, job *domain.ReembedJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReembedJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReembedJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
