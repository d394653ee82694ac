package domain

import (
	"fmt"
	"time"
)

// ReembedJobStatus represents the status of a re-embedding job
type ReembedJobStatus string

const (
	ReembedJobStatusPending    ReembedJobStatus = "pending"
	ReembedJobStatusProcessing ReembedJobStatus = "processing"
	ReembedJobStatusCompleted  ReembedJobStatus = "completed"
	ReembedJobStatusFailed     ReembedJobStatus = "failed"
)

// ReembedJob re-generates the vector of one stored embedding record. Jobs are
// enqueued in bulk when the embedding model changes, since the vector
// dimension is fixed at model-selection time and mixed-dimension storage is
// not allowed.
type ReembedJob struct {
	ID          string
	RecordID    string
	Status      ReembedJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewReembedJob creates a new ReembedJob instance
func NewReembedJob(id, recordID string, createdAt time.Time) *ReembedJob {
	return &ReembedJob{
		ID:        id,
		RecordID:  recordID,
		Status:    ReembedJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateReembedJob validates a ReembedJob instance
func ValidateReembedJob(j *ReembedJob) error {
	if j == nil {
		return fmt.Errorf("reembed job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("reembed job ID is required")
	}

	if j.RecordID == "" {
		return fmt.Errorf("reembed job RecordID is required")
	}

	if !isValidReembedJobStatus(j.Status) {
		return fmt.Errorf("reembed job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("reembed job Retries cannot be negative")
	}

	return nil
}

func isValidReembedJobStatus(s ReembedJobStatus) bool {
	switch s {
	case ReembedJobStatusPending, ReembedJobStatusProcessing,
		ReembedJobStatusCompleted, ReembedJobStatusFailed:
		return true
	}
	return false
}
