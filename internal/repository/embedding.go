package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/service"
)

// EmbeddingRepository handles persistence of chunk embeddings backed by
// pgvector.
type EmbeddingRepository struct {
	db dbtx
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: pool}
}

func NewEmbeddingRepositoryWithTx(tx dbtx) *EmbeddingRepository {
	return &EmbeddingRepository{db: tx}
}

func (r *EmbeddingRepository) Create(ctx context.Context, record *domain.EmbeddingRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO embeddings
			(id, content, embedding, metadata, source_type, source_id, project_id, user_id, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID,
		record.Content,
		pgvector.NewVector(record.Embedding),
		metadata,
		record.SourceType,
		record.SourceID,
		record.ProjectID,
		record.UserID,
		createdAt,
		updatedAt,
	)
	return err
}

func (r *EmbeddingRepository) GetByID(ctx context.Context, id string) (*domain.EmbeddingRecord, error) {
	var (
		record   domain.EmbeddingRecord
		vec      pgvector.Vector
		metadata []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, content, embedding, metadata, source_type, source_id, project_id, user_id, created_at, updated_at
		 FROM embeddings WHERE id = $1`,
		id,
	).Scan(
		&record.ID,
		&record.Content,
		&vec,
		&metadata,
		&record.SourceType,
		&record.SourceID,
		&record.ProjectID,
		&record.UserID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	record.Embedding = vec.Slice()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, err
		}
	}
	return &record, nil
}

func (r *EmbeddingRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE embeddings SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Search returns records within the tenant scope whose cosine similarity to
// the query vector meets the threshold, most similar first. Similarity is
// computed as 1 - cosine distance and never stored.
func (r *EmbeddingRepository) Search(ctx context.Context, params service.SearchParams) ([]domain.SimilarityResult, error) {
	query := `SELECT id, content, metadata, source_type, source_id,
			1 - (embedding <=> $1) AS similarity
		 FROM embeddings
		 WHERE project_id = $2 AND user_id = $3
			AND 1 - (embedding <=> $1) >= $4`
	args := []any{pgvector.NewVector(params.Embedding), params.ProjectID, params.UserID, params.Threshold}

	if params.SourceType != nil {
		query += ` AND source_type = $5`
		args = append(args, *params.SourceType)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d`, len(args)+1)
	args = append(args, params.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SimilarityResult
	for rows.Next() {
		var (
			res      domain.SimilarityResult
			metadata []byte
		)
		if err := rows.Scan(&res.ID, &res.Content, &metadata, &res.SourceType, &res.SourceID, &res.Similarity); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &res.Metadata); err != nil {
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteBySource removes every record bound to a source entity. Deleting a
// source with no records is not an error.
func (r *EmbeddingRepository) DeleteBySource(ctx context.Context, sourceID string, sourceType domain.SourceType) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM embeddings WHERE source_id = $1 AND source_type = $2`,
		sourceID, sourceType,
	)
	return err
}
