package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/pagination"
	"github.com/lumenkb/lumen/internal/service"
)

// GapRepository persists knowledge gap records. Issues and inquiries share
// one table; inquiry rows leave severity and status null.
type GapRepository struct {
	db dbtx
}

func NewGapRepository(pool *pgxpool.Pool) *GapRepository {
	return &GapRepository{db: pool}
}

func NewGapRepositoryWithTx(tx dbtx) *GapRepository {
	return &GapRepository{db: tx}
}

func (r *GapRepository) Create(ctx context.Context, record *domain.GapRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_gaps
			(id, type, title, description, tags, severity, status, project_id, user_id, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID,
		record.Type,
		record.Title,
		record.Description,
		record.Tags,
		nullableString(record.Severity),
		nullableString(record.Status),
		record.ProjectID,
		record.UserID,
		record.CreatedAt,
	)
	return err
}

func (r *GapRepository) GetByID(ctx context.Context, id string) (*domain.GapRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, type, title, description, tags, severity, status, project_id, user_id, created_at
		 FROM knowledge_gaps WHERE id = $1`,
		id,
	)
	record, err := scanGapRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGapNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListByProjectWithCursor returns one page of gap records for a tenant,
// newest first, optionally filtered by type. Pages are keyed on
// (created_at, id) so concurrent inserts never shift page boundaries.
func (r *GapRepository) ListByProjectWithCursor(ctx context.Context, projectID, userID string, gapType *domain.GapType, cursor *pagination.Cursor, limit int) (*service.GapPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, type, title, description, tags, severity, status, project_id, user_id, created_at
		 FROM knowledge_gaps
		 WHERE project_id = $1 AND user_id = $2`
	args := []any{projectID, userID}

	if gapType != nil {
		args = append(args, *gapType)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.LastID)
		query += fmt.Sprintf(` AND (created_at, id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.GapRecord
	for rows.Next() {
		record, err := scanGapRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &service.GapPageResult{Items: records}
	if len(records) > limit {
		result.Items = records[:limit]
		result.HasMore = true
		last := result.Items[limit-1]
		result.NextCursor = pagination.Cursor{LastID: last.ID, CreatedAt: last.CreatedAt}.Encode()
	}
	return result, nil
}

func scanGapRow(row pgx.Row) (*domain.GapRecord, error) {
	var (
		record   domain.GapRecord
		severity pgtype.Text
		status   pgtype.Text
	)
	err := row.Scan(
		&record.ID,
		&record.Type,
		&record.Title,
		&record.Description,
		&record.Tags,
		&severity,
		&status,
		&record.ProjectID,
		&record.UserID,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Severity = severity.String
	record.Status = status.String
	return &record, nil
}
