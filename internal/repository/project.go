package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenkb/lumen/internal/domain"
)

// ProjectRepository handles persistence of knowledge-base projects.
type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func NewProjectRepositoryWithTx(tx dbtx) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (id, user_id, name, slug, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		project.ID, project.UserID, project.Name, project.Slug, project.CreatedAt,
	)
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, slug, created_at FROM projects WHERE id = $1`,
		id,
	).Scan(&project.ID, &project.UserID, &project.Name, &project.Slug, &project.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetBySlug resolves a project by its slug within one user's namespace.
func (r *ProjectRepository) GetBySlug(ctx context.Context, userID, slug string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, slug, created_at FROM projects WHERE user_id = $1 AND slug = $2`,
		userID, slug,
	).Scan(&project.ID, &project.UserID, &project.Name, &project.Slug, &project.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, slug, created_at
		 FROM projects WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(&project.ID, &project.UserID, &project.Name, &project.Slug, &project.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &project)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
