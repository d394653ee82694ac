//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/testutil"
)

func TestProjectRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	repo := NewProjectRepository(pool)

	user := domain.NewUser(uuid.NewString(), "acme", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, userRepo.Create(ctx, user))

	project := domain.NewProject(uuid.NewString(), user.ID, "Docs Site", "docs-site", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, project))

	retrieved, err := repo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs-site", retrieved.Slug)

	retrieved, err = repo.GetBySlug(ctx, user.ID, "docs-site")
	require.NoError(t, err)
	assert.Equal(t, project.ID, retrieved.ID)

	_, err = repo.GetBySlug(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	// Slugs are unique per user, not globally.
	otherUser := domain.NewUser(uuid.NewString(), "globex", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, userRepo.Create(ctx, otherUser))
	otherProject := domain.NewProject(uuid.NewString(), otherUser.ID, "Docs Site", "docs-site", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, otherProject))

	duplicate := domain.NewProject(uuid.NewString(), user.ID, "Docs Again", "docs-site", time.Now().UTC())
	assert.Error(t, repo.Create(ctx, duplicate))

	projects, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	require.NoError(t, repo.Delete(ctx, project.ID))
	assert.ErrorIs(t, repo.Delete(ctx, project.ID), domain.ErrProjectNotFound)
}
