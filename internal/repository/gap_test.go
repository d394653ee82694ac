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
	"github.com/lumenkb/lumen/internal/pagination"
	"github.com/lumenkb/lumen/internal/testutil"
)

func TestGapRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewGapRepository(pool)

	projectID := uuid.NewString()
	userID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	issue := domain.NewGapRecord(uuid.NewString(), domain.GapTypeIssue, "login button is broken", projectID, userID, now)
	require.NoError(t, repo.Create(ctx, issue))

	retrieved, err := repo.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GapTypeIssue, retrieved.Type)
	assert.Equal(t, issue.Title, retrieved.Title)
	assert.Equal(t, "login button is broken", retrieved.Description)
	assert.Equal(t, domain.DefaultGapTags, retrieved.Tags)
	assert.Equal(t, domain.GapSeverityMedium, retrieved.Severity)
	assert.Equal(t, domain.GapStatusOpen, retrieved.Status)

	inquiry := domain.NewGapRecord(uuid.NewString(), domain.GapTypeInquiry, "how does billing work here", projectID, userID, now)
	require.NoError(t, repo.Create(ctx, inquiry))

	retrieved, err = repo.GetByID(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GapTypeInquiry, retrieved.Type)
	assert.Empty(t, retrieved.Severity)
	assert.Empty(t, retrieved.Status)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrGapNotFound)
}

func TestGapRepository_ListByProjectWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewGapRepository(pool)

	projectID := uuid.NewString()
	userID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)

	for i := 0; i < 5; i++ {
		gapType := domain.GapTypeInquiry
		if i%2 == 0 {
			gapType = domain.GapTypeIssue
		}
		record := domain.NewGapRecord(uuid.NewString(), gapType,
			"how do i configure the widget exporter", projectID, userID,
			base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, record))
	}

	// Other tenants never leak into the listing.
	other := domain.NewGapRecord(uuid.NewString(), domain.GapTypeIssue,
		"other tenant gap entry", uuid.NewString(), userID, base)
	require.NoError(t, repo.Create(ctx, other))

	page1, err := repo.ListByProjectWithCursor(ctx, projectID, userID, nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.NextCursor)
	// Newest first.
	assert.True(t, page1.Items[0].CreatedAt.After(page1.Items[1].CreatedAt))

	cursor, err := pagination.Decode(page1.NextCursor)
	require.NoError(t, err)

	page2, err := repo.ListByProjectWithCursor(ctx, projectID, userID, nil, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.True(t, page2.HasMore)
	assert.True(t, page1.Items[1].CreatedAt.After(page2.Items[0].CreatedAt))

	cursor, err = pagination.Decode(page2.NextCursor)
	require.NoError(t, err)

	page3, err := repo.ListByProjectWithCursor(ctx, projectID, userID, nil, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
}

func TestGapRepository_ListByProjectWithCursor_TypeFilter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewGapRepository(pool)

	projectID := uuid.NewString()
	userID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	issue := domain.NewGapRecord(uuid.NewString(), domain.GapTypeIssue, "the exporter keeps crashing", projectID, userID, now)
	require.NoError(t, repo.Create(ctx, issue))
	inquiry := domain.NewGapRecord(uuid.NewString(), domain.GapTypeInquiry, "what is the exporter for", projectID, userID, now)
	require.NoError(t, repo.Create(ctx, inquiry))

	issueType := domain.GapTypeIssue
	page, err := repo.ListByProjectWithCursor(ctx, projectID, userID, &issueType, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, issue.ID, page.Items[0].ID)
}
