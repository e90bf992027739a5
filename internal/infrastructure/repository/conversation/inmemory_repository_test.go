package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

func TestFindOrCreateConvergesUnderConcurrency(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	const attempts = 64
	results := make([]string, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate direction to cover pair normalization as well.
			userA, userB := "alice", "bob"
			if i%2 == 1 {
				userA, userB = userB, userA
			}
			conv, err := repo.FindOrCreate(ctx, userA, userB, fmt.Sprintf("conv_candidate_%d", i), now)
			require.NoError(t, err)
			results[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}

	conv, err := repo.FindByPair(ctx, "bob", "alice")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, results[0], conv.ID)
	assert.Equal(t, [2]string{"alice", "bob"}, conv.Participants)
}

func TestFindByPairMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	conv, err := repo.FindByPair(context.Background(), "alice", "stranger")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestGetByIDMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.GetByID(context.Background(), "conv_missing")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRecordMessageRestoresBothSides(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	conv, err := repo.FindOrCreate(ctx, "alice", "bob", "conv_1", base)
	require.NoError(t, err)

	require.NoError(t, repo.MarkDeleted(ctx, conv.ID, "alice", base.Add(time.Second)))
	require.NoError(t, repo.MarkCleared(ctx, conv.ID, "bob", base.Add(2*time.Second)))

	require.NoError(t, repo.RecordMessage(ctx, conv.ID, base.Add(3*time.Second)))

	got, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)

	// Flags reset, cutoff timestamps survive.
	assert.False(t, got.StateOf("alice").Deleted)
	assert.False(t, got.StateOf("bob").Cleared)
	require.NotNil(t, got.StateOf("alice").DeletedAt)
	require.NotNil(t, got.StateOf("bob").ClearedAt)
	assert.True(t, got.UpdatedAt.Equal(base.Add(3*time.Second)))
}

func TestMarksDoNotTouchUpdatedAt(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	conv, err := repo.FindOrCreate(ctx, "alice", "bob", "conv_1", base)
	require.NoError(t, err)

	require.NoError(t, repo.MarkDeleted(ctx, conv.ID, "alice", base.Add(time.Hour)))

	got, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(base))
}

func TestMarkUnknownParticipant(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	conv, err := repo.FindOrCreate(ctx, "alice", "bob", "conv_1", time.Now())
	require.NoError(t, err)

	err = repo.MarkDeleted(ctx, conv.ID, "mallory", time.Now())
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListForUser(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	older, err := repo.FindOrCreate(ctx, "alice", "bob", "conv_1", base)
	require.NoError(t, err)
	newer, err := repo.FindOrCreate(ctx, "alice", "carol", "conv_2", base.Add(time.Minute))
	require.NoError(t, err)
	_, err = repo.FindOrCreate(ctx, "bob", "carol", "conv_3", base)
	require.NoError(t, err)

	list, err := repo.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NoError(t, repo.MarkDeleted(ctx, older.ID, "alice", base.Add(2*time.Minute)))

	list, err = repo.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)
}

var _ chat.ConversationRepository = (*InMemoryRepository)(nil)
