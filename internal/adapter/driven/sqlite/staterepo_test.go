package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

func TestStateRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)

	val, ok, err := repo.GetState(context.Background(), driven.StateKeyDailyReset)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", val)
}

func TestStateRepo_SetOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, driven.StateKeyDailyReset, "2026-03-01"))
	require.NoError(t, repo.SetState(ctx, driven.StateKeyDailyReset, "2026-03-02"))

	val, ok, err := repo.GetState(ctx, driven.StateKeyDailyReset)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-03-02", val)
}

func TestStateRepo_HealsDroppedTable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	_, err := db.Writer.ExecContext(ctx, `DROP TABLE pool_state`)
	require.NoError(t, err)

	require.NoError(t, repo.SetState(ctx, driven.StateKeyDailyReset, "2026-07-01"))

	val, ok, err := repo.GetState(ctx, driven.StateKeyDailyReset)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-07-01", val)
}
