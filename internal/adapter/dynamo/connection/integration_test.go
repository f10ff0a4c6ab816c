package connection_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/connection"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/testhelper"
)

func setupRepo(t *testing.T) *connection.Repo {
	t.Helper()
	client := testhelper.SetupTestTables(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return connection.New(client, testhelper.ConnectionsTable, log)
}

func uniqueKey(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func TestRepo_SubscribeAndList(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := "es#" + uniqueKey("casa")
	connA := uniqueKey("conn")
	connB := uniqueKey("conn")

	require.NoError(t, repo.Subscribe(ctx, connA, word))
	require.NoError(t, repo.Subscribe(ctx, connB, word))
	require.NoError(t, repo.Subscribe(ctx, uniqueKey("conn"), "es#"+uniqueKey("other")))

	got, err := repo.ListSubscribers(ctx, word)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{connA, connB}, got)
}

func TestRepo_Subscribe_RebindsConnection(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	conn := uniqueKey("conn")
	first := "es#" + uniqueKey("perro")
	second := "es#" + uniqueKey("gato")

	require.NoError(t, repo.Subscribe(ctx, conn, first))
	require.NoError(t, repo.Subscribe(ctx, conn, second))

	// A connection watches one word at a time.
	was, err := repo.ListSubscribers(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, was)

	now, err := repo.ListSubscribers(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []string{conn}, now)
}

func TestRepo_Delete_RemovesSubscription(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := "es#" + uniqueKey("arbol")
	conn := uniqueKey("conn")

	require.NoError(t, repo.Subscribe(ctx, conn, word))
	require.NoError(t, repo.Delete(ctx, conn))

	got, err := repo.ListSubscribers(ctx, word)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Deleting an unknown connection stays silent.
	require.NoError(t, repo.Delete(ctx, uniqueKey("ghost")))
}
