package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explainer-ai/backend/internal/model/chat"
	"github.com/explainer-ai/backend/internal/model/user"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSession(id string, at time.Time, contents ...string) *chat.Session {
	sess := &chat.Session{ID: id, Title: "title " + id, CreatedAt: at, UpdatedAt: at}
	for i, c := range contents {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		sess.Messages = append(sess.Messages, chat.Message{Role: role, Content: c, Timestamp: at})
	}
	return sess
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := db.CreateUser(ctx, &user.Account{
		Identity:     user.Identity{Username: "alice", Email: "a@x.com", CreatedAt: now},
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = db.CreateUser(ctx, &user.Account{
		Identity:     user.Identity{Username: "alice2", Email: "a@x.com", CreatedAt: now},
		PasswordHash: "hash",
	})
	require.ErrorIs(t, err, ErrConflict)

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFindUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := db.CreateUser(ctx, &user.Account{
		Identity:     user.Identity{Username: "bob", Email: "b@x.com", CreatedAt: time.Now().UTC()},
		PasswordHash: "secret-hash",
	})
	require.NoError(t, err)

	byEmail, err := db.FindUserByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "secret-hash", byEmail.PasswordHash)

	byID, err := db.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", byID.Username)

	_, err = db.FindUserByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertSessionInsertThenUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertSession(ctx, 42, testSession("c1", t0, "q1", "a1")))

	updated := testSession("c1", t0.Add(time.Minute), "q1", "a1", "q2", "a2")
	updated.CreatedAt = t0.Add(time.Hour)
	require.NoError(t, db.UpsertSession(ctx, 42, updated))

	got, err := db.GetSession(ctx, 42, "c1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "q2", got.Messages[2].Content)
	assert.Equal(t, chat.RoleAssistant, got.Messages[3].Role)
	assert.True(t, got.CreatedAt.Equal(t0), "created_at must survive updates")
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestSessionsScopedByUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.UpsertSession(ctx, 1, testSession("shared", now, "from one")))
	require.NoError(t, db.UpsertSession(ctx, 2, testSession("shared", now, "from two")))

	one, err := db.GetSession(ctx, 1, "shared")
	require.NoError(t, err)
	assert.Equal(t, "from one", one.Messages[0].Content)

	require.NoError(t, db.DeleteSession(ctx, 1, "shared"))
	_, err = db.GetSession(ctx, 1, "shared")
	assert.ErrorIs(t, err, ErrNotFound)

	two, err := db.GetSession(ctx, 2, "shared")
	require.NoError(t, err)
	assert.Equal(t, "from two", two.Messages[0].Content)
}

func TestListSessionsOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertSession(ctx, 7, testSession("old", t0, "x")))
	require.NoError(t, db.UpsertSession(ctx, 7, testSession("tie-a", t0.Add(time.Second), "x")))
	require.NoError(t, db.UpsertSession(ctx, 7, testSession("tie-b", t0.Add(time.Second), "x")))
	require.NoError(t, db.UpsertSession(ctx, 7, testSession("new", t0.Add(2*time.Second), "x", "y")))

	list, err := db.ListSessions(ctx, 7)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, ids)
	assert.Equal(t, 2, list[0].MessageCount)

	empty, err := db.ListSessions(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateTitleAndDeleteNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertSession(ctx, 3, testSession("c", t0, "q", "a")))
	require.NoError(t, db.UpdateSessionTitle(ctx, 3, "c", "renamed", t0.Add(time.Minute)))

	got, err := db.GetSession(ctx, 3, "c")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Len(t, got.Messages, 2)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))

	assert.ErrorIs(t, db.UpdateSessionTitle(ctx, 3, "missing", "x", t0), ErrNotFound)
	require.NoError(t, db.DeleteSession(ctx, 3, "c"))
	assert.ErrorIs(t, db.DeleteSession(ctx, 3, "c"), ErrNotFound)
}
