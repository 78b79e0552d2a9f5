//go:build integration

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLinkStorage runs the behaviour every LinkStorage backend must share.
func testLinkStorage(t *testing.T, store LinkStorage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	link := &Link{Token: "abcdefg", LongURL: "http://example.com/a", OwnerID: "tom123", CreatedAt: now}
	require.NoError(t, store.Insert(ctx, link))

	t.Run("duplicate token", func(t *testing.T) {
		err := store.Insert(ctx, &Link{Token: "abcdefg", LongURL: "http://example.com/b", OwnerID: "jerry456", CreatedAt: now})
		assert.ErrorIs(t, err, ErrDuplicateToken)
	})

	t.Run("duplicate url for owner", func(t *testing.T) {
		err := store.Insert(ctx, &Link{Token: "hijklmn", LongURL: "http://example.com/a", OwnerID: "tom123", CreatedAt: now})
		assert.ErrorIs(t, err, ErrDuplicateLink)
	})

	t.Run("same url for another owner", func(t *testing.T) {
		err := store.Insert(ctx, &Link{Token: "opqrstu", LongURL: "http://example.com/a", OwnerID: "jerry456", CreatedAt: now})
		assert.NoError(t, err)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := store.GetByToken(ctx, "abcdefg")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "http://example.com/a", got.LongURL)
		assert.Equal(t, "tom123", got.OwnerID)
		assert.WithinDuration(t, now, got.CreatedAt, time.Millisecond)

		got, err = store.GetByToken(ctx, "zzzzzzz")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = store.GetByTokenAndOwner(ctx, "abcdefg", "tom123")
		require.NoError(t, err)
		assert.NotNil(t, got)

		got, err = store.GetByTokenAndOwner(ctx, "abcdefg", "jerry456")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.ExistsByURLAndOwner(ctx, "http://example.com/a", "tom123")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ExistsByURLAndOwner(ctx, "http://example.com/z", "tom123")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.ExistsByTokenAndOwner(ctx, "abcdefg", "tom123")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ExistsByTokenAndOwner(ctx, "abcdefg", "jerry456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.IncrementClickCount(ctx, "abcdefg"))
			}()
		}
		wg.Wait()

		count, err := store.GetClickCount(ctx, "abcdefg")
		require.NoError(t, err)
		require.NotNil(t, count)
		assert.Equal(t, int64(50), *count)

		count, err = store.GetClickCount(ctx, "zzzzzzz")
		require.NoError(t, err)
		assert.Nil(t, count)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "abcdefg"))

		got, err := store.GetByToken(ctx, "abcdefg")
		require.NoError(t, err)
		assert.Nil(t, got)

		// the token and the (url, owner) pair are free again
		assert.NoError(t, store.Insert(ctx, &Link{Token: "abcdefg", LongURL: "http://example.com/a", OwnerID: "tom123", CreatedAt: now}))
	})
}

func testUserStorage(t *testing.T, store UserStorage) {
	ctx := context.Background()

	user := &User{
		UserID:       "tom123",
		Name:         "Tom",
		Email:        "tom@example.com",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Insert(ctx, user))

	err := store.Insert(ctx, user)
	assert.ErrorIs(t, err, ErrDuplicateUser)

	got, err := store.GetByID(ctx, "tom123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.Name, got.Name)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)

	got, err = store.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, tt := range []struct {
		userID string
		exists bool
	}{
		{"tom123", true},
		{"nobody", false},
	} {
		t.Run(fmt.Sprintf("exists %s", tt.userID), func(t *testing.T) {
			ok, err := store.Exists(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.exists, ok)
		})
	}
}
