package refreshtoken

import (
	"sync"
	"testing"
	"time"

	"github.com/expensio/expensio/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	db := testutils.SetupTestDB(t, &RefreshToken{})
	return NewService(db, testutils.GetTestConfig(), nil)
}

func TestService_Generate(t *testing.T) {
	service := newTestService(t)

	t.Run("issues opaque token", func(t *testing.T) {
		tokenData, err := service.Generate(123, SessionInfo{
			IPAddress: "192.168.1.1",
			UserAgent: "test-agent",
			DeviceInfo: map[string]any{
				"os":      "linux",
				"browser": "firefox",
			},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, tokenData.Token)
		assert.NotEmpty(t, tokenData.Hash)
		assert.NotZero(t, tokenData.TokenID)
		assert.True(t, tokenData.ExpiresAt.After(time.Now()))

		var stored RefreshToken
		require.NoError(t, service.db.Where("id = ?", tokenData.TokenID).First(&stored).Error)
		assert.Equal(t, uint(123), stored.UserID)
		assert.Equal(t, tokenData.Hash, stored.TokenHash)
		assert.False(t, stored.Revoked)
		assert.NotEmpty(t, stored.DeviceInfo)
		assert.NotEqual(t, tokenData.Token, stored.TokenHash)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		first, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)
		second, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		assert.NotEqual(t, first.Token, second.Token)
	})
}

func TestService_Resolve(t *testing.T) {
	service := newTestService(t)

	t.Run("usable token", func(t *testing.T) {
		tokenData, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		record, err := service.Resolve(tokenData.Token)

		require.NoError(t, err)
		assert.Equal(t, uint(123), record.UserID)
		assert.Equal(t, tokenData.TokenID, record.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := service.Resolve("never-issued")

		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("revoked token", func(t *testing.T) {
		tokenData, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		revoked, err := service.Revoke(tokenData.Token)
		require.NoError(t, err)
		require.True(t, revoked)

		_, err = service.Resolve(tokenData.Token)
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := RefreshToken{
			UserID:    789,
			TokenHash: service.hashToken("expired-token"),
			ExpiresAt: time.Now().Add(-time.Hour),
			CreatedAt: time.Now().Add(-2 * time.Hour),
			LastUsed:  time.Now().Add(-2 * time.Hour),
		}
		require.NoError(t, service.db.Create(&expired).Error)

		_, err := service.Resolve("expired-token")
		assert.ErrorIs(t, err, ErrRefreshTokenExpired)
	})
}

func TestService_Rotate(t *testing.T) {
	service := newTestService(t)

	t.Run("consumes presented token and issues replacement", func(t *testing.T) {
		original, err := service.Generate(123, SessionInfo{DeviceInfo: map[string]any{"os": "linux"}})
		require.NoError(t, err)

		oldRecord, replacement, err := service.Rotate(original.Token)

		require.NoError(t, err)
		assert.Equal(t, original.TokenID, oldRecord.ID)
		assert.NotEqual(t, original.Token, replacement.Token)

		// The presented token must be unusable from this point on.
		_, err = service.Resolve(original.Token)
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

		// Device metadata carries over to the replacement.
		var stored RefreshToken
		require.NoError(t, service.db.Where("id = ?", replacement.TokenID).First(&stored).Error)
		assert.Equal(t, uint(123), stored.UserID)
		assert.NotEmpty(t, stored.DeviceInfo)
	})

	t.Run("replay of a consumed token fails", func(t *testing.T) {
		original, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		_, _, err = service.Rotate(original.Token)
		require.NoError(t, err)

		_, _, err = service.Rotate(original.Token)
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	})

	t.Run("replacement rotates exactly once", func(t *testing.T) {
		original, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		_, replacement, err := service.Rotate(original.Token)
		require.NoError(t, err)

		_, _, err = service.Rotate(replacement.Token)
		require.NoError(t, err)

		_, _, err = service.Rotate(replacement.Token)
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	})

	t.Run("expired token does not rotate", func(t *testing.T) {
		expired := RefreshToken{
			UserID:    456,
			TokenHash: service.hashToken("expired-rotation"),
			ExpiresAt: time.Now().Add(-time.Minute),
			CreatedAt: time.Now().Add(-time.Hour),
			LastUsed:  time.Now().Add(-time.Hour),
		}
		require.NoError(t, service.db.Create(&expired).Error)

		_, _, err := service.Rotate("expired-rotation")
		assert.ErrorIs(t, err, ErrRefreshTokenExpired)
	})
}

func TestService_RotateConcurrent(t *testing.T) {
	db := testutils.SetupTestDB(t, &RefreshToken{})

	// Pin the pool to one connection so every goroutine sees the same
	// in-memory database; the rotations still interleave between the
	// lookup and the conditional revoke.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	service := NewService(db, testutils.GetTestConfig(), nil)

	original, err := service.Generate(123, SessionInfo{})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	rotateErrs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, rotateErrs[i] = service.Rotate(original.Token)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range rotateErrs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent rotation may win")

	// The contested token is consumed no matter which attempt won.
	_, err = service.Resolve(original.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestService_Revoke(t *testing.T) {
	service := newTestService(t)

	t.Run("revokes a live token once", func(t *testing.T) {
		tokenData, err := service.Generate(123, SessionInfo{})
		require.NoError(t, err)

		revoked, err := service.Revoke(tokenData.Token)
		require.NoError(t, err)
		assert.True(t, revoked)

		// Idempotent: the second call is not an error, just a no-op.
		revoked, err = service.Revoke(tokenData.Token)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		revoked, err := service.Revoke("never-issued")

		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestService_RevokeAllForUser(t *testing.T) {
	service := newTestService(t)

	first, err := service.Generate(42, SessionInfo{})
	require.NoError(t, err)
	second, err := service.Generate(42, SessionInfo{})
	require.NoError(t, err)
	other, err := service.Generate(99, SessionInfo{})
	require.NoError(t, err)

	count, err := service.RevokeAllForUser(42)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = service.Resolve(first.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	_, err = service.Resolve(second.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	// Other users' tokens are untouched.
	_, err = service.Resolve(other.Token)
	assert.NoError(t, err)
}

func TestService_CleanupExpired(t *testing.T) {
	service := newTestService(t)

	live, err := service.Generate(1, SessionInfo{})
	require.NoError(t, err)

	expired := RefreshToken{
		UserID:    2,
		TokenHash: service.hashToken("long-gone"),
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		LastUsed:  time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, service.db.Create(&expired).Error)

	require.NoError(t, service.CleanupExpired())

	var count int64
	require.NoError(t, service.db.Model(&RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = service.Resolve(live.Token)
	assert.NoError(t, err)
}

func TestService_CleanupWorker(t *testing.T) {
	db := testutils.SetupTestDB(t, &RefreshToken{})
	cfg := testutils.GetTestConfig()
	cfg.RefreshToken.CleanupInterval = time.Millisecond
	service := NewService(db, cfg, nil)

	expired := RefreshToken{
		UserID:    1,
		TokenHash: service.hashToken("stale"),
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		LastUsed:  time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, service.db.Create(&expired).Error)

	service.StartCleanupWorker()
	service.StartCleanupWorker() // second start is a no-op
	defer service.StopCleanupWorker()

	assert.Eventually(t, func() bool {
		var count int64
		return service.db.Model(&RefreshToken{}).Count(&count).Error == nil && count == 0
	}, time.Second, 5*time.Millisecond)

	service.StopCleanupWorker()
	service.StopCleanupWorker() // idempotent after the worker is gone
}
