package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheKey(t *testing.T) {
	testCases := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid key", key: "models/astronaut.glb"},
		{name: "empty key", key: "", wantErr: ErrInvalidCacheKey},
		{name: "too long", key: strings.Repeat("k", 251), wantErr: ErrInvalidCacheKey},
		{name: "max length", key: strings.Repeat("k", 250)},
		{name: "newline", key: "a\nb", wantErr: ErrInvalidCacheKey},
		{name: "carriage return", key: "a\rb", wantErr: ErrInvalidCacheKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := NewCacheKey(tc.key)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, key.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.key, key.String())
		})
	}
}

func TestNewExpiration(t *testing.T) {
	e, err := NewExpiration(0)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), e.Duration())

	e, err = NewExpiration(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, e.Duration())

	_, err = NewExpiration(-time.Second)
	assert.ErrorIs(t, err, ErrInvalidExpiration)

	// -1ns 是 go-redis 的 KeepTTL 标记
	_, err = NewExpiration(-time.Nanosecond)
	assert.ErrorIs(t, err, ErrInvalidExpiration)
}

func TestRetentionStats(t *testing.T) {
	s := NewRetentionStats()
	assert.Equal(t, float64(0), s.HitRate())

	updated := s.IncrementHits().IncrementHits().IncrementHits().IncrementMisses().
		IncrementRetains().IncrementReleases().IncrementEvictions().
		IncrementLoads().IncrementLoadFailures()

	// 原值不变
	assert.Equal(t, int64(0), s.Hits())

	assert.Equal(t, int64(3), updated.Hits())
	assert.Equal(t, int64(1), updated.Misses())
	assert.Equal(t, int64(1), updated.Retains())
	assert.Equal(t, int64(1), updated.Releases())
	assert.Equal(t, int64(1), updated.Evictions())
	assert.Equal(t, int64(1), updated.Loads())
	assert.Equal(t, int64(1), updated.LoadFailures())
	assert.Equal(t, 0.75, updated.HitRate())
}

func TestLease(t *testing.T) {
	key, err := NewCacheKey("scene")
	require.NoError(t, err)

	lease := NewLease(key)
	other := NewLease(key)
	assert.NotEqual(t, lease.ID(), other.ID())
	assert.Equal(t, key, lease.Key())
	assert.False(t, lease.IsReleased())
	assert.True(t, lease.ReleasedAt().IsZero())

	now := lease.AcquiredAt().Add(time.Second)
	assert.Equal(t, time.Second, lease.HeldFor(now))

	require.NoError(t, lease.MarkReleased(now))
	assert.True(t, lease.IsReleased())
	assert.Equal(t, now, lease.ReleasedAt())
	assert.ErrorIs(t, lease.MarkReleased(now.Add(time.Second)), ErrLeaseReleased)
	assert.Equal(t, time.Second, lease.HeldFor(now.Add(time.Hour)))
}
