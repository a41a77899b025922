package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinwongcn/retain/internal/domain/cache"
	infraCache "github.com/justinwongcn/retain/internal/infrastructure/cache"
	"github.com/justinwongcn/retain/internal/logger"
)

func newTestService(threshold int) (*ApplicationService, *infraCache.BuildInMapCache, *bytes.Buffer) {
	repo := infraCache.NewBuildInMapCache(0)
	buf := &bytes.Buffer{}
	l := logger.New(logger.WithOutput(buf))
	retained := infraCache.NewRetainedCache(repo, threshold, infraCache.RetainedCacheWithLogger(l))
	return NewApplicationService(retained, l), repo, buf
}

func staticLoader(val any) cache.Loader {
	return func(ctx context.Context, key string) (any, error) {
		return val, nil
	}
}

func TestApplicationService_AcquireItem(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     AcquireCommand
		wantErr error
		wantVal any
	}{
		{
			name:    "load on miss",
			cmd:     AcquireCommand{Key: "model", Loader: staticLoader("gltf")},
			wantVal: "gltf",
		},
		{
			name:    "invalid key",
			cmd:     AcquireCommand{Key: "", Loader: staticLoader("gltf")},
			wantErr: cache.ErrInvalidCacheKey,
		},
		{
			name:    "miss without loader",
			cmd:     AcquireCommand{Key: "model"},
			wantErr: cache.ErrKeyNotFound,
		},
		{
			name: "loader error",
			cmd: AcquireCommand{Key: "model", Loader: func(ctx context.Context, key string) (any, error) {
				return nil, errors.New("404")
			}},
			wantErr: errors.New("404"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(2)
			result, err := s.AcquireItem(ctx, tt.cmd)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVal, result.Value)
			assert.Equal(t, tt.cmd.Key, result.Key)
			assert.Equal(t, result.Lease.ID(), result.LeaseID)
			assert.False(t, result.AcquiredAt.IsZero())
		})
	}
}

func TestApplicationService_ReleaseItem(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService(0)

	result, err := s.AcquireItem(ctx, AcquireCommand{Key: "model", Loader: staticLoader("gltf")})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, s.ReleaseItem(ctx, ReleaseCommand{Lease: result.Lease}))
	assert.Equal(t, 0, repo.Len())

	err = s.ReleaseItem(ctx, ReleaseCommand{Lease: result.Lease})
	assert.ErrorIs(t, err, cache.ErrLeaseReleased)

	err = s.ReleaseItem(ctx, ReleaseCommand{})
	assert.ErrorIs(t, err, cache.ErrLeaseNotFound)
}

func TestApplicationService_RetainKey(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(2)

	require.NoError(t, s.RetainKey(ctx, RetainCommand{Key: "a"}))
	require.NoError(t, s.RetainKey(ctx, RetainCommand{Key: "a"}))

	count, err := s.GetRetainerCount(ctx, RetainerQuery{Key: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)

	require.NoError(t, s.ReleaseKey(ctx, RetainCommand{Key: "a"}))
	count, err = s.GetRetainerCount(ctx, RetainerQuery{Key: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, count.Count)

	assert.ErrorIs(t, s.RetainKey(ctx, RetainCommand{Key: ""}), cache.ErrInvalidCacheKey)
	assert.ErrorIs(t, s.ReleaseKey(ctx, RetainCommand{Key: ""}), cache.ErrInvalidCacheKey)
	_, err = s.GetRetainerCount(ctx, RetainerQuery{Key: ""})
	assert.ErrorIs(t, err, cache.ErrInvalidCacheKey)
}

func TestApplicationService_ConfigureThreshold(t *testing.T) {
	ctx := context.Background()
	s, repo, buf := newTestService(3)

	for _, k := range []string{"a", "b", "c"} {
		result, err := s.AcquireItem(ctx, AcquireCommand{Key: k, Loader: staticLoader(k)})
		require.NoError(t, err)
		require.NoError(t, s.ReleaseItem(ctx, ReleaseCommand{Lease: result.Lease}))
	}
	assert.Equal(t, 3, repo.Len())

	assert.Equal(t, 1, s.ConfigureThreshold(ctx, ThresholdCommand{Threshold: 1}))
	assert.Equal(t, 1, repo.Len())
	assert.Contains(t, buf.String(), "淘汰阈值已更新")

	assert.Equal(t, 0, s.ConfigureThreshold(ctx, ThresholdCommand{Threshold: -1}))
	assert.Equal(t, 0, repo.Len())
}

func TestApplicationService_Stats(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService(2)

	first, err := s.AcquireItem(ctx, AcquireCommand{Key: "a", Loader: staticLoader("v")})
	require.NoError(t, err)
	_, err = s.AcquireItem(ctx, AcquireCommand{Key: "a", Loader: staticLoader("v")})
	require.NoError(t, err)
	require.NoError(t, s.ReleaseItem(ctx, ReleaseCommand{Lease: first.Lease}))

	stats := s.GetRetentionStats(ctx)
	assert.Equal(t, int64(2), stats.Retains)
	assert.Equal(t, int64(1), stats.Releases)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, int64(1), stats.Loads)
	assert.Equal(t, 1, stats.TrackedKeys)
	assert.Equal(t, 1, stats.ActiveLeases)
	assert.Equal(t, 2, stats.EvictionThreshold)

	s.ResetRetention(ctx)
	stats = s.GetRetentionStats(ctx)
	assert.Equal(t, 0, stats.TrackedKeys)
	assert.Equal(t, 0, stats.ActiveLeases)
	assert.Equal(t, 1, repo.Len())
}
