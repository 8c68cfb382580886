package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *redis.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
}

func TestLocker_LockUnlock(t *testing.T) {
	mr, locker := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "home", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:home"), "lock key should be set")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:home"), "lock key should be removed")
}

func TestLocker_Contention(t *testing.T) {
	_, locker := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "home", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "home", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other documents are independent.
	other, err := locker.Lock(ctx, "about", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, "home", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocker_ExpiredLockIsNotReleasedByFormerOwner(t *testing.T) {
	mr, locker := newLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "home", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock2, err := locker.Lock(ctx, "home", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, unlock(ctx), redis.ErrLockLost)
	assert.True(t, mr.Exists("test:lock:home"), "the new owner keeps the lock")
	require.NoError(t, unlock2(ctx))
}

func TestLocker_SerialisesSessionManagers(t *testing.T) {
	_, locker := newLocker(t)
	shared := arbor.New()

	// Two replicas over the same editor, as if the tree lived in shared storage.
	replica := func() *session.Manager {
		return session.NewManager(func(string) ports.Editor { return shared },
			session.WithLocker(locker))
	}
	managers := []*session.Manager{replica(), replica()}

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := managers[i%2]
			err := m.Do(context.Background(), "home", func(ctx context.Context, ed ports.Editor) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				defer inside.Add(-1)
				time.Sleep(5 * time.Millisecond)
				return ed.Add(domain.RootNodeID, factory.New(domain.CanvasComponent))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	assert.Len(t, shared.State().Current.Root().Data.Nodes, 10)
}
