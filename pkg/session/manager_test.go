package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

func newEditor(id string) ports.Editor {
	return arbor.New(arbor.WithName(id))
}

func TestManager_SerialisesEdits(t *testing.T) {
	manager := session.NewManager(newEditor)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	concurrentWrites := 20

	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			err := manager.Do(ctx, id, func(ctx context.Context, ed ports.Editor) error {
				n := factory.New(domain.ComponentType{Name: "p"}, factory.WithID(fmt.Sprintf("n%d", val)))
				return ed.Add(domain.RootNodeID, n)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ed, ok := manager.Get(id)
	require.True(t, ok)
	assert.Len(t, ed.State().Current.Nodes[domain.RootNodeID].Data.Nodes, concurrentWrites)
	assert.NoError(t, ed.State().Current.Validate())
}

func TestManager_OpenIsAtomic(t *testing.T) {
	var created int
	var mu sync.Mutex
	manager := session.NewManager(func(id string) ports.Editor {
		mu.Lock()
		created++
		mu.Unlock()
		return newEditor(id)
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	editors := make([]ports.Editor, 8)
	for i := range editors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ed, err := manager.Open(ctx, "atomic-init")
			assert.NoError(t, err)
			editors[i] = ed
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	for _, ed := range editors {
		assert.Same(t, editors[0], ed)
	}
}

func TestManager_CloseAndList(t *testing.T) {
	var closed []string
	manager := session.NewManager(newEditor, session.WithOnClose(func(id string) { closed = append(closed, id) }))
	ctx := context.Background()

	_, err := manager.Open(ctx, "b")
	require.NoError(t, err)
	_, err = manager.Open(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, manager.List())

	require.NoError(t, manager.Close(ctx, "a"))
	assert.Equal(t, []string{"b"}, manager.List())
	assert.Equal(t, []string{"a"}, closed)

	err = manager.Close(ctx, "a")
	assert.ErrorIs(t, err, session.ErrDocumentNotFound)

	_, err = manager.Open(ctx, "")
	assert.Error(t, err)
}

type fakeLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	ttl      time.Duration
	failWith error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.locks++
	f.ttl = ttl
	return func(ctx context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(newEditor, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Do(ctx, "doc", func(ctx context.Context, ed ports.Editor) error { return nil }))
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.ttl)

	locker.failWith = errors.New("redis down")
	err := manager.Do(ctx, "doc", func(ctx context.Context, ed ports.Editor) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}

func TestManager_CanceledContext(t *testing.T) {
	manager := session.NewManager(newEditor)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := manager.Do(ctx, "doc", func(ctx context.Context, ed ports.Editor) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
