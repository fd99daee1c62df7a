package usecases

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunReturnsTaskError(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	want := errors.New("boom")
	err := d.Run(context.Background(), 1, func(context.Context) error { return want })

	assert.ErrorIs(t, err, want)
}

func TestDispatcher_SerializesPerGuild(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	var (
		running atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Run(context.Background(), 1, func(context.Context) error {
				if running.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "tasks for one guild must not interleave")
}

func TestDispatcher_GuildsRunInParallel(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	release := make(chan struct{})
	blocked := make(chan struct{})
	go func() {
		_ = d.Run(context.Background(), 1, func(context.Context) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := d.Run(ctx, 2, func(context.Context) error { return nil })

	require.NoError(t, err, "guild 2 must not wait for guild 1")
	close(release)
}

func TestDispatcher_PostPreservesOrder(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 10 {
		require.NoError(t, d.Post(1, func(context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	require.NoError(t, d.Run(context.Background(), 1, func(context.Context) error { return nil }))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	err := d.Run(context.Background(), 1, func(context.Context) error { panic("oops") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")

	err = d.Run(context.Background(), 1, func(context.Context) error { return nil })
	assert.NoError(t, err, "worker must survive a panicking task")
}

func TestDispatcher_SkipsCancelledTasks(t *testing.T) {
	d := NewDispatcher(time.Minute)
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = d.Run(context.Background(), 1, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx, 1, func(context.Context) error {
			ran.Store(true)
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.NoError(t, d.Run(context.Background(), 1, func(context.Context) error { return nil }))
	assert.False(t, ran.Load())
}

func TestDispatcher_CloseDrainsThenRejects(t *testing.T) {
	d := NewDispatcher(time.Minute)

	var count atomic.Int32
	for _, guild := range []snowflake.ID{1, 2, 3} {
		for range 5 {
			require.NoError(t, d.Post(guild, func(context.Context) error {
				time.Sleep(time.Millisecond)
				count.Add(1)
				return nil
			}))
		}
	}

	d.Close()

	assert.Equal(t, int32(15), count.Load())
	assert.Zero(t, d.Workers())
	assert.ErrorIs(t, d.Post(1, func(context.Context) error { return nil }), ErrDispatcherClosed)
	assert.ErrorIs(t, d.Run(context.Background(), 1, func(context.Context) error { return nil }), ErrNotInitialized)

	d.Close()
}

func TestDispatcher_IdleWorkersExit(t *testing.T) {
	d := NewDispatcher(20 * time.Millisecond)
	defer d.Close()

	require.NoError(t, d.Run(context.Background(), 1, func(context.Context) error { return nil }))

	assert.Eventually(t, func() bool { return d.Workers() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Run(context.Background(), 1, func(context.Context) error { return nil }))
}
