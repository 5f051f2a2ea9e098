package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/lock"
)

func newRedisLocker(t *testing.T, maxWait time.Duration) (lock.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Redis{R: client, RetryBackoff: 5 * time.Millisecond, MaxWait: maxWait}, mr
}

// serialises checks that a second holder only runs once the first released.
func serialises(t *testing.T, locker lock.Locker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, "lock:checkout:u1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		errs <- locker.WithLock(ctx, "lock:checkout:u1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Equal(t, []string{"first"}, order)
	mu.Unlock()
	close(releaseFirst)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestRedisWithLockSerialises(t *testing.T) {
	locker, _ := newRedisLocker(t, 0)
	serialises(t, locker)
}

func TestLocalWithLockSerialises(t *testing.T) {
	serialises(t, &lock.Local{RetryBackoff: 2 * time.Millisecond})
}

func TestRedisWithLockReleasesOnError(t *testing.T) {
	locker, mr := newRedisLocker(t, 0)
	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("k"))
}

func TestRedisWithLockGivesUpAfterMaxWait(t *testing.T) {
	locker, mr := newRedisLocker(t, 20*time.Millisecond)
	require.NoError(t, mr.Set("k", "someone-else"))

	called := false
	err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.False(t, called)
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestLocalWithLockHonoursContext(t *testing.T) {
	locker := &lock.Local{}
	ctx, cancel := context.WithCancel(context.Background())
	inner := make(chan error, 1)
	err := locker.WithLock(context.Background(), "k", 0, func(context.Context) error {
		go func() { inner <- locker.WithLock(ctx, "k", 0, func(context.Context) error { return nil }) }()
		time.Sleep(15 * time.Millisecond)
		cancel()
		return <-inner
	})
	require.ErrorIs(t, err, context.Canceled)
}
