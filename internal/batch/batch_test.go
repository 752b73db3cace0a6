package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/batch"
)

func TestRun_KeepsOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	got, err := batch.Run(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(8-n) * time.Millisecond)
		return n * n, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49}, got)
}

func TestRun_CapsConcurrencyAtBatchSize(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 25)

	_, err := batch.Run(context.Background(), items, 10, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(10))
}

func TestRun_StopsBeforeNextBatchOnError(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	boom := errors.New("boom")

	_, err := batch.Run(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	require.ErrorIs(t, err, boom)
	assert.ElementsMatch(t, []int{1, 2}, seen)
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	got, err := batch.Run(ctx, []int{1, 2, 3, 4}, 2, func(_ context.Context, n int) (int, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return n, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2}, got, "the started batch completes")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRun_Empty(t *testing.T) {
	got, err := batch.Run(context.Background(), []string{}, 10, func(_ context.Context, s string) (string, error) {
		return s, nil
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}
