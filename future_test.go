package wizard

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureStoreOnce(t *testing.T) {
	f := NewFuture[int]()
	_, ok := f.Load()
	assert.False(t, ok)

	f.Store(1)
	f.Store(2)
	f.StoreError(errors.New("late"))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestGoResolvesWithResult(t *testing.T) {
	f := Go(context.Background(), nil, "answer", func(context.Context) (int, error) {
		return 42, nil
	})
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	f = Go(context.Background(), nil, "fail", func(context.Context) (int, error) {
		return 0, boom
	})
	_, err = f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGoRecoversPanic(t *testing.T) {
	f := Go(context.Background(), NewFmtLogger(io.Discard), "explode", func(context.Context) (string, error) {
		panic("kaboom")
	})
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future never resolved")
	}
	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in explode")
}

func TestAwaitHonoursContext(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
