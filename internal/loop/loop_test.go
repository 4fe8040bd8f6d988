package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(zerolog.Nop())
	go l.Run(context.Background())
	t.Cleanup(func() {
		l.Stop()
		<-l.Done()
	})
	return l
}

func TestPostRunsInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	l.Post(wg.Done)
	wg.Wait()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPostFromLoopDoesNotDeadlock(t *testing.T) {
	l := startLoop(t)

	finished := make(chan struct{})
	var depth func(n int)
	depth = func(n int) {
		if n == 0 {
			close(finished)
			return
		}
		l.Post(func() { depth(n - 1) })
	}
	l.Post(func() { depth(1000) })

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("nested posts did not complete")
	}
}

func TestCallWaitsForResult(t *testing.T) {
	l := startLoop(t)

	value := 0
	require.True(t, l.Call(func() { value = 42 }))
	assert.Equal(t, 42, value)
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })
	ok := false
	require.True(t, l.Call(func() { ok = true }))
	assert.True(t, ok)
}

func TestPostAfterStop(t *testing.T) {
	l := New(zerolog.Nop())
	go l.Run(context.Background())
	l.Stop()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.False(t, l.Call(func() {}))
}

func TestAfterPostsOntoLoop(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{})
	l.After(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback never ran")
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	l := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
