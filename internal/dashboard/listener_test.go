package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = ListenerConfig{
	BackoffInitial:    time.Millisecond,
	BackoffMax:        5 * time.Millisecond,
	ResyncOnReconnect: true,
}

func TestListenerHandleDispatchesSales(t *testing.T) {
	store := runStore(t, DefaultPolicy())
	rec := newFakeRecorder()
	l := NewListener(&fakeSource{}, store, fastBackoff, nil, nil, rec)

	require.NoError(t, l.Handle(context.Background(), []byte(`{"type":"SALE","message":"Sold 2x Soap","total_price":40}`)))

	state := store.State()
	require.Len(t, state.Feed, 1)
	assert.Equal(t, "Sold 2x Soap", state.Feed[0].Message)
	assert.Equal(t, int64(1), state.View.KPIs.Orders)
	assert.True(t, state.View.KPIs.Profit.Equal(dec("10")))
	assert.Equal(t, 1, rec.count("sale"))
}

func TestListenerToleratesUnknownAndMalformed(t *testing.T) {
	store := runStore(t, DefaultPolicy())
	rec := newFakeRecorder()
	l := NewListener(&fakeSource{}, store, fastBackoff, nil, nil, rec)

	for _, raw := range []string{
		`{"type":"STOCK_ALERT","message":"Rice low"}`,
		`not json`,
		`{"type":"SALE"}`,
		`{"type":"SALE","message":"bad","total_price":-1}`,
	} {
		assert.NoError(t, l.Handle(context.Background(), []byte(raw)))
	}

	assert.Zero(t, store.State().Version)
	assert.Equal(t, 1, rec.count("ignored"))
	assert.Equal(t, 3, rec.count("malformed"))

	require.NoError(t, l.Handle(context.Background(), []byte(`{"type":"SALE","message":"still alive"}`)))
	assert.Len(t, store.State().Feed, 1)
}

func TestListenerReconnectsAndResyncs(t *testing.T) {
	store := runStore(t, DefaultPolicy())
	first, second := newFakeStream(), newFakeStream()
	source := &fakeSource{streams: []*fakeStream{first, second}, failures: 1}
	var resyncs atomic.Int32
	rec := newFakeRecorder()
	l := NewListener(source, store, fastBackoff, func() { resyncs.Add(1) }, nil, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return store.State().Link == LinkOpen }, time.Second, time.Millisecond)
	assert.Zero(t, resyncs.Load(), "first connection is not a reconnect")

	first.msgs <- []byte(`{"type":"SALE","message":"before drop","total_price":5}`)
	require.Eventually(t, func() bool { return len(store.State().Feed) == 1 }, time.Second, time.Millisecond)

	close(first.msgs)
	require.Eventually(t, func() bool { return store.State().Reconnects == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, LinkOpen, store.State().Link)
	assert.Equal(t, int32(1), resyncs.Load())
	assert.Equal(t, int32(1), first.closes.Load())

	second.msgs <- []byte(`{"type":"SALE","message":"after drop"}`)
	require.Eventually(t, func() bool { return len(store.State().Feed) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "after drop", store.State().Feed[0].Message)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Equal(t, int32(1), first.closes.Load())
	assert.Equal(t, int32(1), second.closes.Load())
	assert.Equal(t, LinkClosed, store.State().Link)
	assert.Equal(t, int32(3), source.connects.Load())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.reconnected)
	assert.Equal(t, "connecting", rec.links[0])
}

func TestListenerWithoutResync(t *testing.T) {
	store := runStore(t, DefaultPolicy())
	first, second := newFakeStream(), newFakeStream()
	source := &fakeSource{streams: []*fakeStream{first, second}}
	var resyncs atomic.Int32
	cfg := fastBackoff
	cfg.ResyncOnReconnect = false
	l := NewListener(source, store, cfg, func() { resyncs.Add(1) }, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return store.State().Link == LinkOpen }, time.Second, time.Millisecond)
	close(first.msgs)
	require.Eventually(t, func() bool { return store.State().Reconnects == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, resyncs.Load())

	cancel()
	<-done
}

func TestListenerStopsWhileWaitingToReconnect(t *testing.T) {
	store := runStore(t, DefaultPolicy())
	source := &fakeSource{failures: 1 << 30}
	cfg := ListenerConfig{BackoffInitial: time.Hour, BackoffMax: time.Hour}
	l := NewListener(source, store, cfg, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return store.State().Link == LinkClosed }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener stuck in backoff")
	}
	assert.Equal(t, int32(1), source.connects.Load())
}

func TestListenerBackoffBounds(t *testing.T) {
	l := NewListener(&fakeSource{}, NewStore(DefaultPolicy()), ListenerConfig{BackoffInitial: 100 * time.Millisecond, BackoffMax: 400 * time.Millisecond}, nil, nil, nil)
	bo := l.newBackOff()

	for i := 0; i < 20; i++ {
		wait := bo.NextBackOff()
		assert.Greater(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, 600*time.Millisecond, "max plus jitter")
	}

	defaults := NewListener(&fakeSource{}, NewStore(DefaultPolicy()), ListenerConfig{}, nil, nil, nil)
	assert.Equal(t, DefaultBackoffInitial, defaults.cfg.BackoffInitial)
	assert.Equal(t, DefaultBackoffMax, defaults.cfg.BackoffMax)
}
