package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/salespulse/internal/push"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func runStore(t *testing.T, policy Policy) *Store {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStore(policy)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func sampleSnapshot(orders int64) Snapshot {
	return Snapshot{
		ViewState: ViewState{
			Hourly: []HourlyPoint{
				{Hour: "09:00", Revenue: dec("400"), Profit: dec("100")},
				{Hour: "10:00", Revenue: dec("600"), Profit: dec("150")},
			},
			Distribution: []ProfitBand{{Date: "2026-03-01", Min: dec("10"), Max: dec("90"), Avg: dec("45")}},
			TimeOfDay:    []TimeOfDaySlice{{Name: "Morning", Revenue: dec("1000")}},
			KPIs: KPISummary{
				Revenue: dec("1000"),
				Profit:  dec("250"),
				AOV:     dec("1000"),
				Orders:  orders,
			},
		},
		FetchedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

type fakeFetcher struct {
	mu       sync.Mutex
	snap     Snapshot
	kpiErr   error
	hourErr  error
	block    bool
	recent   []RecentSale
	calls    atomic.Int32
}

func newFakeFetcher(snap Snapshot) *fakeFetcher {
	return &fakeFetcher{snap: snap}
}

func (f *fakeFetcher) set(fn func(f *fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFetcher) HourlySales(ctx context.Context) ([]HourlyPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hourErr != nil {
		return nil, f.hourErr
	}
	return f.snap.Hourly, nil
}

func (f *fakeFetcher) ProfitDistribution(ctx context.Context) ([]ProfitBand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Distribution, nil
}

func (f *fakeFetcher) TimeOfDaySales(ctx context.Context) ([]TimeOfDaySlice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.TimeOfDay, nil
}

func (f *fakeFetcher) KPI(ctx context.Context) (KPISummary, error) {
	f.calls.Add(1)
	f.mu.Lock()
	block, snap, err := f.block, f.snap, f.kpiErr
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return KPISummary{}, ctx.Err()
	}
	if err != nil {
		return KPISummary{}, err
	}
	return snap.KPIs, nil
}

type recentFetcher struct {
	*fakeFetcher
}

func (f recentFetcher) RecentSales(ctx context.Context) ([]RecentSale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent, nil
}

var errDropped = errors.New("stream dropped")

type fakeStream struct {
	msgs   chan []byte
	closes atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{msgs: make(chan []byte, 32)}
}

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m, ok := <-s.msgs:
		if !ok {
			return nil, errDropped
		}
		return m, nil
	}
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	return nil
}

// fakeSource hands out queued streams, failing the first `failures` attempts.
// Once the queue is empty Connect blocks until ctx is done.
type fakeSource struct {
	mu       sync.Mutex
	streams  []*fakeStream
	failures int
	connects atomic.Int32
}

func (s *fakeSource) Connect(ctx context.Context) (push.Stream, error) {
	n := int(s.connects.Add(1))
	if n <= s.failures {
		return nil, errors.New("connection refused")
	}
	s.mu.Lock()
	if len(s.streams) > 0 {
		next := s.streams[0]
		s.streams = s.streams[1:]
		s.mu.Unlock()
		return next, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeRecorder struct {
	mu          sync.Mutex
	messages    map[string]int
	links       []string
	refreshes   int
	failures    int
	reconnected int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{messages: map[string]int{}}
}

func (r *fakeRecorder) RefreshCompleted(_ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if err != nil {
		r.failures++
	}
}

func (r *fakeRecorder) PushMessage(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[kind]++
}

func (r *fakeRecorder) LinkChanged(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, state)
}

func (r *fakeRecorder) Reconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnected++
}

func (r *fakeRecorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[kind]
}
