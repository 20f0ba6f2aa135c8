package dashboardhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
	"github.com/odyssey-erp/salespulse/internal/dashboard/ui"
	"github.com/odyssey-erp/salespulse/internal/view"
)

type fakeStore struct {
	mu    sync.Mutex
	state dashboard.State
	subs  []chan uint64
}

func (f *fakeStore) State() dashboard.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeStore) Subscribe() (<-chan uint64, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan uint64, 1)
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeStore) set(s dashboard.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	for _, ch := range f.subs {
		select {
		case ch <- s.Version:
		default:
		}
	}
}

func loadedState() dashboard.State {
	return dashboard.State{
		Version: 4,
		View: dashboard.ViewState{
			Hourly: []dashboard.HourlyPoint{
				{Hour: "09:00", Revenue: decimal.NewFromInt(400), Profit: decimal.NewFromInt(100)},
				{Hour: "10:00", Revenue: decimal.NewFromInt(1100), Profit: decimal.NewFromInt(275)},
			},
			KPIs: dashboard.KPISummary{
				Revenue:       decimal.NewFromInt(1500),
				Profit:        decimal.NewFromInt(375),
				AOV:           decimal.NewFromInt(500),
				Orders:        3,
				LowStockCount: 2,
			},
		},
		Feed: []dashboard.FeedEntry{
			{ID: uuid.New(), Message: "Sold 2x Soap", ReceivedAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)},
		},
		Link:        dashboard.LinkOpen,
		LastRefresh: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestHandler(t *testing.T, store *fakeStore) (*Handler, http.Handler) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	builder := ui.NewBuilder(nil, "en", "₹").WithLocation(time.UTC)
	h := NewHandler(nil, store, builder, engine)
	h.WithNow(func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) })

	r := chi.NewRouter()
	h.MountStream(r)
	h.MountRoutes(r)
	t.Cleanup(h.Close)
	return h, r
}

func TestDashboardPageRendersState(t *testing.T) {
	_, router := newTestHandler(t, &fakeStore{state: loadedState()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "FMCG Intelligence")
	assert.Contains(t, body, "1,500.00")
	assert.Contains(t, body, "Sold 2x Soap")
	assert.Contains(t, body, "Live Updates")
	assert.Contains(t, body, "red-text")
	assert.Contains(t, body, "<svg")
	assert.NotContains(t, body, ui.EmptyFeedMessage)
}

func TestDashboardPageEmptyState(t *testing.T) {
	_, router := newTestHandler(t, &fakeStore{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, ui.EmptyFeedMessage)
	assert.Contains(t, body, "Connecting")
}

func TestStateEndpointReturnsViewModel(t *testing.T) {
	_, router := newTestHandler(t, &fakeStore{state: loadedState()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/state", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var vm ui.ViewModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vm))
	assert.Equal(t, uint64(4), vm.Version)
	assert.Equal(t, "open", vm.Status.Link)
	require.Len(t, vm.Feed, 1)
	assert.Equal(t, "Sold 2x Soap", vm.Feed[0].Message)
	assert.Equal(t, "10:00:00", vm.LastRefresh)
}

func TestCSVExport(t *testing.T) {
	_, router := newTestHandler(t, &fakeStore{state: loadedState()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "sales-dashboard-20260301-103000.csv")
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "Metric,Value\n"))
	assert.Contains(t, body, "Revenue,1500.00")
	assert.Contains(t, body, "10:00,1100.00,275.00")
}

func TestCSVExportBeforeFirstSnapshot(t *testing.T) {
	_, router := newTestHandler(t, &fakeStore{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "no snapshot loaded yet")
}

func TestLiveSocketPushesUpdates(t *testing.T) {
	store := &fakeStore{state: loadedState()}
	h, router := newTestHandler(t, store)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/dashboard/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var vm ui.ViewModel
	require.NoError(t, conn.ReadJSON(&vm))
	assert.Equal(t, uint64(4), vm.Version)

	next := loadedState()
	next.Version = 5
	next.Feed = append([]dashboard.FeedEntry{{ID: uuid.New(), Message: "Sold 1x Tea", ReceivedAt: time.Now()}}, next.Feed...)
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.subs) == 1
	}, time.Second, 10*time.Millisecond)
	store.set(next)

	require.NoError(t, conn.ReadJSON(&vm))
	assert.Equal(t, uint64(5), vm.Version)
	require.Len(t, vm.Feed, 2)
	assert.Equal(t, "Sold 1x Tea", vm.Feed[0].Message)

	h.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestLiveSocketRefusedAfterClose(t *testing.T) {
	store := &fakeStore{state: loadedState()}
	h, router := newTestHandler(t, store)
	srv := httptest.NewServer(router)
	defer srv.Close()

	h.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/dashboard/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLiveSocketsOpenedDuringCloseAreShutDown(t *testing.T) {
	store := &fakeStore{state: loadedState()}
	h, router := newTestHandler(t, store)
	srv := httptest.NewServer(router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/dashboard/live"

	const dialers = 8
	conns := make(chan *websocket.Conn, dialers)
	var wg sync.WaitGroup
	for i := 0; i < dialers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				if resp != nil {
					assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
					_ = resp.Body.Close()
				}
				return
			}
			conns <- conn
		}()
	}
	time.Sleep(5 * time.Millisecond)
	h.Close()
	wg.Wait()
	close(conns)

	// Every socket that was accepted must already carry the going-away frame.
	for conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var err error
		for err == nil {
			_, _, err = conn.ReadMessage()
		}
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
		_ = conn.Close()
	}
}
