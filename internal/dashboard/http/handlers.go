// Package dashboardhttp serves the live dashboard page, its JSON state, the
// live update socket and the CSV export.
package dashboardhttp

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
	"github.com/odyssey-erp/salespulse/internal/dashboard/export"
	"github.com/odyssey-erp/salespulse/internal/dashboard/ui"
	"github.com/odyssey-erp/salespulse/internal/platform/httpx"
	"github.com/odyssey-erp/salespulse/internal/view"
)

const (
	pageTitle    = "FMCG Intelligence"
	liveRoute    = "/dashboard/live"
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// StateSource exposes the dashboard store to the handler.
type StateSource interface {
	State() dashboard.State
	Subscribe() (<-chan uint64, func())
}

// Handler coordinates HTTP requests for the dashboard.
type Handler struct {
	logger    *slog.Logger
	store     StateSource
	builder   *ui.Builder
	templates *view.Engine
	upgrader  websocket.Upgrader
	csvPool   sync.Pool
	now       func() time.Time

	mu      sync.Mutex
	closing chan struct{}
	shut    bool
	streams sync.WaitGroup
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, store StateSource, builder *ui.Builder, templates *view.Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		store:     store,
		builder:   builder,
		templates: templates,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		},
		now:     time.Now,
		closing: make(chan struct{}),
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the clock used for export filenames.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// Close ends every open live socket with a going-away frame and waits for
// their goroutines to exit. Hijacked connections are not tracked by
// http.Server.Shutdown, so the caller must close the handler explicitly.
func (h *Handler) Close() {
	h.mu.Lock()
	if !h.shut {
		h.shut = true
		close(h.closing)
	}
	h.mu.Unlock()
	h.streams.Wait()
}

// track registers a live socket unless Close has already begun.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shut {
		return false
	}
	h.streams.Add(1)
	return true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	vm, err := h.builder.Build(h.store.State())
	if err != nil {
		h.handleServerError(w, "build view", err)
		return
	}
	data := view.TemplateData{
		Title:       pageTitle,
		CurrentPath: r.URL.Path,
		LiveURL:     liveRoute,
		Data:        vm,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logError("render dashboard", err)
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	vm, err := h.builder.Build(h.store.State())
	if err != nil {
		h.handleServerError(w, "build view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	if state.LastRefresh.IsZero() {
		httpx.RespondError(w, fmt.Errorf("no snapshot loaded yet: %w", httpx.ErrUnavailable))
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteStateCSV(buf, state); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}

	filename := fmt.Sprintf("sales-dashboard-%s.csv", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error("dashboard handler error", slog.String("op", op), slog.Any("error", err))
}
