package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"EGXTicker/internal/app"
	"EGXTicker/internal/market"
	"EGXTicker/internal/model"
	"EGXTicker/internal/recorder"
	"EGXTicker/internal/scheduler"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Service is the control surface the handlers drive.
type Service interface {
	Latest() (model.Result, bool)
	Refresh(ctx context.Context) model.Result
	Start() error
	Stop()
	SetInterval(d time.Duration) error
	UpdateMarketSettings(s market.Settings) error
	MarketStatus() app.MarketStatus
	History(ctx context.Context, n int) ([]recorder.Entry, error)
}

// Handlers holds the API handlers.
type Handlers struct {
	svc     Service
	refresh *rate.Limiter
}

// NewHandlers creates handlers over svc. Manual refreshes are limited to one
// per refreshEvery; zero disables the limit.
func NewHandlers(svc Service, refreshEvery time.Duration) *Handlers {
	limit := rate.Inf
	if refreshEvery > 0 {
		limit = rate.Every(refreshEvery)
	}
	return &Handlers{svc: svc, refresh: rate.NewLimiter(limit, 1)}
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStocks returns the latest snapshot as a bare array of records.
// An optional q parameter filters by short name.
func (h *Handlers) GetStocks(c *gin.Context) {
	res, _ := h.svc.Latest()
	c.JSON(http.StatusOK, res.Snapshot.Filter(c.Query("q")))
}

// GetSnapshot returns the latest result with its metadata.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	res, ok := h.svc.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refresh forces a fetch. A fetch already in flight is reported as no update.
func (h *Handlers) Refresh(c *gin.Context) {
	if !h.refresh.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "refresh rate exceeded"})
		return
	}
	res := h.svc.Refresh(c.Request.Context())
	if res.Skipped() {
		c.JSON(http.StatusOK, gin.H{"updated": false, "reason": res.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true, "result": res})
}

func (h *Handlers) GetMarket(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.MarketStatus())
}

// UpdateMarket applies a partial market settings update.
func (h *Handlers) UpdateMarket(c *gin.Context) {
	var req market.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
		return
	}
	if err := h.svc.UpdateMarketSettings(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.svc.MarketStatus())
}

// IntervalRequest sets the polling interval in milliseconds.
type IntervalRequest struct {
	IntervalMS int64 `json:"interval_ms" binding:"required"`
}

func (h *Handlers) SetInterval(c *gin.Context) {
	var req IntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.svc.SetInterval(time.Duration(req.IntervalMS) * time.Millisecond); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.svc.MarketStatus())
}

func (h *Handlers) StartPolling(c *gin.Context) {
	if err := h.svc.Start(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.svc.MarketStatus())
}

func (h *Handlers) StopPolling(c *gin.Context) {
	h.svc.Stop()
	c.JSON(http.StatusOK, h.svc.MarketStatus())
}

// GetHistory lists journaled fetch cycles, newest first.
func (h *Handlers) GetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history: " + err.Error()})
		return
	}
	if entries == nil {
		entries = []recorder.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
