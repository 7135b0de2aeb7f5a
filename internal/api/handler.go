package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-quake-heatmap/internal/buckets"
	"github.com/mr1hm/go-quake-heatmap/internal/cache"
	"github.com/mr1hm/go-quake-heatmap/internal/feed"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
	"github.com/mr1hm/go-quake-heatmap/internal/repository"
	"github.com/mr1hm/go-quake-heatmap/internal/stream"
	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
	"github.com/mr1hm/go-quake-heatmap/internal/web"
)

// SessionFactory builds a fresh, uninitialized session.
type SessionFactory func() *viewer.Session

type Handler struct {
	sessions    *cache.Cache[*viewer.Session]
	newSession  SessionFactory
	periods     *feed.Periods
	fetches     repository.FetchLog
	broadcaster *stream.Broadcaster
	upgrader    websocket.Upgrader
}

func NewHandler(sessions *cache.Cache[*viewer.Session], newSession SessionFactory, periods *feed.Periods, fetches repository.FetchLog, broadcaster *stream.Broadcaster) *Handler {
	return &Handler{
		sessions:    sessions,
		newSession:  newSession,
		periods:     periods,
		fetches:     fetches,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.page)
	r.StaticFS("/static", http.FS(web.Static()))
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/options", h.options)
	api.GET("/fetches", h.listFetches)

	api.POST("/sessions", h.createSession)
	s := api.Group("/sessions/:id", h.loadSession)
	s.GET("", h.getSession)
	s.PUT("/filters/:filter", h.changeFilter)
	s.PUT("/overlays/:overlay", h.setOverlay)
	s.GET("/markers", h.getMarkers)
	s.GET("/heatmap", h.getHeatmap)
	s.GET("/stream", h.streamSession)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

type optionEntry struct {
	Label string  `json:"label"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
}

type optionTable struct {
	Default string        `json:"default"`
	Options []optionEntry `json:"options"`
}

func tableJSON(t *buckets.Table) optionTable {
	out := optionTable{Default: t.Sentinel(), Options: []optionEntry{}}
	// the sentinel's unbounded range has no JSON form and is left out
	for _, e := range t.Entries() {
		out.Options = append(out.Options, optionEntry{Label: e.Label, Low: e.Range.Low, High: e.Range.High})
	}
	return out
}

func (h *Handler) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"periods":   h.periods.Labels(),
		"magnitude": tableJSON(buckets.Magnitude),
		"depth":     tableJSON(buckets.Depth),
	})
}

func (h *Handler) listFetches(c *gin.Context) {
	filter := repository.Filter{
		Limit: 50, // Default to 50 fetches if limit param not supplied
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}
	if s := c.Query("status"); s != "" {
		status := models.FetchStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + s})
			return
		}
		filter.Status = &status
	}
	filter.SessionID = c.Query("session")

	fetches, err := h.fetches.ListFetches(c.Request.Context(), filter)
	if err != nil {
		slog.Error("listing fetches failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list fetches",
		})
		return
	}
	total, err := h.fetches.CountFetches(c.Request.Context(), filter)
	if err != nil {
		slog.Error("counting fetches failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to count fetches",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fetches": fetches, "total": total})
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, buckets.ErrUnknownOption), errors.Is(err, viewer.ErrUnknownOverlay):
		status = http.StatusBadRequest
	case errors.Is(err, feed.ErrFetch):
		status = http.StatusBadGateway
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
