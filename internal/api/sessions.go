package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
)

const sessionKey = "session"

func (h *Handler) loadSession(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": "session not found",
		})
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func session(c *gin.Context) *viewer.Session {
	return c.MustGet(sessionKey).(*viewer.Session)
}

// startSession registers a new session and loads its default period. The
// session is kept even if that first fetch fails so the client can retry.
func (h *Handler) startSession(ctx context.Context) (*viewer.Session, *viewer.View, error) {
	s := h.newSession()
	h.sessions.Set(s.ID(), s)
	v, err := s.Init(ctx)
	return s, v, err
}

func (h *Handler) createSession(c *gin.Context) {
	s, v, err := h.startSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/api/sessions/"+s.ID())
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).View())
}

type filterRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *Handler) changeFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	s := session(c)
	ctx := c.Request.Context()
	var (
		v   *viewer.View
		err error
	)
	switch c.Param("filter") {
	case "period":
		v, err = s.ChangePeriod(ctx, req.Value)
	case "magnitude":
		v, err = s.ChangeMagnitude(ctx, req.Value)
	case "depth":
		v, err = s.ChangeDepth(ctx, req.Value)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown filter: " + c.Param("filter")})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type overlayRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h *Handler) setOverlay(c *gin.Context) {
	var req overlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	v, err := session(c).SetOverlayVisible(c.Param("overlay"), *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) getMarkers(c *gin.Context) {
	b, err := markersToGeoJSON(session(c).Markers()).MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", b)
}

func (h *Handler) getHeatmap(c *gin.Context) {
	heat := session(c).HeatLayer()
	if heat == nil {
		heat = mapview.DrawHeatPoints(nil, mapview.HeatmapStyle)
	}
	if heat.Points == nil {
		heat = mapview.DrawHeatPoints([]mapview.HeatPoint{}, heat.Style)
	}
	c.JSON(http.StatusOK, heat)
}
