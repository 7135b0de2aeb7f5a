package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-quake-heatmap/internal/dropdown"
	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
	"github.com/mr1hm/go-quake-heatmap/internal/web"
)

// page serves the map with a fresh session whose dropdowns are already
// filled in, so the first paint needs no round trip.
func (h *Handler) page(c *gin.Context) {
	s, v, err := h.startSession(c.Request.Context())
	if v == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		slog.Warn("initial load failed", "session", s.ID(), "error", err)
	}

	html, err := renderPage(web.Page(), v)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func renderPage(tmpl []byte, v *viewer.View) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(tmpl))
	if err != nil {
		return nil, fmt.Errorf("error parsing page: %w", err)
	}

	for _, m := range v.Menus {
		sel, err := dropdown.FindSelect(doc, m.ID)
		if err != nil {
			return nil, err
		}
		dropdown.Populate(sel, m.Options)
		sel.Select(m.Selected)
	}
	doc.Find("body").SetAttr("data-session", v.SessionID)

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("error rendering page: %w", err)
	}
	return []byte(out), nil
}
