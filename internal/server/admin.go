package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

type configResponse struct {
	CacheState string    `json:"cache_state"`
	Offline    bool      `json:"offline"`
	ETag       string    `json:"etag,omitempty"`
	FetchTime  time.Time `json:"fetch_time,omitzero"`
	Keys       []string  `json:"keys"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":      "healthy",
		"offline":     s.ctrl.IsOffline(),
		"cache_state": s.ctrl.CacheState().String(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	pc := s.ctrl.Snapshot()

	resp := configResponse{
		CacheState: s.ctrl.CacheState().String(),
		Offline:    s.ctrl.IsOffline(),
		Keys:       []string{},
	}
	if !pc.IsEmpty() {
		resp.ETag = pc.ETag
		resp.FetchTime = pc.FetchTime
		resp.Keys = pc.Config.Keys()
	}

	render.JSON(w, r, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresh(w, r)
}

func (s *Server) handleOffline(w http.ResponseWriter, r *http.Request) {
	s.ctrl.SetOffline()
	render.JSON(w, r, map[string]any{"status": "ok", "offline": s.ctrl.IsOffline()})
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	s.ctrl.SetOnline()
	render.JSON(w, r, map[string]any{"status": "ok", "offline": s.ctrl.IsOffline()})
}

// refresh runs a refresh and reports its outcome.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Refresh(r.Context()); err != nil {
		code := domain.RefreshErrorUnexpected
		var refreshErr *domain.RefreshError
		if errors.As(err, &refreshErr) {
			code = refreshErr.Code
		}

		status := http.StatusBadGateway
		if code == domain.RefreshErrorOfflineClient {
			status = http.StatusConflict
		}

		render.Status(r, status)
		render.JSON(w, r, map[string]string{
			"status":     "error",
			"error_code": code.String(),
			"error":      err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]string{"status": "ok"})
}
