package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/web"
)

// PlayerCookie remembers which player a browser is playing as.
const PlayerCookie = "galactic_player"

func playerFromCookie(r *http.Request) string {
	c, err := r.Cookie(PlayerCookie)
	if err != nil {
		return ""
	}
	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return name
}

func setPlayerCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     PlayerCookie,
		Value:    url.QueryEscape(name),
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// renderPage writes v, or the page with the failure shown as a notice.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, player string, v session.View, err error) {
	if err == nil {
		s.writePage(w, r, http.StatusOK, v)
		return
	}

	status, errType, message := classify(err, http.StatusInternalServerError)
	s.errorHandler.logError(r, NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithCause(err).
		Build(), status)

	v = session.View{Player: player, Status: session.StatusNoMission}
	if errors.Is(err, session.ErrNoMission) {
		status = http.StatusOK
		if fresh, ferr := s.game.ViewStatus(r.Context(), player); ferr == nil {
			v = fresh
		}
	}
	v.Notices = append(v.Notices, session.Notice{Level: session.LevelError, Text: message})
	s.writePage(w, r, status, v)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, v session.View) {
	w.Header().Set("X-Galactic-Version", Version)
	if err := web.Render(w, r, status, v); err != nil {
		s.logger.Printf("page_render_failed error=%q", err)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	player := playerFromCookie(r)
	v, err := s.game.ViewStatus(r.Context(), player)
	s.renderPage(w, r, player, v, err)
}

func (s *Server) handlePageStart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := strings.TrimSpace(r.PostFormValue("player_name"))
	if name == "" {
		// Submitting without a name changes nothing.
		s.handlePage(w, r)
		return
	}

	v, err := s.game.StartMission(r.Context(), name)
	s.ops.record("start_mission", start, err)
	if err == nil {
		setPlayerCookie(w, name)
	}
	s.renderPage(w, r, name, v, err)
}

func (s *Server) handlePageAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	player := playerFromCookie(r)
	v, err := s.game.PerformAction(r.Context(), player, r.PostFormValue("action"))
	s.ops.record("action", start, err)
	s.renderPage(w, r, player, v, err)
}
