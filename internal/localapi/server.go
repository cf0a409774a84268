// Package localapi exposes the game API on a loopback port while the desktop
// app runs, so external bots can fly missions the player watches live.
package localapi

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// TokenHeader carries the shared secret when a token is configured.
const TokenHeader = "X-Galactic-Token"

// Server runs the loopback listener.
type Server struct {
	handler      http.Handler
	token        string
	addr         string
	notify       func(player string)
	logger       *log.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu         sync.Mutex
	httpServer *http.Server
	bound      string
}

// New wraps handler for serving on addr, e.g. "127.0.0.1:17890". token may be
// empty to disable the check. notify, if set, is called with the player name
// after every successful write to a mission.
func New(handler http.Handler, addr, token string, notify func(player string)) *Server {
	if addr == "" {
		addr = "127.0.0.1:17890"
	}
	return &Server{
		handler:      handler,
		token:        token,
		addr:         addr,
		notify:       notify,
		logger:       log.New(os.Stdout, "[LOCALAPI] ", log.LstdFlags),
		readTimeout:  10 * time.Second,
		writeTimeout: 2 * time.Minute,
	}
}

// Handler returns the wrapped handler without listening.
func (s *Server) Handler() http.Handler {
	return s.logRequest(s.requireToken(s.notifyWrites(s.handler)))
}

// Start begins listening in a goroutine. It returns when the socket is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		_ = srv.Serve(ln)
	}()
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != "" {
		return s.bound
	}
	return s.addr
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Liveness stays open for supervisors.
		if s.token == "" || r.URL.Path == "/health/live" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get(TokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"type":    "unauthorized",
				"message": "missing or invalid " + TokenHeader,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxStartBody bounds how much of a mission start body is buffered.
const maxStartBody = 64 << 10

func (s *Server) notifyWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.notify == nil || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		player := missionPlayer(r.URL.Path)
		if player == "" && r.URL.Path == missionsPath {
			player = startedPlayer(r)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() >= 400 || player == "" {
			return
		}
		s.notify(player)
	})
}

const missionsPath = "/api/v1/missions"

// missionPlayer extracts {player} from /api/v1/missions/{player}/...
func missionPlayer(path string) string {
	rest, ok := strings.CutPrefix(path, missionsPath+"/")
	if !ok {
		return ""
	}
	player, _, _ := strings.Cut(rest, "/")
	return player
}

// startedPlayer reads player_name from a mission start body and puts the
// body back for the wrapped handler.
func startedPlayer(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStartBody))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var req struct {
		PlayerName string `json:"player_name"`
	}
	if json.Unmarshal(body, &req) != nil {
		return ""
	}
	return strings.TrimSpace(req.PlayerName)
}

// redactPath replaces the player segment so names stay out of the log.
func redactPath(path string) string {
	rest, ok := strings.CutPrefix(path, missionsPath+"/")
	if !ok || rest == "" {
		return path
	}
	if _, tail, found := strings.Cut(rest, "/"); found {
		return missionsPath + "/{player}/" + tail
	}
	return missionsPath + "/{player}"
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf("%s %s status=%d dur=%s", r.Method, redactPath(r.URL.Path), ww.Status(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
