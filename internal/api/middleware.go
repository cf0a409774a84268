package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// routePattern names the matched route ("/api/v1/missions/{player}") so
// player names in the path never reach the logs. Before routing completes
// the pattern is looked up from the router.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	if rctx.Routes != nil {
		if p := rctx.Routes.Find(chi.NewRouteContext(), r.Method, r.URL.Path); p != "" {
			return p
		}
	}
	return "unmatched"
}

// SecurityLoggingMiddleware logs requests without exposing player names
func (s *Server) SecurityLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		s.logger.Printf(
			"request_start method=%s path=%s request_id=%s remote_addr=%s user_agent=%q version=%s",
			r.Method,
			routePattern(r),
			requestID,
			r.RemoteAddr,
			r.UserAgent(),
			Version,
		)

		next.ServeHTTP(ww, r)

		s.logger.Printf(
			"request_completed method=%s path=%s status=%d duration=%v request_id=%s bytes_written=%d version=%s",
			r.Method,
			routePattern(r),
			ww.Status(),
			time.Since(start),
			requestID,
			ww.BytesWritten(),
			Version,
		)
	})
}

// CORSMiddleware handles CORS headers for browser clients of the JSON API
func (s *Server) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limiterIdleTTL is how long an idle client's bucket is kept.
const limiterIdleTTL = 10 * time.Minute

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client IP. Buckets idle for
// longer than ttl are dropped on a periodic sweep.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     limiterIdleTTL,
		now:     time.Now,
	}
}

func (cl *clientLimiter) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if now.Sub(cl.lastSweep) >= cl.ttl {
		for key, c := range cl.clients {
			if now.Sub(c.lastSeen) >= cl.ttl {
				delete(cl.clients, key)
			}
		}
		cl.lastSweep = now
	}

	c, exists := cl.clients[ip]
	if !exists {
		c = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// RateLimitMiddleware rejects clients that exceed their token bucket with 429.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiter.get(ip).Allow() {
			requestID := middleware.GetReqID(r.Context())
			s.securityLogger.LogSecurityEvent(requestID, "rate_limited", "client exceeded request rate",
				map[string]interface{}{"path": routePattern(r)}, ip)
			w.Header().Set("Retry-After", "1")
			s.errorHandler.HandleError(w, r,
				NewError(ErrTypeRateLimit, "Too many requests").WithRequestID(requestID).Build(),
				http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
