// Package http exposes the JSON API: expenses, budget, analytics,
// notification feed, missions, onboarding and per-user state.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"laksha/internal/cache"
	"laksha/internal/missions"
	"laksha/internal/services"
	"laksha/internal/storage"
)

type Server struct {
	http.Server

	store    *storage.Repository
	expenses *services.ExpenseService
	missions *missions.Service

	feedLimit   int
	rateLimiter *rateLimiter

	// Per-user analytics caches, invalidated on expense writes.
	spendingCache   *cache.LRUCache[spendingResponse]
	dailyLimitCache *cache.LRUCache[dailyLimitResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Options tune server behavior; zero values get sensible defaults.
type Options struct {
	FeedLimit          int
	RateLimitPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *storage.Repository, expenses *services.ExpenseService, missionSvc *missions.Service, opts Options) *Server {
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = 5
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = 60
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            store,
		expenses:         expenses,
		missions:         missionSvc,
		feedLimit:        opts.FeedLimit,
		rateLimiter:      newRateLimiter(opts.RateLimitPerMinute),
		spendingCache:    cache.NewLRU[spendingResponse](500, 5*time.Minute),
		dailyLimitCache:  cache.NewLRU[dailyLimitResponse](500, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/expenses", s.protected(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/budget", s.protected(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.protected(s.handleSaveBudget))

	mux.HandleFunc("GET /api/analytics/spending", s.protected(s.handleSpending))
	mux.HandleFunc("GET /api/analytics/daily-limit", s.protected(s.handleDailyLimit))
	mux.HandleFunc("GET /api/analytics/month-summary", s.protected(s.handleMonthSummary))

	mux.HandleFunc("GET /api/notifications", s.protected(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.protected(s.handleAcknowledgeNotification))

	mux.HandleFunc("GET /api/missions/today", s.protected(s.handleTodayMission))
	mux.HandleFunc("POST /api/missions/complete", s.protected(s.handleCompleteMission))

	mux.HandleFunc("GET /api/onboarding", s.protected(s.handleGetOnboarding))
	mux.HandleFunc("POST /api/onboarding", s.protected(s.handleSaveOnboarding))

	mux.HandleFunc("GET /api/state", s.protected(s.handleListState))
	mux.HandleFunc("GET /api/state/{key}", s.protected(s.handleGetState))
	mux.HandleFunc("PUT /api/state/{key}", s.protected(s.handleSetState))

	return s
}

// protected wraps a handler with security headers, rate limiting on
// writes, request tracing and the user-key requirement.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		if userKey(r) == "" {
			writeError(w, http.StatusUnauthorized, "missing "+userKeyHeader+" header")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			spending := s.spendingCache.CleanExpired()
			limits := s.dailyLimitCache.CleanExpired()
			if spending > 0 || limits > 0 {
				slog.Debug("Cache cleanup completed",
					"spending_removed", spending, "limits_removed", limits)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory rate limiter keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	perMinute    int
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		perMinute:   perMinute,
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= rl.perMinute
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
