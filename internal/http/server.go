package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/engine"
	applog "financas/internal/log"
)

// Reconciler runs reconciliation passes for the read endpoints.
type Reconciler interface {
	Run(ctx context.Context) (*engine.Reconciliation, error)
	SourceBreakdown(ctx context.Context, src core.Source) ([]engine.ActualShare, error)
}

// DataEntry persists new transactions and planned budget rows.
type DataEntry interface {
	CreateTransaction(ctx context.Context, t core.TransactionRecord) (string, error)
	CreateCreditPurchase(ctx context.Context, t core.TransactionRecord, installments int) ([]string, error)
	CreateBudgetEntry(ctx context.Context, b core.BudgetEntry) (string, error)
}

type Server struct {
	http.Server
	reconciler  Reconciler
	dataEntry   DataEntry
	rateLimiter *rateLimiter

	// Snapshot cache: one entry for the full reconciliation, one per source
	// breakdown. Writes purge everything.
	snapshotCache  *cache.LRUCache[*engine.Reconciliation]
	breakdownCache *cache.LRUCache[[]engine.ActualShare]

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
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

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, rec Reconciler, entry DataEntry, cacheTTL time.Duration, cacheSize int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reconciler:     rec,
		dataEntry:      entry,
		rateLimiter:    newRateLimiter(),
		snapshotCache:  cache.NewLRUCache[*engine.Reconciliation](cacheSize, cacheTTL),
		breakdownCache: cache.NewLRUCache[[]engine.ActualShare](cacheSize, cacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /api/reconciliation", s.withSecurityHeaders(s.handleReconciliation))
	mux.HandleFunc("GET /api/actuals", s.withSecurityHeaders(s.handleActuals))
	mux.HandleFunc("POST /transactions/{source}", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("POST /budget", s.withSecurityHeaders(s.handleCreateBudgetEntry))

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// Caches returns the server's snapshot caches for expiry-sweep registration.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.snapshotCache, s.breakdownCache}
}

// withSecurityHeaders adds security headers, rate limiting, and request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type reconciledRowJSON struct {
	Month      string `json:"month"`
	Category   string `json:"category"`
	Planned    string `json:"planned"`
	Actual     string `json:"actual"`
	Balance    string `json:"balance"`
	Percentage string `json:"percentage"`
	HasPlanned bool   `json:"has_planned"`
	HasActual  bool   `json:"has_actual"`
}

type reconciliationJSON struct {
	Months []string            `json:"months"`
	Rows   []reconciledRowJSON `json:"rows"`
}

type actualShareJSON struct {
	Month      string `json:"month"`
	Category   string `json:"category"`
	Total      string `json:"total"`
	Percentage string `json:"percentage"`
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.snapshotCache.Get("reconciliation")
	if !ok {
		var err error
		rec, err = s.reconciler.Run(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.snapshotCache.Set("reconciliation", rec)
	}

	monthFilter := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthFilter != "" {
		if _, err := core.ParseMonthID(monthFilter); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	out := reconciliationJSON{
		Months: make([]string, 0, len(rec.Months)),
		Rows:   make([]reconciledRowJSON, 0, len(rec.Rows)),
	}
	for _, m := range rec.Months {
		out.Months = append(out.Months, string(m))
	}
	for _, row := range rec.Rows {
		if monthFilter != "" && string(row.Month) != monthFilter {
			continue
		}
		out.Rows = append(out.Rows, reconciledRowJSON{
			Month:      string(row.Month),
			Category:   row.Category,
			Planned:    core.FormatAmount(row.Planned),
			Actual:     core.FormatAmount(row.Actual),
			Balance:    core.FormatAmount(row.Balance),
			Percentage: core.FormatAmount(row.Percentage),
			HasPlanned: row.HasPlanned,
			HasActual:  row.HasActual,
		})
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActuals(w http.ResponseWriter, r *http.Request) {
	src, err := core.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	shares, ok := s.breakdownCache.Get(string(src))
	if !ok {
		shares, err = s.reconciler.SourceBreakdown(r.Context(), src)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.breakdownCache.Set(string(src), shares)
	}

	out := make([]actualShareJSON, 0, len(shares))
	for _, sh := range shares {
		out = append(out, actualShareJSON{
			Month:      string(sh.Month),
			Category:   sh.Category,
			Total:      core.FormatAmount(sh.Total),
			Percentage: core.FormatAmount(sh.Percentage),
		})
	}

	s.writeJSON(w, http.StatusOK, out)
}

type transactionRequest struct {
	Month        string `json:"month"`
	Category     string `json:"category"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Extra        string `json:"extra"`
	Installments int    `json:"installments"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	src, err := core.ParseSource(r.PathValue("source"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	month, err := core.ParseMonthID(req.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := core.ParsePositiveAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	txn := core.TransactionRecord{
		Month:       month,
		Source:      src,
		Category:    sanitizeInput(req.Category),
		Amount:      amount,
		Date:        sanitizeInput(req.Date),
		Description: sanitizeInput(req.Description),
		Extra:       sanitizeInput(req.Extra),
	}
	if err := txn.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	var refs []string
	if src == core.Credit && req.Installments > 1 {
		refs, err = s.dataEntry.CreateCreditPurchase(r.Context(), txn, req.Installments)
	} else {
		var ref string
		ref, err = s.dataEntry.CreateTransaction(r.Context(), txn)
		refs = []string{ref}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.purgeSnapshots()
	s.writeJSON(w, http.StatusCreated, map[string]any{"refs": refs})
}

type budgetRequest struct {
	Month    string `json:"month"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleCreateBudgetEntry(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	month, err := core.ParseMonthID(req.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry := core.BudgetEntry{
		Month:    month,
		Category: sanitizeInput(req.Category),
		Planned:  amount,
	}
	if err := entry.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	ref, err := s.dataEntry.CreateBudgetEntry(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.purgeSnapshots()
	s.writeJSON(w, http.StatusCreated, map[string]any{"ref": ref})
}

func (s *Server) purgeSnapshots() {
	s.snapshotCache.Purge()
	s.breakdownCache.Purge()
}

var errBadRequestBody = errors.New("invalid request body")

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequestBody):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrUnknownSource),
		errors.Is(err, core.ErrEmptyCategory):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAmbiguousKey):
		status = http.StatusConflict
	case errors.Is(err, core.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
