package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/google/uuid"
)

// MaxBodyBytes caps request bodies; inline images count against it
const MaxBodyBytes = 10 * 1024 * 1024

// Options configures the development backend
type Options struct {
	// Secret signs access tokens. A random one is generated when empty.
	Secret []byte
	// TokenTTL defaults to 24h
	TokenTTL time.Duration
	// Params defaults to argon2id.DefaultParams
	Params *argon2id.Params
}

type account struct {
	user models.User
	hash string
}

// Handler is an in-memory implementation of the books backend
type Handler struct {
	secret []byte
	ttl    time.Duration
	params *argon2id.Params

	mu      sync.RWMutex
	users   map[string]*account // keyed by lower-cased email
	books   []models.Book       // insertion order
	revoked map[string]time.Time
	now     func() time.Time
}

func New(opts Options) (*Handler, error) {
	h := &Handler{
		secret:  opts.Secret,
		ttl:     opts.TokenTTL,
		params:  opts.Params,
		users:   make(map[string]*account),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
	if len(h.secret) == 0 {
		h.secret = make([]byte, 32)
		if _, err := rand.Read(h.secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		slog.Warn("No token secret configured, tokens will not survive a restart")
	}
	if h.ttl <= 0 {
		h.ttl = 24 * time.Hour
	}
	if h.params == nil {
		h.params = argon2id.DefaultParams
	}
	return h, nil
}

// Routes wires every endpoint onto a new mux
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.LoginPath, h.HandleLogin)
	mux.HandleFunc("POST "+api.RegisterPath, h.HandleRegister)
	mux.HandleFunc("POST "+api.LogoutPath, h.HandleLogout)
	mux.HandleFunc("GET "+api.BooksPath, h.HandleListBooks)
	mux.HandleFunc("POST "+api.CreatePath, h.HandleCreateBook)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(api.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(api.RequestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "request_id", requestID, "duration", time.Since(start))
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	}
	h.writeJSON(w, code, map[string]string{"message": message})
}

// decode reads a JSON body, writing the error response itself when it fails
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
