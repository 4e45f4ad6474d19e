package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/google/uuid"
)

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.mu.RLock()
	acct, ok := h.users[strings.ToLower(strings.TrimSpace(req.Email))]
	h.mu.RUnlock()
	if !ok {
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, acct.hash)
	if err != nil {
		h.writeError(w, "Unable to verify password", http.StatusInternalServerError)
		return
	}
	if !match {
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.signAccess(acct.user.ID)
	if err != nil {
		h.writeError(w, "Unable to sign token: "+err.Error(), http.StatusInternalServerError)
		return
	}
	user := acct.user
	h.writeJSON(w, http.StatusOK, api.LoginResponse{AccessToken: token, User: &user})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		h.writeError(w, "Please fill in all fields", http.StatusBadRequest)
		return
	}

	hash, err := argon2id.CreateHash(req.Password, h.params)
	if err != nil {
		h.writeError(w, "Unable to hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: h.now().UTC(),
	}

	h.mu.Lock()
	if _, exists := h.users[email]; exists {
		h.mu.Unlock()
		h.writeError(w, "User already exists", http.StatusBadRequest)
		return
	}
	h.users[email] = &account{user: user, hash: hash}
	h.mu.Unlock()

	token, err := h.signAccess(user.ID)
	if err != nil {
		h.writeError(w, "Unable to sign token: "+err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("Registered user", "user_id", user.ID)
	h.writeJSON(w, http.StatusCreated, api.RegisterResponse{AccessToken: token, User: &user})
}

// HandleLogout revokes the presented token. Missing or invalid tokens still
// succeed, there is nothing to end.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if claims, err := h.parseAccess(token); err == nil {
			h.mu.Lock()
			h.revoked[claims.ID] = claims.ExpiresAt.Time
			h.mu.Unlock()
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
