package handlers

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errRevoked = errors.New("token has been revoked")

func (h *Handler) signAccess(userID string) (string, error) {
	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// parseAccess verifies the HS256 signature, expiry and revocation list
func (h *Handler) parseAccess(tokenStr string) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(h.now))
	token, err := parser.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	h.mu.RLock()
	_, revoked := h.revoked[claims.ID]
	h.mu.RUnlock()
	if revoked {
		return nil, errRevoked
	}
	return claims, nil
}

// authenticate resolves the bearer token to a user ID, writing 401 on failure
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	claims, err := h.parseAccess(token)
	if err != nil {
		h.writeError(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.Subject, true
}
