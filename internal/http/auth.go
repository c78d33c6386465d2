package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// HashAccount hashes an account name for storage/lookup.
func HashAccount(account string) string {
	h := sha256.Sum256([]byte("account:" + account))
	return hex.EncodeToString(h[:])
}

// HashPassword hashes a password. Only depends on the password itself.
func HashPassword(password string) string {
	h := sha256.Sum256([]byte("password:" + password))
	return hex.EncodeToString(h[:])
}

// AuthStore holds opaque session tokens in memory. Tokens do not survive a
// restart; the front end re-logs-in on 401.
type AuthStore struct {
	mu       sync.RWMutex
	sessions map[string]string // token -> userID
}

func NewAuthStore() *AuthStore {
	return &AuthStore{sessions: map[string]string{}}
}

// Issue creates a fresh session token for a user.
func (a *AuthStore) Issue(userID string) string {
	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = userID
	a.mu.Unlock()
	return token
}

// Resolve returns the user id behind a token.
func (a *AuthStore) Resolve(token string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	userID, ok := a.sessions[token]
	return userID, ok
}

// Revoke drops a session token.
func (a *AuthStore) Revoke(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}
