// Package handler provides the HTTP surface for CodeLinker Admin.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prn-tf/codelinker-admin/internal/domain"
)

// instantLayout renders instants the way clients expect them: ISO-8601
// civil time in the configured zone, no offset suffix.
const instantLayout = "2006-01-02T15:04:05"

// TokenResponse is the login response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse is the wire form of a user row. Booleans travel as 0/1
// integers and instants as zone-local ISO-8601 strings.
type UserResponse struct {
	UserID        string  `json:"user_id"`
	Username      string  `json:"username"`
	Role          string  `json:"role"`
	IsAdmin       int     `json:"is_admin"`
	IsActive      int     `json:"is_active"`
	LoginAttempts int     `json:"login_attempts"`
	LockedUntil   *string `json:"locked_until"`
	LastLogin     *string `json:"last_login"`
	CreatedAt     *string `json:"created_at"`
	UpdatedAt     *string `json:"updated_at"`
}

// StatusResponse is the health probe response body.
type StatusResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details"`
	Error     string         `json:"error"`
}

// errorResponse carries a human-readable failure detail.
type errorResponse struct {
	Detail string `json:"detail"`
}

// newUserResponse converts a domain user for the wire, rendering
// instants in the given zone.
func newUserResponse(u *domain.User, loc *time.Location) UserResponse {
	return UserResponse{
		UserID:        u.ID.String(),
		Username:      u.Username,
		Role:          u.Role.String(),
		IsAdmin:       boolToInt(u.IsAdmin),
		IsActive:      boolToInt(u.IsActive),
		LoginAttempts: u.LoginAttempts,
		LockedUntil:   renderInstant(u.LockedUntil, loc),
		LastLogin:     renderInstant(u.LastLogin, loc),
		CreatedAt:     renderInstant(&u.CreatedAt, loc),
		UpdatedAt:     renderInstant(&u.UpdatedAt, loc),
	}
}

func newUserResponses(users []*domain.User, loc *time.Location) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u, loc))
	}
	return out
}

func renderInstant(t *time.Time, loc *time.Location) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.In(loc).Format(instantLayout)
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeJSON encodes the body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDetail writes a {"detail": ...} failure body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
