package authapi

import (
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
)

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirmed"`
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	Next       string `json:"next"`
}

// userResponse is the caller's own account; it includes the email.
type userResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	AboutMe   string     `json:"about_me"`
	Avatar    string     `json:"avatar"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
}

type sessionResponse struct {
	SessionID       string    `json:"session_id"`
	Remember        bool      `json:"remember"`
	ExpiresAt       time.Time `json:"expires_at"`
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	User    userResponse    `json:"user"`
	Session sessionResponse `json:"session"`
	Next    string          `json:"next"`
}

type meResponse struct {
	User      userResponse `json:"user"`
	SessionID string       `json:"session_id"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AboutMe:   u.AboutMe,
		Avatar:    u.Avatar(128),
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

func toSessionResponse(iss session.Issued) sessionResponse {
	return sessionResponse{
		SessionID:       iss.SessionID,
		Remember:        iss.Remember,
		ExpiresAt:       iss.ExpiresAt,
		AccessToken:     iss.AccessToken,
		AccessExpiresAt: iss.AccessExp,
	}
}
