package models

import "time"

// Role names carried in the session token
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account created at first sign-in with the identity provider
type User struct {
	ID            string
	Email         string
	Name          string
	Role          string
	OAuthProvider string
	OAuthSubject  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the already-resolved caller of a request, as read from the session token
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role claim
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
