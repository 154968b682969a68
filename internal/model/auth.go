package model

import "time"

// Role is the authorization role carried by a token.
type Role string

// RoleAdmin is the only role ever issued.
const RoleAdmin Role = "admin"

// LoginRequest is the payload for admin authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=128"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
