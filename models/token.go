package models

import "time"

// TokenResponse is returned when basic credentials are exchanged for a bearer token
type TokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}
