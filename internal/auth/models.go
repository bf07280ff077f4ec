package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Device is a registered phone. Its secret is bcrypt-hashed at rest and
// returned in clear exactly once, on registration.
type Device struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	DeviceID  string    `json:"device_id"`
	Name      string    `json:"name"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenRequest struct {
	DeviceID string `json:"device_id"`
	Secret   string `json:"secret"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Claims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}
