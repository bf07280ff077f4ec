package auth

import (
	"context"
	"errors"
	"time"

	"backend-pacetrack/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is deliberately long: a device keeps one bearer token
// instead of an access/refresh pair.
const tokenTTL = 30 * 24 * time.Hour

type Service struct {
	secret []byte
	db     db.Querier
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

// Register stores a new device and mints its one-time secret. The clear
// secret is not recoverable afterwards; only the hash is kept.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	if req.Name == "" {
		return RegisterResponse{}, errors.New("name required")
	}
	secret := uuid.NewString()
	hash, err := hashSecretFn([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResponse{}, err
	}

	device := Device{
		ID:         uuid.NewString(),
		Name:       req.Name,
		SecretHash: string(hash),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO devices (id, name, secret_hash)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, device.ID, device.Name, device.SecretHash)
	if err := row.Scan(&device.CreatedAt); err != nil {
		return RegisterResponse{}, err
	}

	return RegisterResponse{
		DeviceID:  device.ID,
		Name:      device.Name,
		Secret:    secret,
		CreatedAt: device.CreatedAt,
	}, nil
}

// Token exchanges a device id and secret for a signed bearer token.
func (s *Service) Token(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT secret_hash FROM devices WHERE id = $1
	`, req.DeviceID)
	var hash string
	if err := row.Scan(&hash); err != nil {
		return TokenResponse{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Secret)); err != nil {
		return TokenResponse{}, errors.New("invalid credentials")
	}

	token, err := signTokenFn(s, req.DeviceID, tokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.DeviceID, nil
}

func (s *Service) signToken(deviceID string, ttl time.Duration) (string, error) {
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

var (
	signTokenFn       = (*Service).signToken
	hashSecretFn      = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)
