package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/finflow/backend/src/models"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ErrUnauthenticated is returned for any credential that is missing, malformed,
// badly signed or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

type AuthService struct {
	JWTSecret   string
	TokenExpiry time.Duration

	now func() time.Time
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		JWTSecret:   secret,
		TokenExpiry: expiry,
		now:         time.Now,
	}
}

func (a *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *AuthService) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 access token for id, valid for TokenExpiry.
func (a *AuthService) GenerateToken(id models.Identity) (string, error) {
	if id.UID == "" {
		return "", errors.New("cannot issue token without a subject")
	}
	now := a.now()
	claims := identityClaims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

// Verify checks signature, signing method and expiry, and yields the identity in the token.
func (a *AuthService) Verify(tokenString string) (models.Identity, error) {
	if tokenString == "" {
		return models.Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return models.Identity{UID: claims.Subject, Email: claims.Email}, nil
}
