package auth

import (
	"errors"
	"fmt"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 令牌中携带的身份信息
type Claims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	jw.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Make signs an HS256 token for the user.
func (m *TokenManager) Make(userID uint, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jw.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jw.NewNumericDate(now),
			ExpiresAt: jw.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jw.NewWithClaims(jw.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Parse(tok string) (*Claims, error) {
	claims := &Claims{}
	t, err := jw.ParseWithClaims(tok, claims, func(t *jw.Token) (any, error) {
		return m.secret, nil
	}, jw.WithValidMethods([]string{jw.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
