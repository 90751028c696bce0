package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a server-side session. The GitHub access token itself is
// never placed in the signed token.
type Claims struct {
	Login     string
	SessionID string
	ExpiresAt time.Time
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

const issuer = "git-journal"

func IssueToken(secret []byte, claims Claims) (string, error) {
	if claims.Login == "" || claims.SessionID == "" || claims.ExpiresAt.IsZero() {
		return "", fmt.Errorf("issue token: login, session id and expiry are required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   claims.Login,
		ID:        claims.SessionID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func ParseToken(secret []byte, raw string) (Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &registered, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if registered.Subject == "" || registered.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		Login:     registered.Subject,
		SessionID: registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
