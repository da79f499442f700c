package service

import (
	"context"
	"errors"
	"fmt"

	"messly-backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUnknownUser  = errors.New("user not found")
)

// UserStore resolves token subjects to user rows.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenVerifier maps access tokens issued by the website service to users.
// Token issuance lives entirely in the website service; this side only
// verifies the HS256 signature and looks up the subject email.
type TokenVerifier struct {
	users     UserStore
	jwtSecret []byte
}

func NewTokenVerifier(users UserStore, jwtSecret string) *TokenVerifier {
	return &TokenVerifier{users: users, jwtSecret: []byte(jwtSecret)}
}

// Verify parses the credential and resolves it to a user. Expired or
// malformed tokens yield ErrInvalidToken; a valid token whose subject no
// longer exists yields ErrUnknownUser.
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return nil, ErrInvalidToken
	}

	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}
