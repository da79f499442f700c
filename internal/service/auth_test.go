package service

import (
	"context"
	"testing"
	"time"

	"messly-backend/internal/model"
	"messly-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUserStore struct {
	byEmail map[string]*model.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenVerifier_Resolves_Subject_To_User(t *testing.T) {
	req := require.New(t)
	users := &fakeUserStore{byEmail: map[string]*model.User{
		"alice@example.com": {ID: 1, Username: "alice", Email: "alice@example.com"},
	}}
	verifier := NewTokenVerifier(users, testSecret)

	user, err := verifier.Verify(context.Background(), signToken(t, testSecret, "alice@example.com", time.Hour))

	req.NoError(err)
	req.Equal("alice", user.Username)
}

func TestTokenVerifier_Rejects_Bad_Signature(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier(&fakeUserStore{}, testSecret)

	_, err := verifier.Verify(context.Background(), signToken(t, "other-secret", "alice@example.com", time.Hour))

	req.ErrorIs(err, ErrInvalidToken)
}

func TestTokenVerifier_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier(&fakeUserStore{}, testSecret)

	_, err := verifier.Verify(context.Background(), signToken(t, testSecret, "alice@example.com", -time.Minute))

	req.ErrorIs(err, ErrInvalidToken)
}

func TestTokenVerifier_Rejects_Missing_Subject(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier(&fakeUserStore{}, testSecret)

	_, err := verifier.Verify(context.Background(), signToken(t, testSecret, "", time.Hour))

	req.ErrorIs(err, ErrInvalidToken)
}

func TestTokenVerifier_Rejects_Unknown_User(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier(&fakeUserStore{byEmail: map[string]*model.User{}}, testSecret)

	_, err := verifier.Verify(context.Background(), signToken(t, testSecret, "ghost@example.com", time.Hour))

	req.ErrorIs(err, ErrUnknownUser)
}
