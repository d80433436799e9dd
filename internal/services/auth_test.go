package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	db := testutil.NewDB(t)
	auth := NewAuthService(db, "test-secret")
	ctx := context.Background()

	session, err := auth.Register(ctx, RegisterInput{Email: " Cook@Example.com ", Password: "correct horse", Name: "Cook"})
	require.NoError(t, err)
	assert.Equal(t, "cook@example.com", session.User.Email)
	assert.Nil(t, session.User.TeamID, "new users start without a team")
	assert.NotEqual(t, "correct horse", session.User.PasswordHash)

	id, err := auth.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id)

	_, err = auth.Register(ctx, RegisterInput{Email: "cook@example.com", Password: "another one"})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)

	login, err := auth.Login(ctx, LoginInput{Email: "COOK@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = auth.Login(ctx, LoginInput{Email: "cook@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrBadCredentials)

	user, err := auth.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Cook", user.Name)
}

func TestRegisterRejectsShortPasswords(t *testing.T) {
	auth := NewAuthService(testutil.NewDB(t), "test-secret")
	_, err := auth.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTokensExpire(t *testing.T) {
	db := testutil.NewDB(t)
	auth := NewAuthService(db, "test-secret")
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	session, err := auth.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(TokenTTL), session.ExpiresAt)

	auth.now = func() time.Time { return issued.Add(TokenTTL - time.Minute) }
	_, err = auth.ParseToken(session.Token)
	assert.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(TokenTTL + time.Minute) }
	_, err = auth.ParseToken(session.Token)
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	auth := NewAuthService(testutil.NewDB(t), "test-secret")

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": 1, "exp": time.Now().Add(time.Hour).Unix()})
	signed, err := other.SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := noUser.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{"wrong secret": signed, "no user": unsigned, "garbage": "not.a.token"} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseToken(token)
			assert.ErrorIs(t, err, ErrBadCredentials)
		})
	}
}

func TestIssuingNeedsSecret(t *testing.T) {
	auth := NewAuthService(testutil.NewDB(t), "")
	_, err := auth.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
