package identity

import (
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	a := &Authorizer{Secret: "s3cret", AccessTokenTTL: time.Minute}

	token, err := a.IssueAccessToken("u-1", profile.RoleTrainer)
	require.NoError(t, err)

	data, err := a.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", data.UserID)
	assert.Equal(t, profile.RoleTrainer, data.Role)
	assert.NotEmpty(t, data.TokenID)

	caller := data.Caller("Firefox")
	assert.Equal(t, "u-1", caller.UserID)
	assert.Equal(t, "Firefox", caller.Client)
}

func TestValidateRejects(t *testing.T) {
	a := &Authorizer{Secret: "s3cret", AccessTokenTTL: time.Minute}

	other := &Authorizer{Secret: "other", AccessTokenTTL: time.Minute}
	foreign, err := other.IssueAccessToken("u-1", profile.RoleAdministrator)
	require.NoError(t, err)
	_, err = a.ValidateAccessToken(foreign)
	assert.ErrorIs(t, err, ErrAccessTokenInvalid)

	expired := &Authorizer{Secret: "s3cret", AccessTokenTTL: -time.Minute}
	old, err := expired.IssueAccessToken("u-1", profile.RoleAthlete)
	require.NoError(t, err)
	_, err = a.ValidateAccessToken(old)
	assert.ErrorIs(t, err, ErrAccessTokenExpired)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": "owner",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = a.ValidateAccessToken(badRole)
	assert.ErrorIs(t, err, ErrAccessTokenInvalid)

	_, err = a.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrAccessTokenInvalid)

	_, err = a.IssueAccessToken("u-1", "owner")
	assert.ErrorIs(t, err, profile.ErrInvalidRole)
}
