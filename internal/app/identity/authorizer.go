package identity

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"time"
)

var (
	ErrAccessTokenInvalid = errors.New("invalid access token")
	ErrAccessTokenExpired = fmt.Errorf("%w: token expired", ErrAccessTokenInvalid)
)

type Authorizer struct {
	Secret         string
	AccessTokenTTL time.Duration
}

func (a *Authorizer) IssueAccessToken(userID string, role profile.Role) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrAccessTokenInvalid)
	}
	if _, err := profile.ParseRole(string(role)); err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":  uuid.New().String(),
		"sub":  userID,
		"role": string(role),
		"exp":  now.Add(a.AccessTokenTTL).Unix(),
		"iat":  now.Unix(),
	})
	return token.SignedString([]byte(a.Secret))
}

type AccessTokenData struct {
	TokenID string
	UserID  string
	Role    profile.Role
}

func (d *AccessTokenData) Caller(client string) access.Caller {
	return access.Caller{UserID: d.UserID, Role: d.Role, Client: client}
}

func (a *Authorizer) ValidateAccessToken(accessToken string) (*AccessTokenData, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(a.Secret), nil
	})

	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrAccessTokenExpired
		}
		return nil, ErrAccessTokenInvalid
	}

	if _, ok := claims["exp"]; !ok {
		return nil, fmt.Errorf("%w: missing exp", ErrAccessTokenInvalid)
	}

	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	rawRole, _ := claims["role"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrAccessTokenInvalid)
	}
	role, err := profile.ParseRole(rawRole)
	if err != nil {
		return nil, errors.Join(ErrAccessTokenInvalid, err)
	}

	return &AccessTokenData{
		TokenID: jti,
		UserID:  sub,
		Role:    role,
	}, nil
}
