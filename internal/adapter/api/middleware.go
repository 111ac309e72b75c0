package api

import (
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"net/http"
	"strings"
)

const KeyCurrentUser = "current_user"

func LoginRequired(authorizer *identity.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return JsonError(c, http.StatusUnauthorized, "Invalid Authorization header")
			}
			token, err := authorizer.ValidateAccessToken(parts[1])
			if err != nil {
				return JsonError(c, http.StatusUnauthorized, err.Error())
			}
			c.Set(KeyCurrentUser, token.Caller(clientOf(c.Request())))
			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}

func clientOf(r *http.Request) string {
	agent := useragent.Parse(r.UserAgent())
	if agent.Name == "" {
		return ""
	}
	client := agent.Name
	if agent.Version != "" {
		client += " " + agent.Version
	}
	if agent.OS != "" {
		client += " (" + agent.OS + ")"
	}
	return client
}

func currentCaller(c echo.Context) access.Caller {
	caller, _ := c.Get(KeyCurrentUser).(access.Caller)
	return caller
}
