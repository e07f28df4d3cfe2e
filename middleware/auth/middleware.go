package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/expensio/expensio/services/jwt"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/user"
	"github.com/labstack/echo/v4"
)

const UserKey = "_auth_user"

var (
	errMissingCredential = errors.New("missing bearer credential")
	errInvalidToken      = errors.New("invalid or expired token")
	errUserNotFound      = errors.New("user not found")
	errDeactivated       = errors.New("account is deactivated")
)

// Middleware resolves a request's bearer credential to a user identity. The
// strict posture rejects; the optional posture degrades to anonymous.
type Middleware struct {
	tokens *jwt.Service
	users  *user.Service
	logger *logging.Service
}

func New(tokens *jwt.Service, users *user.Service, logger *logging.Service) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// RequireAuth rejects requests without a verified, active identity. A missing
// or garbled Authorization header is a distinct outcome (403) from a
// credential that fails verification (401).
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, err := m.resolve(c)
			if err != nil {
				switch {
				case errors.Is(err, errMissingCredential):
					return echo.NewHTTPError(http.StatusForbidden, "Not authenticated")
				case errors.Is(err, errUserNotFound):
					return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
				case errors.Is(err, errDeactivated):
					return echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
			}

			c.Set(UserKey, account)
			return next(c)
		}
	}
}

// OptionalAuth attaches the identity when a valid credential is present and
// otherwise continues anonymously. It never fails the request: a stale or
// invalid token on an optional route is not an error.
func (m *Middleware) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if account, err := m.resolve(c); err == nil {
				c.Set(UserKey, account)
			}
			return next(c)
		}
	}
}

func (m *Middleware) resolve(c echo.Context) (*user.User, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingCredential
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, errMissingCredential
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		// Callers get one uniform message; the jwt service already logged
		// the precise decode failure for operators.
		return nil, errInvalidToken
	}

	account, err := m.users.GetByEmail(claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, errDeactivated
	}

	return account, nil
}

// CurrentUser returns the identity resolved by RequireAuth or OptionalAuth,
// or nil for anonymous requests.
func CurrentUser(c echo.Context) *user.User {
	if account, ok := c.Get(UserKey).(*user.User); ok {
		return account
	}
	return nil
}
