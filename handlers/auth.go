package handlers

import (
	"errors"
	"net/http"

	authmw "github.com/expensio/expensio/middleware/auth"
	"github.com/expensio/expensio/services/auth"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/refreshtoken"
	"github.com/expensio/expensio/services/user"
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

type AuthHandler struct {
	auth   *auth.Service
	logger *logging.Service
}

func NewAuthHandler(authService *auth.Service, logger *logging.Service) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		logger: logger,
	}
}

// Register creates a new account. Validation failures come back as 422 with
// per-field detail; duplicate emails as 400 with one fixed message no matter
// whether the pre-check or the store constraint caught them.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Invalid request body")
	}

	if fieldErrors := validateRegisterRequest(req); len(fieldErrors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: fieldErrors})
	}

	newUser, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		var policyErr *auth.PasswordPolicyError
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
		case errors.Is(err, user.ErrInvalidEmail):
			return c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
				Detail: []FieldError{{Field: "email", Message: err.Error()}},
			})
		case errors.As(err, &policyErr):
			return c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
				Detail: []FieldError{{Field: "password", Message: policyErr.Reason}},
			})
		default:
			h.logger.Error("registration failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
	}

	return c.JSON(http.StatusCreated, newUser)
}

// Login authenticates the credentials and returns a token pair. Unknown email
// and wrong password produce the identical response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Invalid request body")
	}

	pair, err := h.auth.Login(req.Email, req.Password, sessionInfoFromRequest(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrAccountDeactivated):
			return echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
		default:
			h.logger.Error("login failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
		}
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh rotates the presented refresh token and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Invalid request body")
	}

	pair, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
		case errors.Is(err, auth.ErrAccountDeactivated):
			return echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Refresh failed")
		}
	}

	return c.JSON(http.StatusOK, pair)
}

// Logout revokes the presented refresh token. Always 200: revoking an
// already-dead token is not an error, only a different message.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Invalid request body")
	}

	revoked, err := h.auth.Logout(req.RefreshToken)
	if err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}

	if revoked {
		return c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Token already invalid or expired"})
}

// LogoutAll revokes every live refresh token the authenticated user holds.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	account := authmw.CurrentUser(c)
	if account == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	if _, err := h.auth.LogoutAll(account.ID); err != nil {
		h.logger.Error("logout-all failed", zap.Error(err), zap.Uint("user_id", account.ID))
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out on all devices"})
}

func validateRegisterRequest(req RegisterRequest) []FieldError {
	var fieldErrors []FieldError

	if req.Email == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "email", Message: "email is required"})
	} else if err := user.ValidateEmail(req.Email); err != nil {
		fieldErrors = append(fieldErrors, FieldError{Field: "email", Message: err.Error()})
	}

	if req.Password == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "password", Message: "password is required"})
	}

	return fieldErrors
}

func sessionInfoFromRequest(c echo.Context) refreshtoken.SessionInfo {
	uaString := c.Request().UserAgent()
	info := refreshtoken.SessionInfo{
		IPAddress: c.RealIP(),
		UserAgent: uaString,
	}

	if uaString != "" {
		ua := useragent.Parse(uaString)
		info.DeviceInfo = map[string]any{
			"os":      ua.OS,
			"browser": ua.Name,
			"device":  ua.Device,
			"mobile":  ua.Mobile,
		}
	}

	return info
}
