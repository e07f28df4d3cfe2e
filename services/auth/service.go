package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/expensio/expensio/config"
	"github.com/expensio/expensio/services/jwt"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/refreshtoken"
	"github.com/expensio/expensio/services/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountDeactivated    = errors.New("account is deactivated")
	ErrInvalidRefreshToken   = errors.New("invalid or expired refresh token")
)

// PasswordPolicyError describes why a password failed the strength policy.
// It is a distinct type so the HTTP layer can map it to a validation failure
// rather than a server error.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	return e.Reason
}

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type Service struct {
	config        *config.Config
	users         *user.Service
	tokens        *jwt.Service
	refreshTokens *refreshtoken.Service
	logger        *logging.Service
}

func NewService(cfg *config.Config, users *user.Service, tokens *jwt.Service, refreshTokens *refreshtoken.Service, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		config:        cfg,
		users:         users,
		tokens:        tokens,
		refreshTokens: refreshTokens,
		logger:        logger,
	}
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.Auth.MinLength {
		if s.logger != nil {
			s.logger.Warn("password validation failed: insufficient length",
				zap.Int("length", len(password)),
				zap.Int("min_required", s.config.Auth.MinLength))
		}
		return &PasswordPolicyError{Reason: fmt.Sprintf("password must be at least %d characters", s.config.Auth.MinLength)}
	}

	var hasLetter, hasNumber bool
	var missing []string

	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if s.config.Auth.RequireLetter && !hasLetter {
		missing = append(missing, "one letter")
	}
	if s.config.Auth.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		if s.logger != nil {
			s.logger.Warn("password validation failed: missing requirements",
				zap.Strings("missing_requirements", missing))
		}
		return &PasswordPolicyError{Reason: fmt.Sprintf("password must contain at least %s", strings.Join(missing, ", "))}
	}

	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", ErrPasswordHashingFailed
	}

	return string(hash), nil
}

// VerifyPassword returns ErrInvalidCredentials for any mismatch, including a
// malformed stored digest. Callers never learn which.
func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Register validates input before touching the store, then creates the
// account. Duplicate emails surface as user.ErrEmailTaken whether caught by
// the pre-check or by the store's uniqueness constraint.
func (s *Service) Register(email, password string) (*user.User, error) {
	if err := user.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(email); err == nil {
		if s.logger != nil {
			s.logger.Warn("registration rejected - email already registered", zap.String("email", email))
		}
		return nil, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(email, hash)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("user registered", zap.Uint("user_id", newUser.ID))
	}

	return newUser, nil
}

// Login authenticates the credentials and issues a fresh token pair. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Login(email, password string, info refreshtoken.SessionInfo) (*TokenPair, error) {
	account, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			if s.logger != nil {
				s.logger.Warn("login failed - unknown email")
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.VerifyPassword(account.Password, password); err != nil {
		if s.logger != nil {
			s.logger.Warn("login failed - password mismatch", zap.Uint("user_id", account.ID))
		}
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		if s.logger != nil {
			s.logger.Warn("login rejected - account deactivated", zap.Uint("user_id", account.ID))
		}
		return nil, ErrAccountDeactivated
	}

	pair, err := s.issueTokenPair(account, info)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("login successful", zap.Uint("user_id", account.ID))
	}

	return pair, nil
}

// Refresh rotates the presented refresh token and issues a new pair for the
// same user. A consumed token never refreshes twice; the store resolves
// concurrent attempts so at most one wins. Rotation runs before the
// account-active check, so a rejected attempt from a deactivated account
// still consumes the presented token.
func (s *Service) Refresh(refreshTokenString string) (*TokenPair, error) {
	oldToken, newTokenData, err := s.refreshTokens.Rotate(refreshTokenString)
	if err != nil {
		switch {
		case errors.Is(err, refreshtoken.ErrRefreshTokenNotFound),
			errors.Is(err, refreshtoken.ErrRefreshTokenExpired),
			errors.Is(err, refreshtoken.ErrRefreshTokenRevoked):
			return nil, ErrInvalidRefreshToken
		default:
			return nil, err
		}
	}

	account, err := s.users.GetByID(oldToken.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !account.IsActive {
		if s.logger != nil {
			s.logger.Warn("refresh rejected - account deactivated", zap.Uint("user_id", account.ID))
		}
		return nil, ErrAccountDeactivated
	}

	accessToken, err := s.tokens.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newTokenData.Token,
		TokenType:    "bearer",
		ExpiresIn:    s.tokens.AccessExpirySeconds(),
	}, nil
}

// Logout revokes the presented refresh token. It reports whether a live
// token was revoked by this call; logout is never an error for the caller.
func (s *Service) Logout(refreshTokenString string) (bool, error) {
	return s.refreshTokens.Revoke(refreshTokenString)
}

// LogoutAll revokes every live refresh token the user holds.
func (s *Service) LogoutAll(userID uint) (int64, error) {
	return s.refreshTokens.RevokeAllForUser(userID)
}

func (s *Service) issueTokenPair(account *user.User, info refreshtoken.SessionInfo) (*TokenPair, error) {
	accessToken, err := s.tokens.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	refreshTokenData, err := s.refreshTokens.Generate(account.ID, info)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenData.Token,
		TokenType:    "bearer",
		ExpiresIn:    s.tokens.AccessExpirySeconds(),
	}, nil
}
