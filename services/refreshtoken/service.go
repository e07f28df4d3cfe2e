package refreshtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/expensio/expensio/config"
	"github.com/expensio/expensio/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound  = errors.New("refresh token not found")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrRefreshTokenRevoked   = errors.New("refresh token revoked")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Service struct {
	db          *gorm.DB
	config      *config.Config
	logger      *logging.Service
	stopCleanup chan struct{}
}

func NewService(db *gorm.DB, config *config.Config, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing refresh token service",
			zap.Duration("token_expiry", config.RefreshToken.Expiry),
			zap.Int("token_length", config.RefreshToken.TokenLength),
			zap.Duration("cleanup_interval", config.RefreshToken.CleanupInterval))
	}

	return &Service{
		db:     db,
		config: config,
		logger: logger,
	}
}

// Generate issues a new opaque refresh token for the user and persists its
// hash. The raw token value is returned once and never stored.
func (s *Service) Generate(userID uint, info SessionInfo) (*TokenData, error) {
	token, err := s.generateSecureToken()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate secure refresh token", zap.Error(err))
		}
		return nil, ErrTokenGenerationFailed
	}

	tokenHash := s.hashToken(token)
	now := time.Now()
	expiresAt := now.Add(s.config.RefreshToken.Expiry)

	deviceInfoJSON := ""
	if info.DeviceInfo != nil {
		if jsonBytes, err := json.Marshal(info.DeviceInfo); err == nil {
			deviceInfoJSON = string(jsonBytes)
		}
	}

	record := RefreshToken{
		UserID:     userID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		Revoked:    false,
		CreatedAt:  now,
		LastUsed:   now,
		DeviceInfo: deviceInfoJSON,
	}

	if err := s.db.Create(&record).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store refresh token", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("refresh token issued",
			zap.Uint("user_id", userID),
			zap.Uint("token_id", record.ID),
			zap.Time("expires_at", expiresAt))
	}

	return &TokenData{
		Token:     token,
		TokenID:   record.ID,
		Hash:      tokenHash,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve returns the stored record for a presented token only while it is
// usable: present, not revoked and not expired.
func (s *Service) Resolve(tokenString string) (*RefreshToken, error) {
	tokenHash := s.hashToken(tokenString)

	var record RefreshToken
	err := s.db.Where("token_hash = ?", tokenHash).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logger != nil {
				s.logger.Warn("refresh token resolution failed - token not found")
			}
			return nil, ErrRefreshTokenNotFound
		}
		if s.logger != nil {
			s.logger.Error("refresh token resolution failed - database error", zap.Error(err))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if record.Revoked {
		if s.logger != nil {
			s.logger.Warn("refresh token resolution failed - token revoked",
				zap.Uint("token_id", record.ID),
				zap.Uint("user_id", record.UserID))
		}
		return nil, ErrRefreshTokenRevoked
	}

	if time.Now().After(record.ExpiresAt) {
		if s.logger != nil {
			s.logger.Warn("refresh token resolution failed - token expired",
				zap.Uint("token_id", record.ID),
				zap.Uint("user_id", record.UserID),
				zap.Time("expired_at", record.ExpiresAt))
		}
		return nil, ErrRefreshTokenExpired
	}

	return &record, nil
}

// Rotate consumes the presented token and issues its replacement. The revoke
// is a conditional update keyed on revoked = false, so when two flows race on
// the same token string exactly one observes the transition and issues a
// replacement; the loser fails with ErrRefreshTokenRevoked.
func (s *Service) Rotate(tokenString string) (*RefreshToken, *TokenData, error) {
	oldToken, err := s.Resolve(tokenString)
	if err != nil {
		return nil, nil, err
	}

	result := s.db.Model(&RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", oldToken.TokenHash, false).
		Updates(map[string]any{"revoked": true, "last_used": time.Now()})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("refresh token rotation failed - revoke error",
				zap.Error(result.Error),
				zap.Uint("token_id", oldToken.ID))
		}
		return nil, nil, fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if s.logger != nil {
			s.logger.Warn("refresh token rotation lost race - token already consumed",
				zap.Uint("token_id", oldToken.ID),
				zap.Uint("user_id", oldToken.UserID))
		}
		return nil, nil, ErrRefreshTokenRevoked
	}

	info := SessionInfo{}
	if oldToken.DeviceInfo != "" {
		var deviceInfo map[string]any
		if err := json.Unmarshal([]byte(oldToken.DeviceInfo), &deviceInfo); err == nil {
			info.DeviceInfo = deviceInfo
		}
	}

	newTokenData, err := s.Generate(oldToken.UserID, info)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("refresh token rotation failed - replacement generation error",
				zap.Error(err),
				zap.Uint("user_id", oldToken.UserID))
		}
		return nil, nil, fmt.Errorf("failed to generate replacement refresh token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("refresh token rotated",
			zap.Uint("user_id", oldToken.UserID),
			zap.Uint("old_token_id", oldToken.ID),
			zap.Uint("new_token_id", newTokenData.TokenID))
	}

	return oldToken, newTokenData, nil
}

// Revoke marks the presented token revoked. It reports true only when a live
// record was revoked by this call; already-revoked and unknown tokens report
// false without error.
func (s *Service) Revoke(tokenString string) (bool, error) {
	tokenHash := s.hashToken(tokenString)

	result := s.db.Model(&RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true)
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to revoke refresh token", zap.Error(result.Error))
		}
		return false, fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("refresh token revocation processed",
			zap.String("token_hash", tokenHash[:16]+"..."),
			zap.Int64("affected_rows", result.RowsAffected))
	}

	return result.RowsAffected > 0, nil
}

// RevokeAllForUser revokes every live token the user holds, across devices.
func (s *Service) RevokeAllForUser(userID uint) (int64, error) {
	result := s.db.Model(&RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to revoke all user refresh tokens",
				zap.Error(result.Error),
				zap.Uint("user_id", userID))
		}
		return 0, fmt.Errorf("failed to revoke all user refresh tokens: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("all user refresh tokens revoked",
			zap.Uint("user_id", userID),
			zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// CleanupExpired hard-deletes records that can no longer authenticate
// anything. Safe to run alongside request traffic: the expiry check already
// excludes these rows from Resolve.
func (s *Service) CleanupExpired() error {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&RefreshToken{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		}
		return fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}

	if s.logger != nil {
		if result.RowsAffected > 0 {
			s.logger.Info("cleaned up expired refresh tokens",
				zap.Int64("count", result.RowsAffected))
		} else {
			s.logger.Debug("no expired refresh tokens found to cleanup")
		}
	}

	return nil
}

func (s *Service) generateSecureToken() (string, error) {
	tokenBytes := make([]byte, s.config.RefreshToken.TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

func (s *Service) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Service) StartCleanupWorker() {
	if s.stopCleanup != nil {
		return
	}
	stop := make(chan struct{})
	s.stopCleanup = stop

	go func() {
		ticker := time.NewTicker(s.config.RefreshToken.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.CleanupExpired(); err != nil && s.logger != nil {
					s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
				}
			case <-stop:
				return
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started refresh token cleanup worker",
			zap.Duration("interval", s.config.RefreshToken.CleanupInterval))
	}
}

// StopCleanupWorker terminates the sweep goroutine. Safe to call when the
// worker was never started, and safe to call twice.
func (s *Service) StopCleanupWorker() {
	if s.stopCleanup == nil {
		return
	}
	close(s.stopCleanup)
	s.stopCleanup = nil

	if s.logger != nil {
		s.logger.Info("stopped refresh token cleanup worker")
	}
}
