package user

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/expensio/expensio/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidEmail = errors.New("invalid email address")
)

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}

	return nil
}

func (s *Service) Create(email, passwordHash string) (*User, error) {
	if s.logger != nil {
		s.logger.Info("creating user", zap.String("email", email))
	}

	newUser := &User{
		Email:    email,
		Password: passwordHash,
		IsActive: true,
	}

	if err := s.db.Create(newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if s.logger != nil {
				s.logger.Warn("user creation failed - email already registered",
					zap.String("email", email))
			}
			return nil, ErrEmailTaken
		}
		if s.logger != nil {
			s.logger.Error("user creation failed - database error",
				zap.Error(err),
				zap.String("email", email))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("user created",
			zap.Uint("user_id", newUser.ID),
			zap.String("email", email))
	}

	return newUser, nil
}

func (s *Service) GetByEmail(email string) (*User, error) {
	var u User
	err := s.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if s.logger != nil {
			s.logger.Error("user lookup by email failed", zap.Error(err))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &u, nil
}

func (s *Service) GetByID(id uint) (*User, error) {
	var u User
	err := s.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if s.logger != nil {
			s.logger.Error("user lookup by id failed", zap.Error(err), zap.Uint("user_id", id))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &u, nil
}

func (s *Service) SetActive(id uint, active bool) error {
	result := s.db.Model(&User{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update account state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if s.logger != nil {
		s.logger.Info("account state updated",
			zap.Uint("user_id", id),
			zap.Bool("is_active", active))
	}

	return nil
}
