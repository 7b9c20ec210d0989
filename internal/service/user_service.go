package service

import (
	"context"
	"errors"
	"strings"

	"github.com/quillpost/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService resolves login credentials and session identities.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Authenticate checks a username/password pair against the stored bcrypt hash.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}

	return IdentityFromUser(&user), nil
}

// IdentityByID loads the identity for a session user id.
func (s *UserService) IdentityByID(ctx context.Context, id uint) (*Identity, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return IdentityFromUser(&user), nil
}
