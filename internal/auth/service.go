package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	applog "saku/internal/log"
	"saku/internal/models"
)

// Store is the part of the persistent store the credential service needs.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SwapPasswordHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error)
}

// Service registers users and checks their credentials.
type Service struct {
	store  Store
	hasher Hasher
	logger *applog.Logger
	// dummy is verified against when the email is unknown.
	dummy string
}

// NewService creates a credential service. A nil hasher means SHA256Hasher.
func NewService(store Store, hasher Hasher, logger *applog.Logger) (*Service, error) {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	dummy, err := hasher.Hash("saku-unknown-account")
	if err != nil {
		return nil, fmt.Errorf("prepare %s hasher: %w", hasher.Name(), err)
	}
	return &Service{
		store:  store,
		hasher: hasher,
		logger: logger.WithComponent(applog.ComponentAuth),
		dummy:  dummy,
	}, nil
}

// Register creates a user account and returns it.
func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name, err := ValidateName(name)
	if err != nil {
		return models.User{}, err
	}
	email, err = ValidateEmail(email)
	if err != nil {
		return models.User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return models.User{}, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, name, email, digest)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			s.logger.InfoContext(ctx, "registration rejected",
				applog.FieldOperation, applog.OpRegister,
				applog.FieldErrorType, applog.ErrorTypeConflict)
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldUserID, user.ID)
	return *user, nil
}

// Login returns the user whose email and password match. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, models.ErrNotFound) {
		s.hasher.Verify(password, s.dummy)
		s.loginFailed(ctx)
		return models.User{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx)
		return models.User{}, models.ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "user logged in",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUserID, user.ID)
	return *user, nil
}

func (s *Service) loginFailed(ctx context.Context) {
	s.logger.InfoContext(ctx, "login rejected",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldErrorType, applog.ErrorTypeAuth)
}

// ChangePassword replaces the user's password after checking the old one.
// The stored hash is left unchanged on any failure.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return models.ErrWrongOldPassword
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	swapped, err := s.store.SwapPasswordHash(ctx, userID, user.PasswordHash, digest)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !swapped {
		// Changed concurrently since it was read.
		return models.ErrWrongOldPassword
	}

	s.logger.InfoContext(ctx, "password changed",
		applog.FieldOperation, applog.OpPassword,
		applog.FieldUserID, userID)
	return nil
}
