package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"finledger/internal/domain"
	"finledger/internal/repository/users_repo"
	"finledger/internal/storage"
	"finledger/internal/util"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

type userService struct {
	txm    storage.TxManager
	users  users_repo.UserRepository
	logger *zap.Logger
}

func NewUserService(txm storage.TxManager, users users_repo.UserRepository, logger *zap.Logger) UserService {
	return &userService{txm: txm, users: users, logger: logger}
}

func (s *userService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	passwordHash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           util.GenerateUUID(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txm.Do(ctx, func(q domain.Querier) error {
		if err := s.users.CreateTx(ctx, q, user); err != nil {
			if errors.Is(err, users_repo.ErrUserAlreadyExists) {
				return ErrUserAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	var user *domain.User
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		found, err := s.users.GetByIDTx(ctx, q, userID)
		if err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
