package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"finledger/internal/domain"
	"finledger/internal/jwtutil"
	"finledger/internal/repository/users_repo"
	"finledger/internal/storage"
	"finledger/internal/util"
)

// ErrIncorrectCredentials is returned for both an unknown email and a wrong
// password, so a caller cannot probe which emails are registered.
var ErrIncorrectCredentials = errors.New("incorrect email or password")

type Session struct {
	User  *domain.User
	Token string
}

type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*Session, error)
}

type authService struct {
	txm    storage.TxManager
	users  users_repo.UserRepository
	tokens *jwtutil.Manager
	logger *zap.Logger
}

func NewAuthService(txm storage.TxManager, users users_repo.UserRepository, tokens *jwtutil.Manager, logger *zap.Logger) AuthService {
	return &authService{txm: txm, users: users, tokens: tokens, logger: logger}
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	var user *domain.User
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		found, err := s.users.GetByEmailTx(ctx, q, email)
		if err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrIncorrectCredentials
			}
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrIncorrectCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session issued", zap.String("user_id", user.ID))
	return &Session{User: user, Token: token}, nil
}
