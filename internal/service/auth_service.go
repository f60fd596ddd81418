package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	users      ports.UserRepository
	accounts   ports.AccountRepository
	transactor ports.DBTransactor
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	users ports.UserRepository,
	accounts ports.AccountRepository,
	transactor ports.DBTransactor,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		accounts:   accounts,
		transactor: transactor,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
		log:        log,
	}
}

// Signup registers a user and opens their zero-balance account in one atomic scope.
func (s *AuthServiceImpl) Signup(ctx context.Context, req ports.SignupRequest) (*ports.SignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Fast uniqueness check; the unique indexes remain the source of truth.
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUserExists()
	}
	if req.PhoneNumber != nil {
		existing, err := s.users.GetByPhone(ctx, *req.PhoneNumber)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check phone: %w", err))
		}
		if existing != nil {
			return nil, apperror.ErrUserExists()
		}
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		Name:         req.Name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	account := domain.NewAccount(user.ID, now)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.users.Create(ctx, dbTx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, apperror.ErrUserExists()
		}
		return nil, storageError("create user", err)
	}
	if err := s.accounts.Create(ctx, dbTx, account); err != nil {
		return nil, storageError("create account", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("account_id", account.ID.String()).
		Msg("User registered successfully")

	return &ports.SignupResponse{UserID: user.ID, AccountID: account.ID}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*ports.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	account, err := s.accounts.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	// Generate JWT
	token, expiry, err := s.tokenSvc.Generate(user.ID, account.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResponse{
		Token:     token,
		ExpiresAt: expiry,
		UserID:    user.ID,
		AccountID: account.ID,
	}, nil
}

// Me returns the authenticated user with their account.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*domain.User, *domain.Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, nil, apperror.ErrNotFound("User")
	}

	account, err := s.accounts.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, nil, apperror.ErrAccountNotFound()
	}
	return user, account, nil
}
