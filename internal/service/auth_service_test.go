package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc        *AuthServiceImpl
	users      *mocks.MockUserRepository
	accounts   *mocks.MockAccountRepository
	transactor *mocks.MockDBTransactor
	hashSvc    *mocks.MockHashService
	tokenSvc   *mocks.MockTokenService
	ctrl       *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		users:      mocks.NewMockUserRepository(ctrl),
		accounts:   mocks.NewMockAccountRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		hashSvc:    mocks.NewMockHashService(ctrl),
		tokenSvc:   mocks.NewMockTokenService(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewAuthService(d.users, d.accounts, d.transactor, d.hashSvc, d.tokenSvc, zerolog.Nop())
	return d
}

func TestAuthService_Signup_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	phone := "+2348000000000"
	tx := &mockTx{}
	req := ports.SignupRequest{
		Email:       "  Ada@Example.com ",
		Password:    "StrongP@ss123",
		Name:        "Ada",
		PhoneNumber: &phone,
	}

	var createdUser *domain.User
	d.users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(nil, nil)
	d.users.EXPECT().GetByPhone(ctx, phone).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.users.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, u *domain.User) error {
			createdUser = u
			return nil
		})
	d.accounts.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, a *domain.Account) error {
			assert.Equal(t, createdUser.ID, a.UserID)
			assert.Zero(t, a.Balance)
			return nil
		})

	resp, err := d.svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, createdUser.ID, resp.UserID)
	assert.NotEqual(t, uuid.Nil, resp.AccountID)
	assert.Equal(t, "ada@example.com", createdUser.Email)
	assert.Equal(t, "$argon2id$hashed", createdUser.PasswordHash)
	assert.Equal(t, 1, tx.commits)
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.users.EXPECT().GetByEmail(ctx, "taken@example.com").Return(&domain.User{}, nil)

	resp, err := d.svc.Signup(ctx, ports.SignupRequest{Email: "taken@example.com", Password: "pw"})
	assert.Nil(t, resp)
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Signup_DuplicatePhone(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	phone := "080"
	d.users.EXPECT().GetByEmail(ctx, "a@b.co").Return(nil, nil)
	d.users.EXPECT().GetByPhone(ctx, phone).Return(&domain.User{}, nil)

	_, err := d.svc.Signup(ctx, ports.SignupRequest{Email: "a@b.co", Password: "pw", PhoneNumber: &phone})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Signup_RaceOnUniqueIndex(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.users.EXPECT().GetByEmail(ctx, "a@b.co").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("pw").Return("h", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.users.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateUser)

	_, err := d.svc.Signup(ctx, ports.SignupRequest{Email: "a@b.co", Password: "pw"})
	assertAppError(t, err, "AUTH_002")
	assert.Zero(t, tx.commits)
}

func TestAuthService_Signup_AccountCreateFailsRollsBack(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.users.EXPECT().GetByEmail(ctx, "a@b.co").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("pw").Return("h", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.users.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.accounts.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("connection reset"))

	_, err := d.svc.Signup(ctx, ports.SignupRequest{Email: "a@b.co", Password: "pw"})
	assertAppError(t, err, "SYS_001")
	assert.Zero(t, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	accountID := uuid.New()
	expiry := time.Now().Add(24 * time.Hour)

	d.users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(&domain.User{ID: userID, PasswordHash: "$argon2id$hashed"}, nil)
	d.hashSvc.EXPECT().Verify("correct_password", "$argon2id$hashed").Return(true, nil)
	d.accounts.EXPECT().GetByUserID(ctx, userID).Return(&domain.Account{ID: accountID, UserID: userID}, nil)
	d.tokenSvc.EXPECT().Generate(userID, accountID).Return("jwt_token_here", expiry, nil)

	resp, err := d.svc.Login(ctx, "Ada@example.com", "correct_password")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", resp.Token)
	assert.Equal(t, accountID, resp.AccountID)
	assert.Equal(t, expiry, resp.ExpiresAt)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.users.EXPECT().GetByEmail(ctx, "nobody@example.com").Return(nil, nil)

	_, err := d.svc.Login(ctx, "nobody@example.com", "password")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(&domain.User{ID: uuid.New(), PasswordHash: "h"}, nil)
	d.hashSvc.EXPECT().Verify("wrong_password", "h").Return(false, nil)

	_, err := d.svc.Login(ctx, "ada@example.com", "wrong_password")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Me(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	d.users.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, Email: "ada@example.com"}, nil)
	d.accounts.EXPECT().GetByUserID(ctx, userID).Return(&domain.Account{ID: uuid.New(), UserID: userID, Balance: 250}, nil)

	user, account, err := d.svc.Me(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, int64(250), account.Balance)
}

func TestAuthService_Me_UserMissing(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	d.users.EXPECT().GetByID(ctx, userID).Return(nil, nil)

	_, _, err := d.svc.Me(ctx, userID)
	assertAppError(t, err, "WAL_004")
}
