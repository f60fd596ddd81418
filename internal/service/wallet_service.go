package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	depositCachePrefix    = "deposit:"
)

// WalletServiceImpl implements ports.WalletService.
// It is the only component that appends ledger entries or moves balances.
type WalletServiceImpl struct {
	accounts   ports.AccountRepository
	ledger     ports.LedgerRepository
	transactor ports.DBTransactor
	idempCache ports.IdempotencyCache
	metrics    ports.LedgerMetrics
	idempTTL   time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl. idempCache and metrics may be nil.
func NewWalletService(
	accounts ports.AccountRepository,
	ledger ports.LedgerRepository,
	transactor ports.DBTransactor,
	idempCache ports.IdempotencyCache,
	metrics ports.LedgerMetrics,
	idempTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	if metrics == nil {
		metrics = ports.NoOpMetrics{}
	}
	if idempTTL <= 0 {
		idempTTL = defaultIdempotencyTTL
	}
	return &WalletServiceImpl{
		accounts:   accounts,
		ledger:     ledger,
		transactor: transactor,
		idempCache: idempCache,
		metrics:    metrics,
		idempTTL:   idempTTL,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Transfer moves amount from sender to receiver as one debit and one credit entry.
//
// Flow:
//  1. Validate amount and distinct accounts (no scope opened)
//  2. BEGIN, lock both rows in account id order
//  3. Check existence and funds on the locked rows
//  4. Append debit TRF-<uuid> and credit TRF-<uuid>-CREDIT
//  5. Relative balance updates, COMMIT
func (s *WalletServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (res *ports.TransferResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordTransfer(outcomeOf(err, false), time.Since(start))
	}()

	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SenderAccountID == req.ReceiverAccountID {
		return nil, apperror.ErrSelfTransfer()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sender, receiver, err := s.lockPair(ctx, dbTx, req.SenderAccountID, req.ReceiverAccountID)
	if err != nil {
		return nil, err
	}
	if !sender.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}
	if receiver.Balance > math.MaxInt64-req.Amount {
		return nil, apperror.Validation("amount exceeds receiver balance limit")
	}

	ref := domain.NewTransferReference()
	now := s.now()
	debit := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    sender.ID,
		Kind:         domain.EntryKindDebit,
		Amount:       req.Amount,
		Reference:    ref,
		BalanceAfter: sender.Balance - req.Amount,
		CreatedAt:    now,
	}
	credit := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    receiver.ID,
		Kind:         domain.EntryKindCredit,
		Amount:       req.Amount,
		Reference:    domain.CreditReference(ref),
		BalanceAfter: receiver.Balance + req.Amount,
		CreatedAt:    now,
	}

	if err := s.ledger.Append(ctx, dbTx, debit); err != nil {
		return nil, storageError("append debit", err)
	}
	if err := s.ledger.Append(ctx, dbTx, credit); err != nil {
		return nil, storageError("append credit", err)
	}

	newSenderBalance, err := s.accounts.AdjustBalance(ctx, dbTx, sender.ID, -req.Amount)
	if err != nil {
		return nil, storageError("debit sender", err)
	}
	if _, err := s.accounts.AdjustBalance(ctx, dbTx, receiver.ID, req.Amount); err != nil {
		return nil, storageError("credit receiver", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	s.log.Info().
		Str("reference", ref).
		Str("sender_account_id", sender.ID.String()).
		Str("receiver_account_id", receiver.ID.String()).
		Int64("amount", req.Amount).
		Msg("Transfer committed successfully")

	return &ports.TransferResult{Reference: ref, NewSenderBalance: newSenderBalance}, nil
}

// lockPair locks both accounts in ascending id byte order, whichever is the sender,
// so opposite-direction transfers cannot deadlock.
func (s *WalletServiceImpl) lockPair(ctx context.Context, tx pgx.Tx, senderID, receiverID uuid.UUID) (*domain.Account, *domain.Account, error) {
	first, second := senderID, receiverID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range [2]uuid.UUID{first, second} {
		acct, err := s.accounts.LockForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, storageError("lock account", err)
		}
		if acct == nil {
			return nil, nil, apperror.ErrAccountNotFound()
		}
		locked[id] = acct
	}
	return locked[senderID], locked[receiverID], nil
}

// Deposit credits an account once per reference.
//
// Flow:
//  1. Validate amount and reference
//  2. Redis fast path (best effort)
//  3. BEGIN, look the reference up inside the scope: replay or conflict
//  4. Lock the account, append the credit entry
//  5. Relative balance update, COMMIT, cache the result
func (s *WalletServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (res *ports.DepositResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDeposit(outcomeOf(err, res != nil && res.Replayed), res != nil && res.Replayed, time.Since(start))
	}()

	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reference == "" {
		return nil, apperror.Validation("reference is required")
	}

	cacheKey := depositCachePrefix + req.Reference
	if cached := s.cachedDeposit(ctx, cacheKey); cached != nil {
		if cached.AccountID != req.AccountID || cached.Amount != req.Amount {
			return nil, apperror.ErrDuplicateReference()
		}
		cached.Replayed = true
		return cached, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	existing, err := s.ledger.FindByReferenceTx(ctx, dbTx, req.Reference)
	if err != nil {
		return nil, storageError("find reference", err)
	}
	if existing != nil {
		return s.replay(ctx, existing, req)
	}

	acct, err := s.accounts.LockForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, storageError("lock account", err)
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if acct.Balance > math.MaxInt64-req.Amount {
		return nil, apperror.Validation("amount exceeds balance limit")
	}

	entry := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		Kind:         domain.EntryKindCredit,
		Amount:       req.Amount,
		Reference:    req.Reference,
		BalanceAfter: acct.Balance + req.Amount,
		CreatedAt:    s.now(),
	}
	if err := s.ledger.Append(ctx, dbTx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Lost the race to a concurrent deposit with the same reference.
			_ = dbTx.Rollback(ctx)
			return s.resolveConcurrentDeposit(ctx, req)
		}
		return nil, storageError("append credit", err)
	}

	newBalance, err := s.accounts.AdjustBalance(ctx, dbTx, acct.ID, req.Amount)
	if err != nil {
		return nil, storageError("credit account", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	result := &ports.DepositResult{
		Reference:  req.Reference,
		AccountID:  acct.ID,
		Amount:     req.Amount,
		NewBalance: newBalance,
	}
	s.cacheDeposit(ctx, cacheKey, result)

	s.log.Info().
		Str("reference", req.Reference).
		Str("account_id", acct.ID.String()).
		Int64("amount", req.Amount).
		Msg("Deposit committed successfully")

	return result, nil
}

// replay returns the effect recorded by an earlier deposit, or a conflict when the
// reference was used for a different movement.
func (s *WalletServiceImpl) replay(ctx context.Context, existing *domain.Transaction, req ports.DepositRequest) (*ports.DepositResult, error) {
	if existing.Kind != domain.EntryKindCredit ||
		existing.AccountID != req.AccountID ||
		existing.Amount != req.Amount {
		return nil, apperror.ErrDuplicateReference()
	}

	result := &ports.DepositResult{
		Reference:  existing.Reference,
		AccountID:  existing.AccountID,
		Amount:     existing.Amount,
		NewBalance: existing.BalanceAfter,
	}
	s.cacheDeposit(ctx, depositCachePrefix+existing.Reference, result)

	s.log.Info().
		Str("reference", existing.Reference).
		Msg("Deposit replayed from ledger")

	replayed := *result
	replayed.Replayed = true
	return &replayed, nil
}

func (s *WalletServiceImpl) resolveConcurrentDeposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
	existing, err := s.ledger.FindByReference(ctx, req.Reference)
	if err != nil {
		return nil, storageError("find reference", err)
	}
	if existing == nil {
		// The competing scope holds the reference but has not committed yet.
		return nil, apperror.ErrLockTimeout(fmt.Errorf("reference %q: %w", req.Reference, domain.ErrDuplicateReference))
	}
	return s.replay(ctx, existing, req)
}

func (s *WalletServiceImpl) cachedDeposit(ctx context.Context, key string) *ports.DepositResult {
	if s.idempCache == nil {
		return nil
	}
	data, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Redis idempotency check failed, falling through to DB")
		return nil
	}
	if data == nil {
		return nil
	}
	var cached ports.DepositResult
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Corrupt idempotency entry, falling through to DB")
		return nil
	}
	return &cached
}

func (s *WalletServiceImpl) cacheDeposit(ctx context.Context, key string, result *ports.DepositResult) {
	if s.idempCache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache deposit result")
	}
}

// GetBalance reads the cached balance without taking any lock.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (*ports.BalanceResult, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, storageError("get account", err)
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return &ports.BalanceResult{AccountID: acct.ID, BalanceMinorUnits: acct.Balance}, nil
}

// storageError maps repository sentinels onto application errors.
func storageError(op string, err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, domain.ErrLockTimeout):
		return apperror.ErrLockTimeout(fmt.Errorf("%s: %w", op, err))
	case errors.Is(err, domain.ErrNegativeBalance):
		return apperror.ErrInsufficientFunds()
	default:
		return apperror.ErrDatabaseError(fmt.Errorf("%s: %w", op, err))
	}
}

// outcomeOf classifies a call result for metrics.
func outcomeOf(err error, replayed bool) string {
	if err == nil {
		if replayed {
			return ports.OutcomeReplayed
		}
		return ports.OutcomeCommitted
	}
	switch {
	case apperror.HasCode(err, apperror.CodeLockTimeout):
		return ports.OutcomeBusy
	case apperror.IsRetryable(err):
		return ports.OutcomeFailed
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
		return ports.OutcomeRejected
	}
	return ports.OutcomeFailed
}
