package service

import (
	"context"
	"fmt"
	"math"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	accounts ports.AccountRepository
	ledger   ports.LedgerRepository
	log      zerolog.Logger
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	accounts ports.AccountRepository,
	ledger ports.LedgerRepository,
	log zerolog.Logger,
) ports.ReportingService {
	return &reportingService{
		accounts: accounts,
		ledger:   ledger,
		log:      log,
	}
}

// History returns a page of ledger entries for the account, newest first.
// page is 1-based; pageSize is clamped to [1, 100] with 20 as the default.
func (s *reportingService) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	// Pages past math.MaxInt entries are empty anyway; saturate instead of overflowing.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}

	entries, total, err := s.ledger.ListByAccount(ctx, accountID, pageSize, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// Reconcile compares the account's cached balance with the sum of its ledger.
// Both reads are unlocked, so a movement committing in between shows as drift.
func (s *reportingService) Reconcile(ctx context.Context, accountID uuid.UUID) (*ports.Reconciliation, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	sum, err := s.ledger.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum entries: %w", err))
	}

	rec := &ports.Reconciliation{
		AccountID:     accountID,
		CachedBalance: acct.Balance,
		LedgerBalance: sum.Net(),
		Entries:       sum.Entries,
	}
	if rec.Drift() != 0 {
		s.log.Error().
			Str("account_id", accountID.String()).
			Int64("cached", rec.CachedBalance).
			Int64("ledger", rec.LedgerBalance).
			Msg("Balance drift detected")
	}
	return rec, nil
}
