package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the ledger reacts to.
const (
	codeUniqueViolation   = "23505"
	codeCheckViolation    = "23514"
	codeLockNotAvailable  = "55P03"
	codeDeadlockDetected  = "40P01"
	constraintNonNegative = "accounts_balance_non_negative"
)

// translate maps driver errors onto domain sentinels, keeping the original
// error in the chain. onUnique is returned for unique violations.
func translate(op string, err error, onUnique error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if onUnique != nil {
				return fmt.Errorf("%s: %w: %w", op, onUnique, err)
			}
		case codeCheckViolation:
			if pgErr.ConstraintName == constraintNonNegative {
				return fmt.Errorf("%s: %w: %w", op, domain.ErrNegativeBalance, err)
			}
		// 57014 (query_canceled) is not contention and falls through.
		case codeLockNotAvailable, codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
