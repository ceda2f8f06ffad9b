package bank

import (
	"context"
	"time"

	"github.com/goliatone/go-bankcache/cacheaside"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/internal/keylock"
	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/persistence/bunstore"
	"github.com/goliatone/go-bankcache/result"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ErrInsufficientFunds is the message of a withdrawal larger than the balance.
const ErrInsufficientFunds = "insufficient funds"

// Ledger moves money in and out of accounts. Each movement writes a transfer
// row and the new balance in one transaction.
type Ledger struct {
	db        *bun.DB
	accounts  *cacheaside.Service[domain.Account]
	transfers *cacheaside.Service[domain.Transfer]
	log       logging.Logger
	now       func() time.Time

	// serializes movements per account so balance reads are not stale
	locks *keylock.Table[int]
}

func newLedger(db *bun.DB, accounts *cacheaside.Service[domain.Account], transfers *cacheaside.Service[domain.Transfer], log logging.Logger) *Ledger {
	return &Ledger{
		db:        db,
		accounts:  accounts,
		transfers: transfers,
		log:       logging.With(log, logging.Fields{"component": "ledger"}),
		now:       time.Now,
		locks:     keylock.New[int](),
	}
}

// Deposit adds amount to the account balance.
func (l *Ledger) Deposit(ctx context.Context, accountID int, amount decimal.Decimal) result.Outcome[domain.Account] {
	if !amount.IsPositive() {
		return result.Failure[domain.Account](result.KindValidation, "amount must be greater than zero")
	}
	return l.move(ctx, "deposit", accountID, amount)
}

// Withdraw takes amount from the account balance. The balance never goes
// below zero.
func (l *Ledger) Withdraw(ctx context.Context, accountID int, amount decimal.Decimal) result.Outcome[domain.Account] {
	if !amount.IsPositive() {
		return result.Failure[domain.Account](result.KindValidation, "amount must be greater than zero")
	}
	return l.move(ctx, "withdraw", accountID, amount.Neg())
}

func (l *Ledger) move(ctx context.Context, op string, accountID int, delta decimal.Decimal) result.Outcome[domain.Account] {
	release, err := l.locks.Acquire(ctx, accountID, 0)
	if err != nil {
		return result.FromError[domain.Account](result.KindUnexpected, err)
	}
	defer release()

	uow := bunstore.NewUnitOfWork(l.db)
	accounts := bunstore.NewRepository[domain.Account](l.db, uow)
	transfers := bunstore.NewRepository[domain.Transfer](l.db, uow)

	account, found, err := accounts.GetByID(ctx, accountID)
	if err != nil {
		return result.FromError[domain.Account](result.KindDataAccess, err)
	}
	if !found {
		return result.Failure[domain.Account](result.KindNotFound,
			(&persistence.NotFoundError{Entity: "account", ID: accountID}).Error())
	}

	account.Balance = account.Balance.Add(delta)
	if account.Balance.IsNegative() {
		return result.Failure[domain.Account](result.KindValidation, ErrInsufficientFunds)
	}

	transfer := &domain.Transfer{Amount: delta, Date: l.now().UTC(), AccountID: accountID}
	if _, err := transfers.Add(ctx, transfer); err != nil {
		return result.FromError[domain.Account](result.KindDataAccess, err)
	}
	if _, err := accounts.Update(ctx, accountID, account); err != nil {
		return result.FromError[domain.Account](result.KindDataAccess, err)
	}
	if _, err := uow.Complete(ctx); err != nil {
		l.log.Error(op+" failed", logging.Fields{"account_id": accountID, "error": err})
		return result.FromError[domain.Account](result.KindDataAccess, err)
	}

	l.accounts.Invalidate(ctx, accountID)
	l.transfers.Invalidate(ctx, transfer.TransferID)
	l.log.Info(op+" committed", logging.Fields{
		"account_id":  accountID,
		"transfer_id": transfer.TransferID,
		"amount":      delta.String(),
		"balance":     account.Balance.String(),
	})
	return result.Success(account)
}
