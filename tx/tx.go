// Package tx provides a driver agnostic transaction abstraction used by the
// SQL namespace repositories to apply multi-statement changes atomically.
package tx

import (
	"context"
	"fmt"
)

// Txer begins transactions.
type Txer interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction that must be either committed or rolled back.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Handle is intended for deferred execution to correctly handle a transaction if
// a failure occurs. Arg `err` must a pointer to the error returned by the caller.
func Handle(ctx context.Context, tx Tx, err *error) {
	if r := recover(); r != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			panic(fmt.Errorf("panic: %v; failed to rollback transaction: %w", r, rErr))
		}
		panic(r)
	}

	if err != nil {
		baseErr := *err
		if baseErr != nil {
			if rErr := tx.Rollback(ctx); rErr != nil {
				*err = fmt.Errorf("%w; failed to rollback transaction: %w", baseErr, rErr)
			}
			return
		}
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		*err = fmt.Errorf("failed to commit transaction: %w", cErr)
	}
}

// Run begins a transaction, calls fn and commits if fn succeeds. The
// transaction is rolled back if fn returns an error or panics.
func Run(ctx context.Context, txer Txer, fn func(ctx context.Context, tx Tx) error) (err error) {
	txn, err := txer.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer Handle(ctx, txn, &err)
	return fn(ctx, txn)
}
