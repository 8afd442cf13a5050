package services

import (
	"context"
	"fmt"

	"github.com/upb/travel-control-plane/repositories"
)

// WithTransaction executes a function within a database transaction.
// fn receives the transaction's context so repositories join it.
// Automatically commits on success, rolls back on error or panic.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult executes a function within a database transaction and returns a result.
// Automatically commits on success, rolls back on error or panic.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return result, ErrTransactionFailed.Wrap(fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err = fn(tx.Context(), tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, ErrTransactionFailed.Wrap(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return result, nil
}
