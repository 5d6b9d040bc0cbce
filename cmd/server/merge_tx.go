package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "scolaris/pkg/domain-errors"
	txcontext "scolaris/pkg/platform/tx"
)

// A merge rewrites up to three ladder levels per slave, so the default
// timeout is generous compared to a plain request.
const defaultMergeTxTimeout = 30 * time.Second

// mergeTxRunner runs the merge engine's callback inside one database
// transaction, carried in the context so every store call joins it.
type mergeTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func newMergeTxRunner(db *sql.DB) *mergeTxRunner {
	return &mergeTxRunner{db: db}
}

func (t *mergeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMergeTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
