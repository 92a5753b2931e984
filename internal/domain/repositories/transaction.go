package repositories

import "context"

// TxFn runs with a transaction bound to ctx; repository calls made with
// that ctx inside fn share the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager scopes multi-statement writes, chiefly the
// replace-current pair (demote the old current row, insert the new one),
// to a single transaction so no reader ever sees zero or two current
// versions of a document.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
