package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/staffbooks/staffbooks/model"
)

// Shared aggregate expression: a transaction's allocated amount is the sum
// of its active allocations, never a stored column.
const allocatedAmountExpr = `
	COALESCE((SELECT SUM(a.amount) FROM allocations a
		WHERE a.transaction_id = t.transaction_id AND a.status = 'active'), 0)`

// RecordBankTransaction inserts an imported bank transaction. The caller
// is expected to have deduplicated by external reference first; a unique
// violation is still surfaced as an error rather than swallowed.
func (d Datasource) RecordBankTransaction(ctx context.Context, txn *model.BankTransaction) (*model.BankTransaction, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Saving bank transaction")
	defer span.End()

	if txn.TransactionID == "" {
		txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO bank_transactions(
			transaction_id, direction, amount, payer_name, transaction_time,
			external_reference, summary, ignored, ignore_remark, permanent_ignore, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		txn.TransactionID, txn.Direction, txn.Amount, txn.PayerName, txn.TransactionTime,
		txn.ExternalReference, txn.Summary, txn.Ignored, txn.IgnoreRemark, txn.PermanentIgnore, txn.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "recording bank transaction")
	}
	return txn, nil
}

// GetBankTransaction retrieves a transaction together with its derived
// allocated amount.
func (d Datasource) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching bank transaction")
	defer span.End()

	txn := &model.BankTransaction{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT t.id, t.transaction_id, t.direction, t.amount, t.payer_name,
			t.transaction_time, t.external_reference, t.summary, t.ignored,
			COALESCE(t.ignore_remark, ''), t.permanent_ignore, t.created_at,
			`+allocatedAmountExpr+`
		FROM bank_transactions t
		WHERE t.transaction_id = $1
	`, id).Scan(
		&txn.ID, &txn.TransactionID, &txn.Direction, &txn.Amount, &txn.PayerName,
		&txn.TransactionTime, &txn.ExternalReference, &txn.Summary, &txn.Ignored,
		&txn.IgnoreRemark, &txn.PermanentIgnore, &txn.CreatedAt,
		&txn.AllocatedAmount,
	)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "transaction", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching bank transaction")
	}
	return txn, nil
}

// TransactionExistsByRef checks the bank-provided dedup key.
func (d Datasource) TransactionExistsByRef(ctx context.Context, externalReference string) (bool, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Checking transaction reference")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bank_transactions WHERE external_reference = $1)`,
		externalReference,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "checking transaction reference")
	}
	return exists, nil
}

// GetTransactionsByPeriod returns every transaction whose transaction time
// falls inside the period, each with its allocated aggregate.
func (d Datasource) GetTransactionsByPeriod(ctx context.Context, period model.Period) ([]*model.BankTransaction, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching transactions by period")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT t.id, t.transaction_id, t.direction, t.amount, t.payer_name,
			t.transaction_time, t.external_reference, t.summary, t.ignored,
			COALESCE(t.ignore_remark, ''), t.permanent_ignore, t.created_at,
			`+allocatedAmountExpr+`
		FROM bank_transactions t
		WHERE t.transaction_time >= $1 AND t.transaction_time < $2
		ORDER BY t.transaction_time
	`, period.Start(), period.Next().Start())
	if err != nil {
		return nil, errors.Wrap(err, "fetching transactions by period")
	}
	defer rows.Close()

	var transactions []*model.BankTransaction
	for rows.Next() {
		txn := &model.BankTransaction{}
		err = rows.Scan(
			&txn.ID, &txn.TransactionID, &txn.Direction, &txn.Amount, &txn.PayerName,
			&txn.TransactionTime, &txn.ExternalReference, &txn.Summary, &txn.Ignored,
			&txn.IgnoreRemark, &txn.PermanentIgnore, &txn.CreatedAt,
			&txn.AllocatedAmount,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning transaction row")
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// UpdateIgnoreState flips the ignore flag. Unignoring clears the remark.
func (d Datasource) UpdateIgnoreState(ctx context.Context, id string, ignored bool, remark string, permanent bool) error {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Updating ignore state")
	defer span.End()

	res, err := d.Conn.ExecContext(ctx, `
		UPDATE bank_transactions
		SET ignored = $2, ignore_remark = $3, permanent_ignore = $4
		WHERE transaction_id = $1
	`, id, ignored, remark, permanent)
	if err != nil {
		return errors.Wrap(err, "updating ignore state")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &model.NotFoundError{Kind: "transaction", ID: id}
	}
	return nil
}
