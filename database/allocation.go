/*
Copyright 2025 Staffbooks Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/staffbooks/staffbooks/model"
)

// lockTransactionRow locks the bank transaction row and returns its amount
// plus the current active-allocation sum, both read under the lock.
func lockTransactionRow(ctx context.Context, tx *sql.Tx, txnID string) (amount, allocated model.Money, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT t.amount, `+allocatedAmountExpr+`
		FROM bank_transactions t
		WHERE t.transaction_id = $1
		FOR UPDATE OF t
	`, txnID).Scan(&amount, &allocated)
	if err == sql.ErrNoRows {
		return amount, allocated, &model.NotFoundError{Kind: "transaction", ID: txnID}
	}
	return amount, allocated, err
}

// AllocateTransaction atomically validates and applies an allocation
// batch. Row locks on the transaction and every target obligation keep
// concurrent allocates serializable; any failure rolls the whole batch
// back, leaving pre-call state intact.
func (d Datasource) AllocateTransaction(ctx context.Context, txnID string, entries []model.AllocationEntry, matchedAlias string) (*model.AllocationBatchResult, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Applying allocation batch")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(err, "beginning allocation transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txnAmount, txnAllocated, err := lockTransactionRow(ctx, tx, txnID)
	if err != nil {
		return nil, err
	}

	requested := model.ZeroMoney()
	for _, entry := range entries {
		requested = requested.Add(entry.Amount)
	}
	remaining := txnAmount.Sub(txnAllocated)
	if requested.GreaterThan(remaining) {
		return nil, &model.OverAllocationError{
			TransactionID: txnID,
			Requested:     requested,
			Remaining:     remaining,
		}
	}

	now := time.Now()
	result := &model.AllocationBatchResult{}
	for _, entry := range entries {
		// Lock the obligation row and read its aggregate under the lock.
		var due, allocated model.Money
		var merged bool
		err = tx.QueryRowContext(ctx, `
			SELECT o.total_due, `+totalAllocatedExpr+`, o.is_merged
			FROM obligations o
			WHERE o.obligation_id = $1 AND NOT o.deleted
			FOR UPDATE OF o
		`, entry.ObligationID).Scan(&due, &allocated, &merged)
		if err == sql.ErrNoRows {
			return nil, &model.NotFoundError{Kind: "obligation", ID: entry.ObligationID}
		}
		if err != nil {
			return nil, errors.Wrap(err, "locking obligation row")
		}
		if merged {
			return nil, &model.ValidationError{Field: "obligation_id", Reason: "obligation has been merged away"}
		}

		alloc := model.Allocation{
			AllocationID:   model.GenerateUUIDWithSuffix("alo"),
			TransactionID:  txnID,
			ObligationID:   entry.ObligationID,
			ObligationKind: entry.ObligationKind,
			Amount:         entry.Amount,
			Status:         model.AllocationActive,
			MatchedAlias:   matchedAlias,
			CreatedAt:      now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO allocations(
				allocation_id, transaction_id, obligation_id, obligation_kind,
				amount, status, matched_alias, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
			alloc.AllocationID, alloc.TransactionID, alloc.ObligationID, alloc.ObligationKind,
			alloc.Amount, alloc.Status, alloc.MatchedAlias, alloc.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting allocation")
		}
		result.Allocations = append(result.Allocations, alloc)

		// Overpayment is permitted but flagged, never rejected.
		if allocated.Add(entry.Amount).GreaterThan(due) {
			result.Overpaid = append(result.Overpaid, entry.ObligationID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing allocation batch")
	}

	// Re-read aggregates outside the transaction for the response.
	txn, err := d.GetBankTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	result.Transaction = *txn
	for _, entry := range entries {
		ob, err := d.GetObligation(ctx, entry.ObligationID)
		if err != nil {
			return nil, err
		}
		result.Obligations = append(result.Obligations, *ob)
	}
	return result, nil
}

// ReverseAllocations marks every active allocation of a transaction as
// reversed. Returns NothingToCancelError when there are none. Rows are
// never deleted; allocation history is append-only.
func (d Datasource) ReverseAllocations(ctx context.Context, txnID string) ([]model.Allocation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Reversing allocations")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(err, "beginning reversal transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, _, err := lockTransactionRow(ctx, tx, txnID); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE allocations
		SET status = 'reversed'
		WHERE transaction_id = $1 AND status = 'active'
		RETURNING allocation_id, transaction_id, obligation_id, obligation_kind,
			amount, status, COALESCE(matched_alias, ''), created_at
	`, txnID)
	if err != nil {
		return nil, errors.Wrap(err, "reversing allocations")
	}
	reversed, err := scanAllocations(rows)
	if err != nil {
		return nil, err
	}
	if len(reversed) == 0 {
		return nil, &model.NothingToCancelError{TransactionID: txnID}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing reversal")
	}
	return reversed, nil
}

func (d Datasource) GetAllocationsByTransaction(ctx context.Context, txnID string) ([]model.Allocation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching allocations by transaction")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT allocation_id, transaction_id, obligation_id, obligation_kind,
			amount, status, COALESCE(matched_alias, ''), created_at
		FROM allocations
		WHERE transaction_id = $1
		ORDER BY created_at
	`, txnID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching allocations by transaction")
	}
	return scanAllocations(rows)
}

func (d Datasource) GetActiveAllocationsByObligation(ctx context.Context, obligationID string) ([]model.Allocation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching active allocations by obligation")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT allocation_id, transaction_id, obligation_id, obligation_kind,
			amount, status, COALESCE(matched_alias, ''), created_at
		FROM allocations
		WHERE obligation_id = $1 AND status = 'active'
		ORDER BY created_at
	`, obligationID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching allocations by obligation")
	}
	return scanAllocations(rows)
}

// GetActiveAllocationsByAlias finds the active allocations whose payer
// resolution went through the named alias.
func (d Datasource) GetActiveAllocationsByAlias(ctx context.Context, payerName string) ([]model.Allocation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching active allocations by alias")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT allocation_id, transaction_id, obligation_id, obligation_kind,
			amount, status, COALESCE(matched_alias, ''), created_at
		FROM allocations
		WHERE matched_alias = $1 AND status = 'active'
		ORDER BY created_at
	`, payerName)
	if err != nil {
		return nil, errors.Wrap(err, "fetching allocations by alias")
	}
	return scanAllocations(rows)
}

func scanAllocations(rows *sql.Rows) ([]model.Allocation, error) {
	defer rows.Close()
	var allocations []model.Allocation
	for rows.Next() {
		var a model.Allocation
		err := rows.Scan(
			&a.AllocationID, &a.TransactionID, &a.ObligationID, &a.ObligationKind,
			&a.Amount, &a.Status, &a.MatchedAlias, &a.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning allocation row")
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}
