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

// ApplyMerge applies a freshly derived merge plan atomically. The source
// bill row is locked first and its merged flag re-checked under the lock,
// so a concurrent or repeated commit fails with AlreadyMergedError and
// changes nothing.
func (d Datasource) ApplyMerge(ctx context.Context, preview *model.MergePreview) error {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Applying bill merge")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "beginning merge transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var merged bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_merged FROM obligations
		WHERE obligation_id = $1 AND NOT deleted
		FOR UPDATE
	`, preview.SourceBill.ObligationID).Scan(&merged)
	if err == sql.ErrNoRows {
		return &model.NotFoundError{Kind: "bill", ID: preview.SourceBill.ObligationID}
	}
	if err != nil {
		return errors.Wrap(err, "locking source bill")
	}
	if merged {
		return &model.AlreadyMergedError{SourceBillID: preview.SourceBill.ObligationID}
	}

	now := time.Now()
	for _, action := range preview.Actions {
		switch action.Kind {
		case model.MergeActionReparentAllocation:
			_, err = tx.ExecContext(ctx, `
				UPDATE allocations SET obligation_id = $2
				WHERE allocation_id = $1 AND status = 'active'
			`, action.Location, action.Target)
			if err != nil {
				return errors.Wrap(err, "re-parenting allocation")
			}
		case model.MergeActionCarryAdjustment:
			// A carry lands on the books of whichever obligation receives
			// it: payroll carries keep the payroll's side and owner.
			target := preview.TargetBill
			if preview.TargetPayroll != nil && action.Target == preview.TargetPayroll.ObligationID {
				target = *preview.TargetPayroll
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO obligations(
					obligation_id, kind, side, owner_party_id, contract_id,
					period_year, period_month, total_due, description, category,
					paired_obligation_id, created_at
				) VALUES ($1, 'adjustment', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				model.GenerateUUIDWithSuffix("obl"), target.Side, target.OwnerPartyID,
				target.ContractID, target.Period.Year, target.Period.Month,
				action.Amount, action.Description, model.AdjustmentMergeCarry,
				action.Target, now,
			)
			if err != nil {
				return errors.Wrap(err, "carrying adjustment")
			}
		case model.MergeActionDeleteAdjustment:
			_, err = tx.ExecContext(ctx, `
				UPDATE obligations SET deleted = TRUE WHERE obligation_id = $1
			`, action.Location)
			if err != nil {
				return errors.Wrap(err, "deleting redundant adjustment")
			}
		}
	}

	mergedIDs := []interface{}{preview.SourceBill.ObligationID}
	markMerged := `UPDATE obligations SET is_merged = TRUE WHERE obligation_id = $1`
	if _, err = tx.ExecContext(ctx, markMerged, mergedIDs...); err != nil {
		return errors.Wrap(err, "marking source bill merged")
	}
	if preview.SourcePayroll != nil {
		if _, err = tx.ExecContext(ctx, markMerged, preview.SourcePayroll.ObligationID); err != nil {
			return errors.Wrap(err, "marking source payroll merged")
		}
	}

	return errors.Wrap(tx.Commit(), "committing merge")
}

// ApplyTransfer moves a residual credit as a pair of adjustments: a
// negative one on the destination bill and its positive mirror on the
// source, so both sides stay explainable from facts alone. The amount is
// the source bill's negative remainder.
func (d Datasource) ApplyTransfer(ctx context.Context, sourceBillID, destBillID string, amount model.Money) (*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Applying balance transfer")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(err, "beginning transfer transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	lockBill := func(billID string) (*model.Obligation, error) {
		row := tx.QueryRowContext(ctx, `
			SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
			FROM obligations o
			WHERE o.obligation_id = $1 AND NOT o.deleted
			FOR UPDATE OF o
		`, billID)
		ob, err := scanObligation(row)
		if err == sql.ErrNoRows {
			return nil, &model.NotFoundError{Kind: "bill", ID: billID}
		}
		if err != nil {
			return nil, errors.Wrap(err, "locking bill row")
		}
		return ob, nil
	}

	src, err := lockBill(sourceBillID)
	if err != nil {
		return nil, err
	}
	dest, err := lockBill(destBillID)
	if err != nil {
		return nil, err
	}

	// Each side of the pair books on its own party's ledger: the credit
	// arrives on the destination's books, the outgoing entry on the
	// source's, so a cross-party transfer stays visible on both.
	now := time.Now()
	destAdj := &model.Obligation{
		ObligationID:       model.GenerateUUIDWithSuffix("obl"),
		Kind:               model.ObligationAdjustment,
		Side:               dest.Side,
		OwnerPartyID:       dest.OwnerPartyID,
		ContractID:         dest.ContractID,
		Period:             dest.Period,
		TotalDue:           amount,
		Description:        "balance transferred in from " + sourceBillID,
		Category:           model.AdjustmentBalanceTransfer,
		PairedObligationID: destBillID,
		CreatedAt:          now,
	}
	srcAdj := &model.Obligation{
		ObligationID:       model.GenerateUUIDWithSuffix("obl"),
		Kind:               model.ObligationAdjustment,
		Side:               src.Side,
		OwnerPartyID:       src.OwnerPartyID,
		ContractID:         src.ContractID,
		Period:             src.Period,
		TotalDue:           amount.Neg(),
		Description:        "balance transferred out to " + destBillID,
		Category:           model.AdjustmentBalanceTransfer,
		PairedObligationID: sourceBillID,
		CreatedAt:          now,
	}
	for _, adj := range []*model.Obligation{destAdj, srcAdj} {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO obligations(
				obligation_id, kind, side, owner_party_id, contract_id,
				period_year, period_month, total_due, description, category,
				paired_obligation_id, created_at
			) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)`,
			adj.ObligationID, adj.Kind, adj.Side, adj.OwnerPartyID, adj.ContractID,
			adj.Period.Year, adj.Period.Month, adj.TotalDue, adj.Description,
			adj.Category, adj.PairedObligationID, adj.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting transfer adjustment")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing transfer")
	}
	return destAdj, nil
}
