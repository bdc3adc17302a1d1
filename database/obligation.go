package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/staffbooks/staffbooks/model"
)

const totalAllocatedExpr = `
	COALESCE((SELECT SUM(a.amount) FROM allocations a
		WHERE a.obligation_id = o.obligation_id AND a.status = 'active'), 0)`

const obligationColumns = `
	o.id, o.obligation_id, o.kind, o.side, o.owner_party_id,
	COALESCE(o.contract_id, ''), o.period_year, o.period_month, o.total_due,
	COALESCE(o.description, ''), COALESCE(o.category, ''),
	o.is_last_bill, o.is_merged, COALESCE(o.paired_obligation_id, ''), o.created_at`

func scanObligation(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Obligation, error) {
	ob := &model.Obligation{}
	err := scanner.Scan(
		&ob.ID, &ob.ObligationID, &ob.Kind, &ob.Side, &ob.OwnerPartyID,
		&ob.ContractID, &ob.Period.Year, &ob.Period.Month, &ob.TotalDue,
		&ob.Description, &ob.Category,
		&ob.IsLastBill, &ob.IsMerged, &ob.PairedObligationID, &ob.CreatedAt,
		&ob.TotalAllocated,
	)
	if err != nil {
		return nil, err
	}
	return ob, nil
}

// RecordObligation inserts a bill, payroll item, or adjustment.
func (d Datasource) RecordObligation(ctx context.Context, ob *model.Obligation) (*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Saving obligation")
	defer span.End()

	if ob.ObligationID == "" {
		ob.ObligationID = model.GenerateUUIDWithSuffix("obl")
	}
	if ob.CreatedAt.IsZero() {
		ob.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO obligations(
			obligation_id, kind, side, owner_party_id, contract_id,
			period_year, period_month, total_due, description, category,
			is_last_bill, is_merged, paired_obligation_id, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14)`,
		ob.ObligationID, ob.Kind, ob.Side, ob.OwnerPartyID, ob.ContractID,
		ob.Period.Year, ob.Period.Month, ob.TotalDue, ob.Description, ob.Category,
		ob.IsLastBill, ob.IsMerged, ob.PairedObligationID, ob.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "recording obligation")
	}
	return ob, nil
}

// GetObligation retrieves an obligation with its allocated aggregate.
func (d Datasource) GetObligation(ctx context.Context, id string) (*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching obligation")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.obligation_id = $1 AND NOT o.deleted
	`, id)
	ob, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "obligation", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching obligation")
	}
	return ob, nil
}

// GetObligationsByParty is the obligation index lookup: everything a
// party owes or is owed within a period, with remaining-due aggregates.
func (d Datasource) GetObligationsByParty(ctx context.Context, partyID string, period model.Period) ([]*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching obligations by party and period")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.owner_party_id = $1 AND o.period_year = $2 AND o.period_month = $3
			AND NOT o.deleted AND NOT o.is_merged
		ORDER BY o.created_at
	`, partyID, period.Year, period.Month)
	if err != nil {
		return nil, errors.Wrap(err, "fetching obligations by party")
	}
	defer rows.Close()
	return scanObligations(rows)
}

func (d Datasource) GetObligationsByContract(ctx context.Context, contractID string) ([]*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching obligations by contract")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.contract_id = $1 AND NOT o.deleted
		ORDER BY o.period_year, o.period_month, o.created_at
	`, contractID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching obligations by contract")
	}
	defer rows.Close()
	return scanObligations(rows)
}

// GetAdjustmentsByObligation returns the adjustments paired to a bill or
// payroll record via paired_obligation_id.
func (d Datasource) GetAdjustmentsByObligation(ctx context.Context, parentID string) ([]*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching adjustments by parent obligation")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.paired_obligation_id = $1 AND o.kind = 'adjustment' AND NOT o.deleted
		ORDER BY o.created_at
	`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching adjustments")
	}
	defer rows.Close()
	return scanObligations(rows)
}

// GetFirstBillOnOrAfter resolves the merge target: the successor
// contract's chronologically first bill at or after the given period.
func (d Datasource) GetFirstBillOnOrAfter(ctx context.Context, contractID string, period model.Period) (*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Resolving first bill on or after period")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.contract_id = $1 AND o.kind = 'customer_bill' AND NOT o.deleted AND NOT o.is_merged
			AND (o.period_year > $2 OR (o.period_year = $2 AND o.period_month >= $3))
		ORDER BY o.period_year, o.period_month
		LIMIT 1
	`, contractID, period.Year, period.Month)
	ob, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving target bill")
	}
	return ob, nil
}

// GetLatestBillForContract returns the contract's most recent bill.
func (d Datasource) GetLatestBillForContract(ctx context.Context, contractID string) (*model.Obligation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Resolving latest bill for contract")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+obligationColumns+`, `+totalAllocatedExpr+`
		FROM obligations o
		WHERE o.contract_id = $1 AND o.kind = 'customer_bill' AND NOT o.deleted AND NOT o.is_merged
		ORDER BY o.period_year DESC, o.period_month DESC
		LIMIT 1
	`, contractID)
	ob, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "bill for contract", ID: contractID}
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving latest bill")
	}
	return ob, nil
}

func scanObligations(rows *sql.Rows) ([]*model.Obligation, error) {
	var obligations []*model.Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning obligation row")
		}
		obligations = append(obligations, ob)
	}
	return obligations, rows.Err()
}
