package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/staffbooks/staffbooks/model"
)

// RecordAlias persists a payer alias mapping.
func (d Datasource) RecordAlias(ctx context.Context, a *model.PayerAlias) error {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Saving payer alias")
	defer span.End()

	if a.AliasID == "" {
		a.AliasID = model.GenerateUUIDWithSuffix("als")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO payer_aliases(alias_id, payer_name, party_id, contract_id, notes, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		a.AliasID, a.PayerName, a.PartyID, a.ContractID, a.Notes, a.CreatedAt,
	)
	return errors.Wrap(err, "recording payer alias")
}

// GetAliasByName looks up an active alias by the raw payer name.
func (d Datasource) GetAliasByName(ctx context.Context, payerName string) (*model.PayerAlias, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching payer alias")
	defer span.End()

	a := &model.PayerAlias{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, alias_id, payer_name, party_id, COALESCE(contract_id, ''), COALESCE(notes, ''), created_at
		FROM payer_aliases
		WHERE payer_name = $1
	`, payerName).Scan(&a.ID, &a.AliasID, &a.PayerName, &a.PartyID, &a.ContractID, &a.Notes, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "alias", ID: payerName}
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching payer alias")
	}
	return a, nil
}

// DeleteAliasByName hard-deletes an alias. Dependency checks happen in
// the service layer before this is called.
func (d Datasource) DeleteAliasByName(ctx context.Context, payerName string) error {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Deleting payer alias")
	defer span.End()

	res, err := d.Conn.ExecContext(ctx,
		`DELETE FROM payer_aliases WHERE payer_name = $1`, payerName)
	if err != nil {
		return errors.Wrap(err, "deleting payer alias")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &model.NotFoundError{Kind: "alias", ID: payerName}
	}
	return nil
}

// DeleteAliasCascade reverses every active allocation that was settled
// through the alias and deletes the alias, all in one transaction: a
// failure on either step leaves both untouched.
func (d Datasource) DeleteAliasCascade(ctx context.Context, payerName string) ([]model.Allocation, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Cascading payer alias deletion")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(err, "beginning alias cascade transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		UPDATE allocations
		SET status = 'reversed'
		WHERE matched_alias = $1 AND status = 'active'
		RETURNING allocation_id, transaction_id, obligation_id, obligation_kind,
			amount, status, COALESCE(matched_alias, ''), created_at
	`, payerName)
	if err != nil {
		return nil, errors.Wrap(err, "reversing alias-dependent allocations")
	}
	reversed, err := scanAllocations(rows)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM payer_aliases WHERE payer_name = $1`, payerName)
	if err != nil {
		return nil, errors.Wrap(err, "deleting payer alias")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &model.NotFoundError{Kind: "alias", ID: payerName}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing alias cascade")
	}
	return reversed, nil
}
