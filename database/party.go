package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/staffbooks/staffbooks/model"
)

func (d Datasource) CreateParty(ctx context.Context, p model.Party) (model.Party, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Saving party")
	defer span.End()

	if p.PartyID == "" {
		p.PartyID = model.GenerateUUIDWithSuffix("pty")
	}
	p.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO parties(party_id, kind, display_name, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.PartyID, p.Kind, p.DisplayName, p.Phone, p.CreatedAt,
	)
	if err != nil {
		return model.Party{}, errors.Wrap(err, "creating party")
	}
	return p, nil
}

func (d Datasource) GetPartyByID(ctx context.Context, id string) (*model.Party, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching party")
	defer span.End()

	p := &model.Party{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, party_id, kind, display_name, COALESCE(phone, ''), created_at
		FROM parties WHERE party_id = $1
	`, id).Scan(&p.ID, &p.PartyID, &p.Kind, &p.DisplayName, &p.Phone, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "party", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching party")
	}
	return p, nil
}

// GetPartiesByExactName does a case-normalized exact match on display
// names. Customers sort first: they are the primary payer population and
// the resolver's tie-break preference.
func (d Datasource) GetPartiesByExactName(ctx context.Context, name string) ([]*model.Party, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Matching parties by exact name")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, party_id, kind, display_name, COALESCE(phone, ''), created_at
		FROM parties
		WHERE LOWER(display_name) = LOWER($1)
		ORDER BY CASE kind WHEN 'customer' THEN 0 ELSE 1 END, created_at
	`, name)
	if err != nil {
		return nil, errors.Wrap(err, "matching parties by name")
	}
	defer rows.Close()
	return scanParties(rows)
}

// SearchPartiesByName returns substring candidates; the service layer
// ranks them by edit distance.
func (d Datasource) SearchPartiesByName(ctx context.Context, query string) ([]*model.Party, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Searching parties")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, party_id, kind, display_name, COALESCE(phone, ''), created_at
		FROM parties
		WHERE display_name ILIKE '%' || $1 || '%'
		ORDER BY display_name
		LIMIT 50
	`, query)
	if err != nil {
		return nil, errors.Wrap(err, "searching parties")
	}
	defer rows.Close()
	return scanParties(rows)
}

func scanParties(rows *sql.Rows) ([]*model.Party, error) {
	var parties []*model.Party
	for rows.Next() {
		p := &model.Party{}
		if err := rows.Scan(&p.ID, &p.PartyID, &p.Kind, &p.DisplayName, &p.Phone, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning party row")
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func (d Datasource) CreateContract(ctx context.Context, c model.Contract) (model.Contract, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Saving contract")
	defer span.End()

	if c.ContractID == "" {
		c.ContractID = model.GenerateUUIDWithSuffix("ctr")
	}
	c.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO contracts(contract_id, customer_party_id, status, start_date, end_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ContractID, c.CustomerPartyID, c.Status, c.StartDate, c.EndDate, c.CreatedAt,
	)
	if err != nil {
		return model.Contract{}, errors.Wrap(err, "creating contract")
	}
	return c, nil
}

func (d Datasource) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	ctx, span := otel.Tracer("reconciliation.db").Start(ctx, "Fetching contract")
	defer span.End()

	c := &model.Contract{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, contract_id, customer_party_id, status, start_date, end_date, created_at
		FROM contracts WHERE contract_id = $1
	`, id).Scan(&c.ID, &c.ContractID, &c.CustomerPartyID, &c.Status, &c.StartDate, &c.EndDate, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "contract", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching contract")
	}
	return c, nil
}
