package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffbooks/staffbooks/model"
)

func TestRecordAlias(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("INSERT INTO payer_aliases").
		WithArgs(sqlmock.AnyArg(), "Smith Robert", "pty_1", "ctr_1", "paid by father", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alias := &model.PayerAlias{
		PayerName:  "Smith Robert",
		PartyID:    "pty_1",
		ContractID: "ctr_1",
		Notes:      "paid by father",
	}
	require.NoError(t, ds.RecordAlias(context.Background(), alias))
	assert.Contains(t, alias.AliasID, "als_")
}

func TestGetAliasByName(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM payer_aliases").
		WithArgs("Smith Robert").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "alias_id", "payer_name", "party_id", "contract_id", "notes", "created_at",
		}).AddRow(1, "als_1", "Smith Robert", "pty_1", "", "", time.Now()))

	alias, err := ds.GetAliasByName(context.Background(), "Smith Robert")
	require.NoError(t, err)
	assert.Equal(t, "pty_1", alias.PartyID)

	mock.ExpectQuery("SELECT (.+) FROM payer_aliases").
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "alias_id", "payer_name", "party_id", "contract_id", "notes", "created_at",
		}))
	_, err = ds.GetAliasByName(context.Background(), "Nobody")
	assert.IsType(t, &model.NotFoundError{}, err)
}

func TestDeleteAliasByName(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("DELETE FROM payer_aliases").
		WithArgs("Smith Robert").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.DeleteAliasByName(context.Background(), "Smith Robert"))

	mock.ExpectExec("DELETE FROM payer_aliases").
		WithArgs("Nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.IsType(t, &model.NotFoundError{}, ds.DeleteAliasByName(context.Background(), "Nobody"))
}

var allocationTestColumns = []string{
	"allocation_id", "transaction_id", "obligation_id", "obligation_kind",
	"amount", "status", "matched_alias", "created_at",
}

func TestDeleteAliasCascade(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE allocations").
		WithArgs("Smith Robert").
		WillReturnRows(sqlmock.NewRows(allocationTestColumns).
			AddRow("alo_1", "txn_1", "obl_1", "customer_bill", "400.00", "reversed", "Smith Robert", time.Now()).
			AddRow("alo_2", "txn_2", "obl_1", "customer_bill", "100.00", "reversed", "Smith Robert", time.Now()))
	mock.ExpectExec("DELETE FROM payer_aliases").
		WithArgs("Smith Robert").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reversed, err := ds.DeleteAliasCascade(context.Background(), "Smith Robert")
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assert.Equal(t, model.AllocationReversed, reversed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAliasCascadeMissingAliasRollsBack(t *testing.T) {
	ds, mock := newTestDatasource(t)

	// The reversals must not survive when the alias row is gone.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE allocations").
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows(allocationTestColumns))
	mock.ExpectExec("DELETE FROM payer_aliases").
		WithArgs("Nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ds.DeleteAliasCascade(context.Background(), "Nobody")
	assert.IsType(t, &model.NotFoundError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
