package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffbooks/staffbooks/model"
)

func TestRecordObligation(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("INSERT INTO obligations").
		WithArgs(
			sqlmock.AnyArg(), "customer_bill", "receivable", "pty_1", "ctr_1",
			2025, 6, "1500.00", "", "", false, false, "", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ob, err := ds.RecordObligation(context.Background(), &model.Obligation{
		Kind:         model.ObligationCustomerBill,
		Side:         model.SideReceivable,
		OwnerPartyID: "pty_1",
		ContractID:   "ctr_1",
		Period:       model.Period{Year: 2025, Month: 6},
		TotalDue:     model.MustMoney("1500.00"),
	})
	require.NoError(t, err)
	assert.Contains(t, ob.ObligationID, "obl_")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetObligationNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM obligations o").
		WithArgs("obl_missing").
		WillReturnRows(sqlmock.NewRows(obligationTestColumns))

	_, err := ds.GetObligation(context.Background(), "obl_missing")
	assert.IsType(t, &model.NotFoundError{}, err)
}

func TestGetObligationsByPartyExcludesMergedAndDeleted(t *testing.T) {
	ds, mock := newTestDatasource(t)

	// The WHERE clause does the filtering; the test pins the arguments.
	mock.ExpectQuery("SELECT (.+) FROM obligations o").
		WithArgs("pty_1", 2025, 6).
		WillReturnRows(obligationRow("obl_1", "customer_bill", "1500.00", "400.00"))

	obligations, err := ds.GetObligationsByParty(context.Background(), "pty_1", model.Period{Year: 2025, Month: 6})
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.True(t, obligations[0].RemainingDue().Equal(model.MustMoney("1100.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFirstBillOnOrAfterPropagatesNoRows(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM obligations o").
		WithArgs("ctr_2", 2025, 6).
		WillReturnRows(sqlmock.NewRows(obligationTestColumns))

	_, err := ds.GetFirstBillOnOrAfter(context.Background(), "ctr_2", model.Period{Year: 2025, Month: 6})
	// Raw sentinel; the service maps it to NoTargetBillError with context.
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestGetLatestBillForContract(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM obligations o").
		WithArgs("ctr_9").
		WillReturnRows(obligationRow("obl_latest", "customer_bill", "1500.00", "0"))

	bill, err := ds.GetLatestBillForContract(context.Background(), "ctr_9")
	require.NoError(t, err)
	assert.Equal(t, "obl_latest", bill.ObligationID)

	mock.ExpectQuery("SELECT (.+) FROM obligations o").
		WithArgs("ctr_empty").
		WillReturnRows(sqlmock.NewRows(obligationTestColumns))
	_, err = ds.GetLatestBillForContract(context.Background(), "ctr_empty")
	assert.IsType(t, &model.NotFoundError{}, err)
}
