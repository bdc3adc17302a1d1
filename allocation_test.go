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

package staffbooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/staffbooks/staffbooks/model"
)

func TestAllocateValidatesEntries(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Allocate(ctx, "txn_1", nil, nil)
	assert.IsType(t, &model.ValidationError{}, err)

	_, err = service.Allocate(ctx, "txn_1", []model.AllocationEntry{
		{ObligationID: "obl_1", Amount: model.MustMoney("-5")},
	}, nil)
	assert.IsType(t, &model.ValidationError{}, err)

	_, err = service.Allocate(ctx, "txn_1", []model.AllocationEntry{
		{Amount: model.MustMoney("10")},
	}, nil)
	assert.IsType(t, &model.ValidationError{}, err)
}

func TestAllocateHappyPath(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()

	txn := testTransaction("txn_1", "1500.00", "0")
	entries := []model.AllocationEntry{
		{ObligationID: "obl_1", ObligationKind: model.ObligationCustomerBill, Amount: model.MustMoney("1500.00")},
	}

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Jane Smith").
		Return([]*model.Party{{PartyID: "pty_1", Kind: model.PartyCustomer}}, nil)
	ds.On("AllocateTransaction", mock.Anything, "txn_1", entries, "").
		Return(&model.AllocationBatchResult{
			Transaction: *testTransaction("txn_1", "1500.00", "1500.00"),
			Allocations: []model.Allocation{{AllocationID: "alo_1", ObligationID: "obl_1"}},
		}, nil)

	result, err := service.Allocate(ctx, "txn_1", entries, nil)
	require.NoError(t, err)
	assert.True(t, result.Transaction.Remaining().IsZero())
	ds.AssertExpectations(t)
}

func TestAllocateCarriesMatchedAlias(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()

	txn := testTransaction("txn_1", "1500.00", "0")
	txn.PayerName = "Smith Robert"
	entries := []model.AllocationEntry{
		{ObligationID: "obl_1", Amount: model.MustMoney("1500.00")},
	}

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Smith Robert").Return([]*model.Party{}, nil)
	ds.On("GetAliasByName", mock.Anything, "Smith Robert").
		Return(&model.PayerAlias{PayerName: "Smith Robert", PartyID: "pty_1"}, nil)
	ds.On("GetPartyByID", mock.Anything, "pty_1").
		Return(&model.Party{PartyID: "pty_1"}, nil)
	ds.On("AllocateTransaction", mock.Anything, "txn_1", entries, "Smith Robert").
		Return(&model.AllocationBatchResult{}, nil)

	_, err := service.Allocate(ctx, "txn_1", entries, nil)
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestAllocatePersistsAliasMapping(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()

	// Operator resolved the payer by search and asked for the mapping to
	// stick: the alias lands before resolution, so the batch already
	// carries it.
	txn := testTransaction("txn_1", "1500.00", "0")
	txn.PayerName = "Smith Robert"
	entries := []model.AllocationEntry{
		{ObligationID: "obl_1", Amount: model.MustMoney("1500.00")},
	}

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartyByID", mock.Anything, "pty_1").
		Return(&model.Party{PartyID: "pty_1", Kind: model.PartyCustomer, DisplayName: "Jane Smith"}, nil)
	ds.On("GetAliasByName", mock.Anything, "Smith Robert").
		Return(nil, &model.NotFoundError{Kind: "alias", ID: "Smith Robert"}).Once()
	ds.On("RecordAlias", mock.Anything, mock.MatchedBy(func(a *model.PayerAlias) bool {
		return a.PayerName == "Smith Robert" && a.PartyID == "pty_1"
	})).Return(nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Smith Robert").Return([]*model.Party{}, nil)
	ds.On("GetAliasByName", mock.Anything, "Smith Robert").
		Return(&model.PayerAlias{PayerName: "Smith Robert", PartyID: "pty_1"}, nil).Once()
	ds.On("AllocateTransaction", mock.Anything, "txn_1", entries, "Smith Robert").
		Return(&model.AllocationBatchResult{}, nil)

	_, err := service.Allocate(ctx, "txn_1", entries, &model.PayerAlias{PartyID: "pty_1"})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestAllocateRefusesIgnoredTransaction(t *testing.T) {
	service, ds := newTestService(t)

	txn := testTransaction("txn_1", "1500.00", "0")
	txn.Ignored = true
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)

	_, err := service.Allocate(context.Background(), "txn_1", []model.AllocationEntry{
		{ObligationID: "obl_1", Amount: model.MustMoney("10")},
	}, nil)
	assert.IsType(t, &model.ValidationError{}, err)
	ds.AssertNotCalled(t, "AllocateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocateSurfacesOverAllocation(t *testing.T) {
	service, ds := newTestService(t)

	txn := testTransaction("txn_1", "1500.00", "1000.00")
	entries := []model.AllocationEntry{
		{ObligationID: "obl_1", Amount: model.MustMoney("600.00")},
	}

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Jane Smith").
		Return([]*model.Party{{PartyID: "pty_1"}}, nil)
	ds.On("AllocateTransaction", mock.Anything, "txn_1", entries, "").
		Return(nil, &model.OverAllocationError{
			TransactionID: "txn_1",
			Requested:     model.MustMoney("600.00"),
			Remaining:     model.MustMoney("500.00"),
		})

	_, err := service.Allocate(context.Background(), "txn_1", entries, nil)
	require.Error(t, err)
	over, ok := err.(*model.OverAllocationError)
	require.True(t, ok)
	assert.True(t, over.Remaining.Equal(model.MustMoney("500.00")))
}

func TestAllocateProposedConfirmsPending(t *testing.T) {
	service, ds := newTestService(t)
	period := model.Period{Year: 2025, Month: 6}

	txn := testTransaction("txn_1", "1500.00", "0")
	bill := testBill("obl_1", "1500.00", "0")

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Jane Smith").
		Return([]*model.Party{{PartyID: "pty_owner", Kind: model.PartyCustomer, DisplayName: "Jane Smith"}}, nil)
	ds.On("GetAllocationsByTransaction", mock.Anything, "txn_1").Return([]model.Allocation{}, nil)
	ds.On("GetObligationsByParty", mock.Anything, "pty_owner", period).
		Return([]*model.Obligation{bill}, nil)
	ds.On("AllocateTransaction", mock.Anything, "txn_1", []model.AllocationEntry{{
		ObligationID:   "obl_1",
		ObligationKind: model.ObligationCustomerBill,
		Amount:         txn.Amount,
	}}, "").Return(&model.AllocationBatchResult{}, nil)

	_, err := service.AllocateProposed(context.Background(), "txn_1")
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestAllocateProposedRefusesNonPending(t *testing.T) {
	service, ds := newTestService(t)

	// Already fully allocated: nothing to confirm.
	txn := testTransaction("txn_1", "1500.00", "1500.00")
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Jane Smith").
		Return([]*model.Party{{PartyID: "pty_owner", Kind: model.PartyCustomer}}, nil)
	ds.On("GetAllocationsByTransaction", mock.Anything, "txn_1").Return([]model.Allocation{}, nil)
	ds.On("GetObligationsByParty", mock.Anything, "pty_owner", mock.Anything).
		Return([]*model.Obligation{}, nil)

	_, err := service.AllocateProposed(context.Background(), "txn_1")
	assert.IsType(t, &model.ValidationError{}, err)
}

func TestAllocateAutoFillsSmallerRemainder(t *testing.T) {
	service, ds := newTestService(t)

	// Transaction has 1100 unallocated; the bill only needs 800 more.
	txn := testTransaction("txn_1", "1500.00", "400.00")
	bill := testBill("obl_1", "1500.00", "700.00")

	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetObligation", mock.Anything, "obl_1").Return(bill, nil)
	ds.On("GetPartiesByExactName", mock.Anything, "Jane Smith").
		Return([]*model.Party{{PartyID: "pty_owner", Kind: model.PartyCustomer}}, nil)
	ds.On("AllocateTransaction", mock.Anything, "txn_1", []model.AllocationEntry{{
		ObligationID:   "obl_1",
		ObligationKind: model.ObligationCustomerBill,
		Amount:         model.MustMoney("800.00"),
	}}, "").Return(&model.AllocationBatchResult{}, nil)

	_, err := service.AllocateAuto(context.Background(), "txn_1", "obl_1")
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestAllocateAutoNothingToFill(t *testing.T) {
	service, ds := newTestService(t)

	txn := testTransaction("txn_1", "1500.00", "1500.00")
	bill := testBill("obl_1", "1500.00", "0")
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("GetObligation", mock.Anything, "obl_1").Return(bill, nil)

	_, err := service.AllocateAuto(context.Background(), "txn_1", "obl_1")
	assert.IsType(t, &model.ValidationError{}, err)
	ds.AssertNotCalled(t, "AllocateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelReversesAllocations(t *testing.T) {
	service, ds := newTestService(t)

	reversed := []model.Allocation{
		{AllocationID: "alo_1", Status: model.AllocationReversed},
		{AllocationID: "alo_2", Status: model.AllocationReversed},
	}
	ds.On("ReverseAllocations", mock.Anything, "txn_1").Return(reversed, nil)

	got, err := service.Cancel(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCancelNothingToCancel(t *testing.T) {
	service, ds := newTestService(t)

	ds.On("ReverseAllocations", mock.Anything, "txn_1").
		Return(nil, &model.NothingToCancelError{TransactionID: "txn_1"})

	_, err := service.Cancel(context.Background(), "txn_1")
	assert.IsType(t, &model.NothingToCancelError{}, err)
}

func TestIgnoreRefusedWhileAllocated(t *testing.T) {
	service, ds := newTestService(t)

	txn := testTransaction("txn_1", "1500.00", "500.00")
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)

	err := service.Ignore(context.Background(), "txn_1", "out of scope", false)
	assert.IsType(t, &model.ValidationError{}, err)
	ds.AssertNotCalled(t, "UpdateIgnoreState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIgnoreAndUnignore(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()

	clean := testTransaction("txn_1", "1500.00", "0")
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(clean, nil).Once()
	ds.On("UpdateIgnoreState", mock.Anything, "txn_1", true, "duplicate line", false).Return(nil)
	require.NoError(t, service.Ignore(ctx, "txn_1", "duplicate line", false))

	ignored := testTransaction("txn_1", "1500.00", "0")
	ignored.Ignored = true
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(ignored, nil).Once()
	ds.On("UpdateIgnoreState", mock.Anything, "txn_1", false, "", false).Return(nil)
	require.NoError(t, service.Unignore(ctx, "txn_1"))

	ds.AssertExpectations(t)
}

func TestUnignorePermanentRefused(t *testing.T) {
	service, ds := newTestService(t)

	txn := testTransaction("txn_1", "300.00", "0")
	txn.Ignored = true
	txn.PermanentIgnore = true
	ds.On("GetBankTransaction", mock.Anything, "txn_1").Return(txn, nil)

	err := service.Unignore(context.Background(), "txn_1")
	assert.IsType(t, &model.ValidationError{}, err)
}
