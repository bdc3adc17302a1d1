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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/staffbooks/staffbooks/model"
)

func TestPreviewMergeRejectsNonBill(t *testing.T) {
	service, ds := newTestService(t)

	payroll := testBill("obl_p", "900.00", "0")
	payroll.Kind = model.ObligationEmployeePayroll
	ds.On("GetObligation", mock.Anything, "obl_p").Return(payroll, nil)

	_, err := service.PreviewMerge(context.Background(), "obl_p", "ctr_2")
	assert.IsType(t, &model.ValidationError{}, err)
}

func TestPreviewMergeRejectsMergedSource(t *testing.T) {
	service, ds := newTestService(t)

	bill := testBill("obl_1", "1500.00", "0")
	bill.IsMerged = true
	ds.On("GetObligation", mock.Anything, "obl_1").Return(bill, nil)

	_, err := service.PreviewMerge(context.Background(), "obl_1", "ctr_2")
	assert.IsType(t, &model.AlreadyMergedError{}, err)
}

func TestPreviewMergeNoTargetBill(t *testing.T) {
	service, ds := newTestService(t)

	bill := testBill("obl_1", "1500.00", "0")
	ds.On("GetObligation", mock.Anything, "obl_1").Return(bill, nil)
	ds.On("GetFirstBillOnOrAfter", mock.Anything, "ctr_2", bill.Period).
		Return(nil, sql.ErrNoRows)

	_, err := service.PreviewMerge(context.Background(), "obl_1", "ctr_2")
	require.Error(t, err)
	noTarget, ok := err.(*model.NoTargetBillError)
	require.True(t, ok)
	assert.Equal(t, "ctr_2", noTarget.TargetContractID)
}

func TestPreviewMergePlan(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()

	source := testBill("obl_src", "1500.00", "400.00")
	target := testBill("obl_tgt", "1500.00", "0")
	target.ContractID = "ctr_2"
	target.Period = source.Period.Next()

	ds.On("GetObligation", mock.Anything, "obl_src").Return(source, nil)
	ds.On("GetFirstBillOnOrAfter", mock.Anything, "ctr_2", source.Period).Return(target, nil)

	ds.On("GetActiveAllocationsByObligation", mock.Anything, "obl_src").
		Return([]model.Allocation{
			{AllocationID: "alo_1", TransactionID: "txn_1", Amount: model.MustMoney("400.00"), Status: model.AllocationActive},
		}, nil)

	placeholder := &model.Obligation{
		ObligationID: "obl_adj_cps",
		Kind:         model.ObligationAdjustment,
		Category:     model.AdjustmentCompanyPaidSalary,
		TotalDue:     model.MustMoney("300.00"),
		Period:       source.Period,
	}
	manual := &model.Obligation{
		ObligationID: "obl_adj_man",
		Kind:         model.ObligationAdjustment,
		Category:     model.AdjustmentManual,
		TotalDue:     model.MustMoney("-50.00"),
		Period:       source.Period,
		Description:  "goodwill discount",
	}
	ds.On("GetAdjustmentsByObligation", mock.Anything, "obl_src").
		Return([]*model.Obligation{placeholder, manual}, nil)
	ds.On("GetActiveAllocationsByObligation", mock.Anything, "obl_adj_cps").
		Return([]model.Allocation{}, nil)
	ds.On("GetActiveAllocationsByObligation", mock.Anything, "obl_adj_man").
		Return([]model.Allocation{}, nil)

	preview, err := service.PreviewMerge(ctx, "obl_src", "ctr_2")
	require.NoError(t, err)

	kinds := map[string]int{}
	for _, a := range preview.Actions {
		kinds[a.Kind]++
	}
	// One carry for the bill's dues, one carry for the manual adjustment,
	// one reparent for the payment, one delete for the placeholder.
	assert.Equal(t, 2, kinds[model.MergeActionCarryAdjustment])
	assert.Equal(t, 1, kinds[model.MergeActionReparentAllocation])
	assert.Equal(t, 1, kinds[model.MergeActionDeleteAdjustment])

	// Net carried: (1500 - 400) + (-50) = 1050.
	assert.True(t, preview.CarriedBalance.Equal(model.MustMoney("1050.00")),
		"carried %s", preview.CarriedBalance)
	assert.Equal(t, "obl_tgt", preview.TargetBill.ObligationID)
}

func TestCommitMergeRederivesAndApplies(t *testing.T) {
	service, ds := newTestService(t)

	source := testBill("obl_src", "1000.00", "0")
	target := testBill("obl_tgt", "1000.00", "0")
	target.ContractID = "ctr_2"

	ds.On("GetObligation", mock.Anything, "obl_src").Return(source, nil)
	ds.On("GetFirstBillOnOrAfter", mock.Anything, "ctr_2", source.Period).Return(target, nil)
	ds.On("GetActiveAllocationsByObligation", mock.Anything, "obl_src").Return([]model.Allocation{}, nil)
	ds.On("GetAdjustmentsByObligation", mock.Anything, "obl_src").Return([]*model.Obligation{}, nil)
	ds.On("ApplyMerge", mock.Anything, mock.MatchedBy(func(p *model.MergePreview) bool {
		return p.SourceBill.ObligationID == "obl_src" && p.TargetBill.ObligationID == "obl_tgt"
	})).Return(nil)

	preview, err := service.CommitMerge(context.Background(), "obl_src", "ctr_2")
	require.NoError(t, err)
	assert.True(t, preview.CarriedBalance.Equal(model.MustMoney("1000.00")))
	ds.AssertExpectations(t)
}

func TestCommitMergeIdempotent(t *testing.T) {
	service, ds := newTestService(t)

	source := testBill("obl_src", "1000.00", "0")
	target := testBill("obl_tgt", "1000.00", "0")

	ds.On("GetObligation", mock.Anything, "obl_src").Return(source, nil)
	ds.On("GetFirstBillOnOrAfter", mock.Anything, "ctr_2", source.Period).Return(target, nil)
	ds.On("GetActiveAllocationsByObligation", mock.Anything, "obl_src").Return([]model.Allocation{}, nil)
	ds.On("GetAdjustmentsByObligation", mock.Anything, "obl_src").Return([]*model.Obligation{}, nil)
	// The repository re-checks the merged flag under its row lock.
	ds.On("ApplyMerge", mock.Anything, mock.Anything).
		Return(&model.AlreadyMergedError{SourceBillID: "obl_src"})

	_, err := service.CommitMerge(context.Background(), "obl_src", "ctr_2")
	assert.IsType(t, &model.AlreadyMergedError{}, err)
}

func TestTransferBalanceGuards(t *testing.T) {
	service, ds := newTestService(t)
	ctx := context.Background()
	dest := model.TransferDestination{BillID: "obl_dest"}

	t.Run("not overpaid", func(t *testing.T) {
		bill := testBill("obl_1", "1500.00", "1000.00")
		bill.IsLastBill = true
		ds.On("GetObligation", mock.Anything, "obl_1").Return(bill, nil).Once()
		_, err := service.TransferBalance(ctx, "obl_1", dest)
		assert.IsType(t, &model.TransferNotAllowedError{}, err)
	})

	t.Run("not the last bill", func(t *testing.T) {
		bill := testBill("obl_2", "1500.00", "1700.00")
		ds.On("GetObligation", mock.Anything, "obl_2").Return(bill, nil).Once()
		_, err := service.TransferBalance(ctx, "obl_2", dest)
		assert.IsType(t, &model.TransferNotAllowedError{}, err)
	})

	t.Run("merged bill", func(t *testing.T) {
		bill := testBill("obl_3", "1500.00", "1700.00")
		bill.IsLastBill = true
		bill.IsMerged = true
		ds.On("GetObligation", mock.Anything, "obl_3").Return(bill, nil).Once()
		_, err := service.TransferBalance(ctx, "obl_3", dest)
		assert.IsType(t, &model.TransferNotAllowedError{}, err)
	})

	t.Run("contract still active", func(t *testing.T) {
		bill := testBill("obl_4", "1500.00", "1700.00")
		bill.IsLastBill = true
		ds.On("GetObligation", mock.Anything, "obl_4").Return(bill, nil).Once()
		ds.On("GetContract", mock.Anything, "ctr_1").
			Return(&model.Contract{ContractID: "ctr_1", Status: model.ContractActive}, nil).Once()
		_, err := service.TransferBalance(ctx, "obl_4", dest)
		require.Error(t, err)
		notAllowed, ok := err.(*model.TransferNotAllowedError)
		require.True(t, ok)
		assert.Contains(t, notAllowed.Reason, "active")
		ds.AssertNotCalled(t, "ApplyTransfer", mock.Anything, "obl_4", mock.Anything, mock.Anything)
	})
}

func TestTransferBalanceToExplicitBill(t *testing.T) {
	service, ds := newTestService(t)

	source := testBill("obl_src", "1500.00", "1700.00")
	source.IsLastBill = true
	destBill := testBill("obl_dest", "1500.00", "0")
	residual := model.MustMoney("-200.00")

	ds.On("GetObligation", mock.Anything, "obl_src").Return(source, nil)
	ds.On("GetContract", mock.Anything, "ctr_1").
		Return(&model.Contract{ContractID: "ctr_1", Status: model.ContractTerminated}, nil)
	ds.On("GetObligation", mock.Anything, "obl_dest").Return(destBill, nil)
	ds.On("ApplyTransfer", mock.Anything, "obl_src", "obl_dest", residual).
		Return(&model.Obligation{
			ObligationID: "obl_adj",
			Kind:         model.ObligationAdjustment,
			Category:     model.AdjustmentBalanceTransfer,
			TotalDue:     residual,
		}, nil)

	adj, err := service.TransferBalance(context.Background(), "obl_src", model.TransferDestination{BillID: "obl_dest"})
	require.NoError(t, err)
	assert.True(t, adj.TotalDue.IsNegative())
	ds.AssertExpectations(t)
}

func TestTransferBalanceToContractLatestBill(t *testing.T) {
	service, ds := newTestService(t)

	source := testBill("obl_src", "1000.00", "1150.00")
	source.IsLastBill = true
	latest := testBill("obl_latest", "1000.00", "0")
	latest.ContractID = "ctr_9"

	ds.On("GetObligation", mock.Anything, "obl_src").Return(source, nil)
	ds.On("GetContract", mock.Anything, "ctr_1").
		Return(&model.Contract{ContractID: "ctr_1", Status: model.ContractFinished}, nil)
	ds.On("GetLatestBillForContract", mock.Anything, "ctr_9").Return(latest, nil)
	ds.On("ApplyTransfer", mock.Anything, "obl_src", "obl_latest", model.MustMoney("-150.00")).
		Return(&model.Obligation{ObligationID: "obl_adj", TotalDue: model.MustMoney("-150.00")}, nil)

	_, err := service.TransferBalance(context.Background(), "obl_src", model.TransferDestination{ContractID: "ctr_9"})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}
