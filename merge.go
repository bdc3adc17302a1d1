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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/staffbooks/staffbooks/model"
)

func billLockKey(billID string) string {
	return fmt.Sprintf("lock:bill:%s", billID)
}

// PreviewMerge computes the full diff of merging a contract's bill into
// the successor contract's first adjacent bill: which allocations move,
// which adjustments are carried over, which become redundant, and the
// net balance the target inherits. Read-only.
func (s *Staffbooks) PreviewMerge(ctx context.Context, sourceBillID, targetContractID string) (*model.MergePreview, error) {
	if targetContractID == "" {
		return nil, &model.ValidationError{Field: "target_contract_id", Reason: "must not be empty"}
	}

	source, err := s.datasource.GetObligation(ctx, sourceBillID)
	if err != nil {
		return nil, err
	}
	if source.Kind != model.ObligationCustomerBill {
		return nil, &model.ValidationError{Field: "bill_id", Reason: "only customer bills can be merged"}
	}
	if source.IsMerged {
		return nil, &model.AlreadyMergedError{SourceBillID: sourceBillID}
	}

	target, err := s.datasource.GetFirstBillOnOrAfter(ctx, targetContractID, source.Period)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &model.NoTargetBillError{SourceBillID: sourceBillID, TargetContractID: targetContractID}
		}
		return nil, err
	}
	if target.ObligationID == source.ObligationID {
		return nil, &model.ValidationError{Field: "target_contract_id", Reason: "source and target bill are the same"}
	}

	preview := &model.MergePreview{SourceBill: *source, TargetBill: *target}

	var sourcePayroll, targetPayroll *model.Obligation
	if source.PairedObligationID != "" {
		sourcePayroll, err = s.datasource.GetObligation(ctx, source.PairedObligationID)
		if err != nil {
			return nil, err
		}
		preview.SourcePayroll = sourcePayroll
	}
	if target.PairedObligationID != "" {
		targetPayroll, err = s.datasource.GetObligation(ctx, target.PairedObligationID)
		if err != nil {
			return nil, err
		}
		preview.TargetPayroll = targetPayroll
	}
	if sourcePayroll != nil && targetPayroll == nil {
		return nil, &model.ValidationError{Field: "target_contract_id", Reason: "target bill has no paired payroll to receive the source payroll"}
	}

	// The source bill's dues move to the target as one carry adjustment
	// for its full amount, and its allocations are re-parented alongside.
	// The net effect on the target is exactly the source's remaining due.
	carried := source.RemainingDue()
	if err := s.planObligationMove(ctx, preview, source, target.ObligationID); err != nil {
		return nil, err
	}
	if sourcePayroll != nil {
		carried = carried.Add(sourcePayroll.RemainingDue())
		if err := s.planObligationMove(ctx, preview, sourcePayroll, targetPayroll.ObligationID); err != nil {
			return nil, err
		}
	}

	adjustmentSources := []*model.Obligation{source}
	if sourcePayroll != nil {
		adjustmentSources = append(adjustmentSources, sourcePayroll)
	}
	for _, parent := range adjustmentSources {
		adjustments, err := s.datasource.GetAdjustmentsByObligation(ctx, parent.ObligationID)
		if err != nil {
			return nil, err
		}
		targetID := target.ObligationID
		if parent.Kind == model.ObligationEmployeePayroll {
			targetID = targetPayroll.ObligationID
		}
		for _, adj := range adjustments {
			allocations, err := s.datasource.GetActiveAllocationsByObligation(ctx, adj.ObligationID)
			if err != nil {
				return nil, err
			}
			// A company-paid-salary placeholder exists only to stand in for
			// the merged bill; with nothing settled against it the merge
			// makes it redundant.
			if adj.Category == model.AdjustmentCompanyPaidSalary && len(allocations) == 0 {
				preview.Actions = append(preview.Actions, model.MergeAction{
					Kind:        model.MergeActionDeleteAdjustment,
					Amount:      adj.TotalDue,
					Description: adj.Describe(),
					Location:    adj.ObligationID,
				})
				continue
			}
			carried = carried.Add(adj.RemainingDue())
			preview.Actions = append(preview.Actions, model.MergeAction{
				Kind:        model.MergeActionCarryAdjustment,
				Amount:      adj.TotalDue,
				Description: fmt.Sprintf("carried from %s: %s", parent.Period, adj.Describe()),
				Location:    adj.ObligationID,
				Target:      targetID,
			})
			for _, a := range allocations {
				preview.Actions = append(preview.Actions, model.MergeAction{
					Kind:        model.MergeActionReparentAllocation,
					Amount:      a.Amount,
					Description: fmt.Sprintf("move payment %s to %s", a.TransactionID, targetID),
					Location:    a.AllocationID,
					Target:      targetID,
				})
			}
		}
	}

	preview.CarriedBalance = carried
	return preview, nil
}

// planObligationMove appends the carry action for an obligation's full
// dues plus the reparent actions for its active allocations.
func (s *Staffbooks) planObligationMove(ctx context.Context, preview *model.MergePreview, source *model.Obligation, targetID string) error {
	preview.Actions = append(preview.Actions, model.MergeAction{
		Kind:        model.MergeActionCarryAdjustment,
		Amount:      source.TotalDue,
		Description: fmt.Sprintf("carried from %s: %s", source.Period, source.Describe()),
		Location:    source.ObligationID,
		Target:      targetID,
	})
	allocations, err := s.datasource.GetActiveAllocationsByObligation(ctx, source.ObligationID)
	if err != nil {
		return err
	}
	for _, a := range allocations {
		preview.Actions = append(preview.Actions, model.MergeAction{
			Kind:        model.MergeActionReparentAllocation,
			Amount:      a.Amount,
			Description: fmt.Sprintf("move payment %s to %s", a.TransactionID, targetID),
			Location:    a.AllocationID,
			Target:      targetID,
		})
	}
	return nil
}

// CommitMerge re-derives the merge plan under the source bill's lock and
// applies it atomically. A preview shown to the operator earlier is
// never replayed; commit trusts only current ledger state.
func (s *Staffbooks) CommitMerge(ctx context.Context, sourceBillID, targetContractID string) (*model.MergePreview, error) {
	locker, err := s.acquireLock(ctx, billLockKey(sourceBillID))
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, locker)

	preview, err := s.PreviewMerge(ctx, sourceBillID, targetContractID)
	if err != nil {
		return nil, err
	}
	if err := s.datasource.ApplyMerge(ctx, preview); err != nil {
		return nil, err
	}
	logrus.Infof("merged bill %s into %s (%d actions, carried %s)",
		sourceBillID, preview.TargetBill.ObligationID, len(preview.Actions), preview.CarriedBalance)
	s.postEvent(EventBillMerged, preview)
	return preview, nil
}

// TransferBalance moves the residual credit of an overpaid final bill to
// another contract's bill as a pair of balance-transfer adjustments.
func (s *Staffbooks) TransferBalance(ctx context.Context, sourceBillID string, dest model.TransferDestination) (*model.Obligation, error) {
	locker, err := s.acquireLock(ctx, billLockKey(sourceBillID))
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, locker)

	source, err := s.datasource.GetObligation(ctx, sourceBillID)
	if err != nil {
		return nil, err
	}
	if source.Kind != model.ObligationCustomerBill {
		return nil, &model.TransferNotAllowedError{SourceBillID: sourceBillID, Reason: "only customer bills can transfer a balance"}
	}
	if source.IsMerged {
		return nil, &model.TransferNotAllowedError{SourceBillID: sourceBillID, Reason: "bill has been merged"}
	}
	if !source.IsLastBill {
		return nil, &model.TransferNotAllowedError{SourceBillID: sourceBillID, Reason: "only the last bill of a contract can transfer its balance"}
	}
	residual := source.RemainingDue()
	if !residual.IsNegative() || residual.ApproxZero() {
		return nil, &model.TransferNotAllowedError{SourceBillID: sourceBillID, Reason: "bill has no residual credit"}
	}
	contract, err := s.datasource.GetContract(ctx, source.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == model.ContractActive {
		return nil, &model.TransferNotAllowedError{SourceBillID: sourceBillID, Reason: "contract is still active"}
	}

	destBill, err := s.resolveTransferDestination(ctx, dest)
	if err != nil {
		return nil, err
	}
	if destBill.ObligationID == sourceBillID {
		return nil, &model.ValidationError{Field: "destination", Reason: "cannot transfer a balance onto the source bill"}
	}

	adjustment, err := s.datasource.ApplyTransfer(ctx, sourceBillID, destBill.ObligationID, residual)
	if err != nil {
		return nil, err
	}
	logrus.Infof("transferred residual %s from bill %s to %s", residual, sourceBillID, destBill.ObligationID)
	s.postEvent(EventBalanceTransferred, adjustment)
	return adjustment, nil
}

func (s *Staffbooks) resolveTransferDestination(ctx context.Context, dest model.TransferDestination) (*model.Obligation, error) {
	switch {
	case dest.BillID != "":
		bill, err := s.datasource.GetObligation(ctx, dest.BillID)
		if err != nil {
			return nil, err
		}
		if bill.Kind != model.ObligationCustomerBill || bill.IsMerged {
			return nil, &model.ValidationError{Field: "destination.bill_id", Reason: "must be an unmerged customer bill"}
		}
		return bill, nil
	case dest.ContractID != "":
		return s.datasource.GetLatestBillForContract(ctx, dest.ContractID)
	default:
		return nil, &model.ValidationError{Field: "destination", Reason: "either bill_id or contract_id is required"}
	}
}
