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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	redlock "github.com/staffbooks/staffbooks/internal/lock"
	"github.com/staffbooks/staffbooks/internal/notification"
	"github.com/staffbooks/staffbooks/model"
)

// acquireLock takes the single-writer lock guarding a ledger entity.
// Every mutation of a transaction's allocations runs under its lock so
// a concurrent allocate/cancel pair cannot interleave between the
// validation read and the commit.
func (s *Staffbooks) acquireLock(ctx context.Context, key string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(s.redis, key, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, 30*time.Second, 10*time.Second); err != nil {
		return nil, err
	}
	return locker, nil
}

func (s *Staffbooks) releaseLock(ctx context.Context, locker *redlock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		notification.NotifyError(err)
	}
}

func transactionLockKey(txnID string) string {
	return fmt.Sprintf("lock:txn:%s", txnID)
}

func validateEntries(entries []model.AllocationEntry) error {
	if len(entries) == 0 {
		return &model.ValidationError{Field: "entries", Reason: "must contain at least one allocation"}
	}
	for i, e := range entries {
		if e.ObligationID == "" {
			return &model.ValidationError{Field: fmt.Sprintf("entries[%d].obligation_id", i), Reason: "must not be empty"}
		}
		if !e.Amount.IsPositive() {
			return &model.ValidationError{Field: fmt.Sprintf("entries[%d].amount", i), Reason: "must be positive"}
		}
	}
	return nil
}

// Allocate apportions parts of a transaction's amount to obligations in
// one atomic batch. The batch is rejected whole when its total exceeds
// the transaction's unallocated remainder; obligation-level overpayment
// is allowed and reported in the result.
//
// When the operator resolved the payer by hand (search, not a match),
// persistAlias records the chosen mapping as a payer alias in the same
// call, so the next statement line from that payer resolves on its own.
func (s *Staffbooks) Allocate(ctx context.Context, txnID string, entries []model.AllocationEntry, persistAlias *model.PayerAlias) (*model.AllocationBatchResult, error) {
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	locker, err := s.acquireLock(ctx, transactionLockKey(txnID))
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, locker)

	txn, err := s.datasource.GetBankTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Ignored {
		return nil, &model.ValidationError{Field: "transaction", Reason: "ignored transactions cannot be allocated"}
	}

	if persistAlias != nil {
		if _, err := s.CreateAlias(ctx, txn.PayerName, persistAlias.PartyID, persistAlias.ContractID, persistAlias.Notes, false); err != nil {
			return nil, err
		}
	}

	resolution, err := s.ResolvePayer(ctx, txn.PayerName)
	if err != nil {
		return nil, err
	}
	matchedAlias := ""
	if resolution.MatchedBy == model.MatchedByAlias {
		matchedAlias = resolution.AliasName
	}

	result, err := s.datasource.AllocateTransaction(ctx, txnID, entries, matchedAlias)
	if err != nil {
		return nil, err
	}
	for _, id := range result.Overpaid {
		logrus.Warnf("allocation on transaction %s pushed obligation %s past its total due", txnID, id)
	}
	s.postEvent(EventTransactionAllocated, result)
	return result, nil
}

// AllocateProposed confirms the categorizer's high-confidence proposal
// for a pending transaction in one step. Fails when the transaction is
// not currently pending confirmation; the proposal is re-derived at call
// time, never trusted from an earlier read.
func (s *Staffbooks) AllocateProposed(ctx context.Context, txnID string) (*model.AllocationBatchResult, error) {
	locker, err := s.acquireLock(ctx, transactionLockKey(txnID))
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, locker)

	txn, err := s.datasource.GetBankTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	categorized, err := s.CategorizeTransaction(ctx, txn)
	if err != nil {
		return nil, err
	}
	if categorized.Category != model.CategoryPendingConfirmation || categorized.Proposal == nil {
		return nil, &model.ValidationError{
			Field:  "transaction",
			Reason: fmt.Sprintf("not pending confirmation (currently %s)", categorized.Category),
		}
	}

	proposal := categorized.Proposal
	matchedAlias := ""
	if categorized.Resolution.MatchedBy == model.MatchedByAlias {
		matchedAlias = categorized.Resolution.AliasName
	}
	result, err := s.datasource.AllocateTransaction(ctx, txnID, []model.AllocationEntry{{
		ObligationID:   proposal.Obligation.ObligationID,
		ObligationKind: proposal.Obligation.Kind,
		Amount:         proposal.Amount,
	}}, matchedAlias)
	if err != nil {
		return nil, err
	}
	s.postEvent(EventTransactionAllocated, result)
	return result, nil
}

// AllocateAuto smart-fills one obligation: the entry amount is the
// smaller of the transaction's unallocated remainder and the
// obligation's remaining due. With an empty obligationID it confirms
// the derived proposal instead. A shortcut over Allocate, carrying no
// invariants of its own.
func (s *Staffbooks) AllocateAuto(ctx context.Context, txnID, obligationID string) (*model.AllocationBatchResult, error) {
	if obligationID == "" {
		return s.AllocateProposed(ctx, txnID)
	}

	txn, err := s.datasource.GetBankTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	ob, err := s.datasource.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	fill := txn.Remaining().Min(ob.RemainingDue())
	if !fill.IsPositive() {
		return nil, &model.ValidationError{Field: "obligation_id", Reason: "nothing to fill: transaction or obligation has no remainder"}
	}
	return s.Allocate(ctx, txnID, []model.AllocationEntry{{
		ObligationID:   obligationID,
		ObligationKind: ob.Kind,
		Amount:         fill,
	}}, nil)
}

// Cancel reverses every active allocation of a transaction, returning
// its amount to the unallocated pool. Reversal, not deletion: the
// ledger keeps the reversed rows.
func (s *Staffbooks) Cancel(ctx context.Context, txnID string) ([]model.Allocation, error) {
	locker, err := s.acquireLock(ctx, transactionLockKey(txnID))
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, locker)

	reversed, err := s.datasource.ReverseAllocations(ctx, txnID)
	if err != nil {
		return nil, err
	}
	logrus.Infof("cancelled %d allocations on transaction %s", len(reversed), txnID)
	s.postEvent(EventAllocationsCancelled, map[string]interface{}{
		"transaction_id": txnID,
		"reversed":       reversed,
	})
	return reversed, nil
}

// Ignore marks a transaction as outside reconciliation scope. A
// transaction with active allocations must be cancelled first; ignoring
// never silently drops ledger rows.
func (s *Staffbooks) Ignore(ctx context.Context, txnID, remark string, permanent bool) error {
	locker, err := s.acquireLock(ctx, transactionLockKey(txnID))
	if err != nil {
		return err
	}
	defer s.releaseLock(ctx, locker)

	txn, err := s.datasource.GetBankTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if txn.AllocatedAmount.IsPositive() {
		return &model.ValidationError{Field: "transaction", Reason: "cancel its allocations before ignoring"}
	}

	if err := s.datasource.UpdateIgnoreState(ctx, txnID, true, remark, permanent); err != nil {
		return err
	}
	s.postEvent(EventTransactionIgnored, map[string]interface{}{
		"transaction_id": txnID,
		"remark":         remark,
		"permanent":      permanent,
	})
	return nil
}

// Unignore returns a transaction to the reconciliation workflow.
// Permanently ignored transactions stay ignored.
func (s *Staffbooks) Unignore(ctx context.Context, txnID string) error {
	locker, err := s.acquireLock(ctx, transactionLockKey(txnID))
	if err != nil {
		return err
	}
	defer s.releaseLock(ctx, locker)

	txn, err := s.datasource.GetBankTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if !txn.Ignored {
		return nil
	}
	if txn.PermanentIgnore {
		return &model.ValidationError{Field: "transaction", Reason: "permanently ignored"}
	}
	return s.datasource.UpdateIgnoreState(ctx, txnID, false, "", false)
}
