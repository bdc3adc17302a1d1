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

	"github.com/staffbooks/staffbooks/model"
)

// Categorize derives a transaction's workflow category from ledger facts.
// Pure function, recomputed on every read; the category is never stored,
// so it cannot drift from the allocations that justify it.
//
// Evaluation order is significant: ignored wins over everything, a fully
// spent transaction is processed regardless of resolution, and a partial
// allocation counts as deliberate (confirmed) only while every touched
// obligation remains open.
func Categorize(
	txn *model.BankTransaction,
	resolution *model.Resolution,
	allocations []model.Allocation,
	obligations map[string]*model.Obligation,
	proposal *model.Proposal,
) string {
	if txn.Ignored {
		return model.CategoryIgnored
	}

	if txn.Amount.IsPositive() && txn.AllocatedAmount.Equal(txn.Amount) {
		return model.CategoryProcessed
	}

	if txn.AllocatedAmount.IsPositive() && txn.AllocatedAmount.LessThan(txn.Amount) {
		allOpen := true
		for _, a := range allocations {
			if a.Status != model.AllocationActive {
				continue
			}
			ob, ok := obligations[a.ObligationID]
			if !ok || !ob.Open() {
				allOpen = false
				break
			}
		}
		if allOpen {
			return model.CategoryConfirmed
		}
	}

	resolved := resolution != nil && resolution.MatchedBy != model.MatchedByNone

	if proposal != nil && txn.AllocatedAmount.IsZero() &&
		resolved && resolution.MatchedBy == model.MatchedByExactName && !resolution.Ambiguous {
		return model.CategoryPendingConfirmation
	}

	if resolved {
		return model.CategoryManualAllocation
	}
	return model.CategoryUnmatched
}

// DeriveProposal finds the single high-confidence obligation match for an
// unallocated transaction: an exact, unambiguous payer resolution and
// exactly one open obligation in the period whose remaining due
// approximates the transaction amount. Anything less confident yields no
// proposal and the transaction routes to manual allocation.
func DeriveProposal(txn *model.BankTransaction, resolution *model.Resolution, open []*model.Obligation) *model.Proposal {
	if resolution == nil || resolution.MatchedBy != model.MatchedByExactName || resolution.Ambiguous {
		return nil
	}
	if !txn.AllocatedAmount.IsZero() {
		return nil
	}

	var match *model.Obligation
	for _, ob := range open {
		if !ob.Open() {
			continue
		}
		if ob.RemainingDue().ApproxEqual(txn.Amount) {
			if match != nil {
				return nil // more than one plausible target, not confident
			}
			match = ob
		}
	}
	if match == nil {
		return nil
	}
	return &model.Proposal{Obligation: *match, Amount: txn.Amount}
}

// CategorizeTransaction loads everything the categorizer needs for one
// transaction and derives its category.
func (s *Staffbooks) CategorizeTransaction(ctx context.Context, txn *model.BankTransaction) (*model.CategorizedTransaction, error) {
	resolution, err := s.ResolvePayer(ctx, txn.PayerName)
	if err != nil {
		return nil, err
	}

	allocations, err := s.datasource.GetAllocationsByTransaction(ctx, txn.TransactionID)
	if err != nil {
		return nil, err
	}

	obligations := make(map[string]*model.Obligation)
	for _, a := range allocations {
		if a.Status != model.AllocationActive {
			continue
		}
		if _, ok := obligations[a.ObligationID]; ok {
			continue
		}
		ob, err := s.datasource.GetObligation(ctx, a.ObligationID)
		if err != nil {
			if _, notFound := err.(*model.NotFoundError); notFound {
				continue
			}
			return nil, err
		}
		obligations[a.ObligationID] = ob
	}

	var proposal *model.Proposal
	if resolution.Party != nil {
		open, err := s.datasource.GetObligationsByParty(ctx, resolution.Party.PartyID, model.PeriodOf(txn.TransactionTime))
		if err != nil {
			return nil, err
		}
		proposal = DeriveProposal(txn, resolution, open)
	}

	category := Categorize(txn, resolution, allocations, obligations, proposal)
	result := &model.CategorizedTransaction{
		Transaction: *txn,
		Category:    category,
		Resolution:  resolution,
	}
	if category == model.CategoryPendingConfirmation {
		result.Proposal = proposal
	}
	return result, nil
}

// ListPeriod returns a period's transactions grouped into the six
// workflow buckets, categorized from current ledger truth.
func (s *Staffbooks) ListPeriod(ctx context.Context, period model.Period) (*model.PeriodBuckets, error) {
	transactions, err := s.datasource.GetTransactionsByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}

	buckets := &model.PeriodBuckets{Period: period}
	for _, txn := range transactions {
		categorized, err := s.CategorizeTransaction(ctx, txn)
		if err != nil {
			return nil, err
		}
		switch categorized.Category {
		case model.CategoryPendingConfirmation:
			buckets.PendingConfirmation = append(buckets.PendingConfirmation, *categorized)
		case model.CategoryManualAllocation:
			buckets.ManualAllocation = append(buckets.ManualAllocation, *categorized)
		case model.CategoryUnmatched:
			buckets.Unmatched = append(buckets.Unmatched, *categorized)
		case model.CategoryConfirmed:
			buckets.Confirmed = append(buckets.Confirmed, *categorized)
		case model.CategoryProcessed:
			buckets.Processed = append(buckets.Processed, *categorized)
		case model.CategoryIgnored:
			buckets.Ignored = append(buckets.Ignored, *categorized)
		}
	}
	return buckets, nil
}
