package model

import "time"

// Allocation statuses. An allocation is immutable once created except
// for a single status transition; corrections are a reversal plus a new
// allocation, never an edit.
const (
	AllocationActive         = "active"
	AllocationReversed       = "reversed"
	AllocationTransferredOut = "transferred_out"
	AllocationTransferredIn  = "transferred_in"
)

// Allocation apportions part of a bank transaction's amount to one
// obligation. Owned exclusively by the allocation ledger.
type Allocation struct {
	ID             int64     `json:"-"`
	AllocationID   string    `json:"allocation_id"`
	TransactionID  string    `json:"transaction_id"`
	ObligationID   string    `json:"obligation_id"`
	ObligationKind string    `json:"obligation_kind"`
	Amount         Money     `json:"amount"`
	Status         string    `json:"status"`
	// MatchedAlias records the alias name the payer was resolved through,
	// when applicable. Alias deletion uses it to find dependents.
	MatchedAlias string    `json:"matched_alias,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AllocationEntry is one requested apportionment inside an allocate call.
type AllocationEntry struct {
	ObligationID   string `json:"obligation_id"`
	ObligationKind string `json:"obligation_kind"`
	Amount         Money  `json:"amount"`
}

// AllocationBatchResult reports the state after a committed allocate call.
type AllocationBatchResult struct {
	Transaction BankTransaction `json:"transaction"`
	Allocations []Allocation    `json:"allocations"`
	Obligations []Obligation    `json:"obligations"`
	// Overpaid lists obligation IDs the batch pushed past their total due.
	Overpaid []string `json:"overpaid,omitempty"`
}
