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

package database

import (
	"context"

	"github.com/staffbooks/staffbooks/model"
)

// IDataSource defines the interface for data source operations, grouping
// related functionalities.
type IDataSource interface {
	bankTransaction // bank statement facts
	party           // customers, employees, contracts
	obligation      // the obligation index
	allocation      // the allocation ledger's persistence
	alias           // payer alias table
	merge           // atomic merge/transfer application
}

// bankTransaction defines methods for handling imported bank transactions.
type bankTransaction interface {
	RecordBankTransaction(ctx context.Context, txn *model.BankTransaction) (*model.BankTransaction, error) // Records an imported transaction
	GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error)                     // Retrieves a transaction with its allocated aggregate
	TransactionExistsByRef(ctx context.Context, externalReference string) (bool, error)                    // Dedup check on the bank-provided reference
	GetTransactionsByPeriod(ctx context.Context, period model.Period) ([]*model.BankTransaction, error)    // Retrieves a period's transactions with aggregates
	UpdateIgnoreState(ctx context.Context, id string, ignored bool, remark string, permanent bool) error   // Flips the ignore flag
}

// party defines methods for handling parties and contracts.
type party interface {
	CreateParty(ctx context.Context, p model.Party) (model.Party, error)                  // Creates a customer or employee
	GetPartyByID(ctx context.Context, id string) (*model.Party, error)                    // Retrieves a party by ID
	GetPartiesByExactName(ctx context.Context, name string) ([]*model.Party, error)       // Case-normalized exact display-name lookup
	SearchPartiesByName(ctx context.Context, query string) ([]*model.Party, error)        // Substring candidate search, ranking happens in the service
	CreateContract(ctx context.Context, c model.Contract) (model.Contract, error)         // Creates a contract
	GetContract(ctx context.Context, id string) (*model.Contract, error)                  // Retrieves a contract by ID
}

// obligation defines methods for the obligation index.
type obligation interface {
	RecordObligation(ctx context.Context, ob *model.Obligation) (*model.Obligation, error)                          // Records a bill, payroll item, or adjustment
	GetObligation(ctx context.Context, id string) (*model.Obligation, error)                                        // Retrieves an obligation with its allocated aggregate
	GetObligationsByParty(ctx context.Context, partyID string, period model.Period) ([]*model.Obligation, error)    // Period+party lookup with aggregates
	GetObligationsByContract(ctx context.Context, contractID string) ([]*model.Obligation, error)                   // All obligations of a contract
	GetAdjustmentsByObligation(ctx context.Context, parentID string) ([]*model.Obligation, error)                   // Adjustments paired to a bill/payroll
	GetFirstBillOnOrAfter(ctx context.Context, contractID string, period model.Period) (*model.Obligation, error)   // Target-bill resolution for merges
	GetLatestBillForContract(ctx context.Context, contractID string) (*model.Obligation, error)                     // Destination resolution for balance transfers
}

// allocation defines the ledger's persistence operations. The batch
// operations are transactional: row locks on the transaction and every
// touched obligation, all-or-nothing application.
type allocation interface {
	AllocateTransaction(ctx context.Context, txnID string, entries []model.AllocationEntry, matchedAlias string) (*model.AllocationBatchResult, error) // Atomically validates and applies a batch
	ReverseAllocations(ctx context.Context, txnID string) ([]model.Allocation, error)                                                                  // Reverses every active allocation of a transaction
	GetAllocationsByTransaction(ctx context.Context, txnID string) ([]model.Allocation, error)                                                         // All allocations of a transaction, any status
	GetActiveAllocationsByObligation(ctx context.Context, obligationID string) ([]model.Allocation, error)                                             // Active allocations on an obligation
	GetActiveAllocationsByAlias(ctx context.Context, payerName string) ([]model.Allocation, error)                                                     // Active allocations that depended on an alias
}

// alias defines methods for the payer alias table.
type alias interface {
	RecordAlias(ctx context.Context, a *model.PayerAlias) error                      // Persists an alias mapping
	GetAliasByName(ctx context.Context, payerName string) (*model.PayerAlias, error) // Looks up an alias by raw payer name
	DeleteAliasByName(ctx context.Context, payerName string) error                   // Hard-deletes an alias
	DeleteAliasCascade(ctx context.Context, payerName string) ([]model.Allocation, error) // Reverses dependent allocations and deletes the alias atomically
}

// merge defines the atomic application of merge and transfer plans.
type merge interface {
	ApplyMerge(ctx context.Context, preview *model.MergePreview) error                                             // Re-checks guards under lock, then applies a merge plan
	ApplyTransfer(ctx context.Context, sourceBillID, destBillID string, amount model.Money) (*model.Obligation, error) // Moves a residual credit as paired adjustments
}
