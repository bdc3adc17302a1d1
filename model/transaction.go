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

package model

import (
	"encoding/json"
	"time"
)

const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

// Transaction categories, in the priority order the categorizer
// evaluates them. Categories are derived on every read and never stored.
const (
	CategoryIgnored             = "ignored"
	CategoryProcessed           = "processed"
	CategoryConfirmed           = "confirmed"
	CategoryPendingConfirmation = "pending_confirmation"
	CategoryManualAllocation    = "manual_allocation"
	CategoryUnmatched           = "unmatched"
)

// BankTransaction is an imported bank statement line: an immutable money
// fact plus ignore bookkeeping. The allocated amount is an aggregate over
// active allocations, computed by the repository, never written directly.
type BankTransaction struct {
	ID                int64     `json:"-"`
	TransactionID     string    `json:"transaction_id"`
	Direction         string    `json:"direction"`
	Amount            Money     `json:"amount"`
	PayerName         string    `json:"payer_name"`
	TransactionTime   time.Time `json:"transaction_time"`
	ExternalReference string    `json:"external_reference"`
	Summary           string    `json:"summary,omitempty"`
	Ignored           bool      `json:"ignored"`
	IgnoreRemark      string    `json:"ignore_remark,omitempty"`
	PermanentIgnore   bool      `json:"permanent_ignore,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// Derived aggregate: sum of active allocation amounts.
	AllocatedAmount Money `json:"allocated_amount"`
}

// Remaining returns the unallocated remainder of the transaction.
func (t *BankTransaction) Remaining() Money {
	return t.Amount.Sub(t.AllocatedAmount)
}

func (t *BankTransaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// CategorizedTransaction pairs a transaction with its derived category
// and the resolution that produced it.
type CategorizedTransaction struct {
	Transaction BankTransaction `json:"transaction"`
	Category    string          `json:"category"`
	Resolution  *Resolution     `json:"resolution,omitempty"`
	Proposal    *Proposal       `json:"proposal,omitempty"`
}

// PeriodBuckets groups one period's transactions by derived category.
type PeriodBuckets struct {
	Period              Period                   `json:"period"`
	PendingConfirmation []CategorizedTransaction `json:"pending_confirmation"`
	ManualAllocation    []CategorizedTransaction `json:"manual_allocation"`
	Unmatched           []CategorizedTransaction `json:"unmatched"`
	Confirmed           []CategorizedTransaction `json:"confirmed"`
	Processed           []CategorizedTransaction `json:"processed"`
	Ignored             []CategorizedTransaction `json:"ignored"`
}
