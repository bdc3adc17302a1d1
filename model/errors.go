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

import "fmt"

// OverAllocationError rejects an allocate call whose requested total
// exceeds the transaction's unallocated remainder. Obligation-level
// overpayment is not in this category; it is allowed and surfaced.
type OverAllocationError struct {
	TransactionID string
	Requested     Money
	Remaining     Money
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("allocation of %s exceeds remaining %s on transaction %s",
		e.Requested, e.Remaining, e.TransactionID)
}

// NothingToCancelError is returned by cancel when a transaction has no
// active allocations.
type NothingToCancelError struct {
	TransactionID string
}

func (e *NothingToCancelError) Error() string {
	return fmt.Sprintf("transaction %s has no active allocations to cancel", e.TransactionID)
}

// DuplicateAliasError is returned when creating an alias for a payer
// name that already has one and replace was not requested.
type DuplicateAliasError struct {
	PayerName string
	ExistsFor string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("alias for payer %q already exists (party %s)", e.PayerName, e.ExistsFor)
}

// AliasInUseError refuses an alias deletion that would orphan settled
// allocations. Callers escalate with force to cascade-reverse them.
type AliasInUseError struct {
	PayerName      string
	ActiveAllocIDs []string
}

func (e *AliasInUseError) Error() string {
	return fmt.Sprintf("alias %q has %d active dependent allocations", e.PayerName, len(e.ActiveAllocIDs))
}

// AlreadyMergedError guards merge idempotency: a second commit on the
// same source bill fails without further state change.
type AlreadyMergedError struct {
	SourceBillID string
}

func (e *AlreadyMergedError) Error() string {
	return fmt.Sprintf("bill %s has already been merged", e.SourceBillID)
}

// NoTargetBillError reports that the successor contract has no bill in
// range of the source bill's end.
type NoTargetBillError struct {
	SourceBillID     string
	TargetContractID string
}

func (e *NoTargetBillError) Error() string {
	return fmt.Sprintf("contract %s has no bill adjacent to %s to merge into",
		e.TargetContractID, e.SourceBillID)
}

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing entity by kind and ID.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// TransferNotAllowedError refuses a balance transfer whose source bill
// or contract is not in a transferable state.
type TransferNotAllowedError struct {
	SourceBillID string
	Reason       string
}

func (e *TransferNotAllowedError) Error() string {
	return fmt.Sprintf("balance transfer from bill %s not allowed: %s", e.SourceBillID, e.Reason)
}
