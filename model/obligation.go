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
	"fmt"
	"time"
)

// Obligation kinds.
const (
	ObligationCustomerBill    = "customer_bill"
	ObligationEmployeePayroll = "employee_payroll"
	ObligationAdjustment      = "adjustment"
)

// Which side of the ledger an obligation sits on.
const (
	SideReceivable = "receivable"
	SidePayable    = "payable"
)

// Derived payment status of an obligation. Overpaid is a visible, valid
// state, not an error.
const (
	PaymentUnpaid        = "unpaid"
	PaymentPartiallyPaid = "partially_paid"
	PaymentPaid          = "paid"
	PaymentOverpaid      = "overpaid"
)

// Adjustment categories with workflow meaning. CompanyPaidSalary marks a
// placeholder adjustment that a bill merge renders redundant.
const (
	AdjustmentCompanyPaidSalary = "company_paid_salary"
	AdjustmentBalanceTransfer   = "balance_transfer"
	AdjustmentMergeCarry        = "merge_carry"
	AdjustmentManual            = "manual"
)

// Obligation is a payable or receivable record: a customer bill, an
// employee payroll item, or an ad-hoc financial adjustment. One struct
// with a Kind tag keeps the allocation ledger written once instead of
// three times.
type Obligation struct {
	ID           int64     `json:"-"`
	ObligationID string    `json:"obligation_id"`
	Kind         string    `json:"kind"`
	Side         string    `json:"side"`
	OwnerPartyID string    `json:"owner_party_id"`
	ContractID   string    `json:"contract_id,omitempty"`
	Period       Period    `json:"period"`
	TotalDue     Money     `json:"total_due"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	IsLastBill   bool      `json:"is_last_bill,omitempty"`
	IsMerged     bool      `json:"is_merged,omitempty"`
	// PairedObligationID links a customer bill to the payroll record of
	// the same engagement and period; merges move both together.
	PairedObligationID string    `json:"paired_obligation_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`

	// Derived aggregate: sum of active allocation amounts.
	TotalAllocated Money `json:"total_allocated"`
}

// RemainingDue returns totalDue minus totalAllocated. May go negative on
// overpayment; callers surface that, never clamp it.
func (o *Obligation) RemainingDue() Money {
	return o.TotalDue.Sub(o.TotalAllocated)
}

// Open reports whether the obligation still has an outstanding balance.
// Epsilon-tolerant: a bill short by half a cent of fee rounding is paid.
func (o *Obligation) Open() bool {
	return !o.IsMerged && o.RemainingDue().IsPositive() && !o.RemainingDue().ApproxZero()
}

// PaymentStatus derives the display status from the aggregates.
func (o *Obligation) PaymentStatus() string {
	remaining := o.RemainingDue()
	switch {
	case remaining.IsNegative() && !remaining.ApproxZero():
		return PaymentOverpaid
	case remaining.ApproxZero():
		return PaymentPaid
	case o.TotalAllocated.IsZero():
		return PaymentUnpaid
	default:
		return PaymentPartiallyPaid
	}
}

// Describe returns a one-line human description used in merge previews
// and allocation listings.
func (o *Obligation) Describe() string {
	switch o.Kind {
	case ObligationCustomerBill:
		return fmt.Sprintf("bill %s for %s", o.Period, o.OwnerPartyID)
	case ObligationEmployeePayroll:
		return fmt.Sprintf("payroll %s for %s", o.Period, o.OwnerPartyID)
	default:
		if o.Description != "" {
			return o.Description
		}
		return fmt.Sprintf("adjustment %s on %s", o.Period, o.OwnerPartyID)
	}
}
