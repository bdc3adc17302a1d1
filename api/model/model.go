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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/staffbooks/staffbooks/model"
)

// AllocationEntry is one requested apportionment in an allocate call.
// Amounts travel as strings so no float ever touches a money value.
type AllocationEntry struct {
	ObligationID   string `json:"obligation_id"`
	ObligationKind string `json:"obligation_kind"`
	Amount         string `json:"amount"`
}

// PersistAlias asks the allocate call to record the payer-name mapping
// the operator chose via search, so future statement lines resolve
// without manual work.
type PersistAlias struct {
	PartyID    string `json:"party_id"`
	ContractID string `json:"contract_id"`
	Notes      string `json:"notes"`
}

type AllocateRequest struct {
	Entries      []AllocationEntry `json:"entries"`
	PersistAlias *PersistAlias     `json:"persist_alias,omitempty"`
}

func (r *AllocateRequest) ValidateAllocateRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Entries, validation.Required, validation.Length(1, 0)),
	)
}

func (r *AllocateRequest) ToEntries() ([]model.AllocationEntry, error) {
	entries := make([]model.AllocationEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.ObligationID == "" {
			return nil, errors.New("obligation_id is required on every entry")
		}
		amount, err := model.MoneyFromString(e.Amount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.AllocationEntry{
			ObligationID:   e.ObligationID,
			ObligationKind: e.ObligationKind,
			Amount:         amount,
		})
	}
	return entries, nil
}

func (r *AllocateRequest) ToPersistAlias() (*model.PayerAlias, error) {
	if r.PersistAlias == nil {
		return nil, nil
	}
	if r.PersistAlias.PartyID == "" {
		return nil, errors.New("persist_alias.party_id is required")
	}
	return &model.PayerAlias{
		PartyID:    r.PersistAlias.PartyID,
		ContractID: r.PersistAlias.ContractID,
		Notes:      r.PersistAlias.Notes,
	}, nil
}

// AutoAllocateRequest names the obligation to smart-fill. An empty
// obligation_id means "confirm the current proposal".
type AutoAllocateRequest struct {
	ObligationID string `json:"obligation_id"`
}

type IgnoreRequest struct {
	Remark    string `json:"remark"`
	Permanent bool   `json:"permanent"`
}

type CreateAliasRequest struct {
	PayerName  string `json:"payer_name"`
	PartyID    string `json:"party_id"`
	ContractID string `json:"contract_id"`
	Notes      string `json:"notes"`
	Replace    bool   `json:"replace"`
}

func (r *CreateAliasRequest) ValidateCreateAliasRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PayerName, validation.Required),
		validation.Field(&r.PartyID, validation.Required),
	)
}

type MergeRequest struct {
	TargetContractID string `json:"target_contract_id"`
}

func (r *MergeRequest) ValidateMergeRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TargetContractID, validation.Required),
	)
}

type TransferRequest struct {
	BillID     string `json:"bill_id"`
	ContractID string `json:"contract_id"`
}

func (r *TransferRequest) ValidateTransferRequest() error {
	if (r.BillID == "" && r.ContractID == "") || (r.BillID != "" && r.ContractID != "") {
		return errors.New("either bill_id or contract_id is required, not both")
	}
	return nil
}

func (r *TransferRequest) ToDestination() model.TransferDestination {
	return model.TransferDestination{BillID: r.BillID, ContractID: r.ContractID}
}
