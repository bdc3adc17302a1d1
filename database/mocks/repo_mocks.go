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
package mocks

import (
	"context"

	"github.com/staffbooks/staffbooks/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface.
type MockDataSource struct {
	mock.Mock
}

// Bank transaction methods

func (m *MockDataSource) RecordBankTransaction(ctx context.Context, txn *model.BankTransaction) (*model.BankTransaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BankTransaction), args.Error(1)
}

func (m *MockDataSource) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BankTransaction), args.Error(1)
}

func (m *MockDataSource) TransactionExistsByRef(ctx context.Context, externalReference string) (bool, error) {
	args := m.Called(ctx, externalReference)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByPeriod(ctx context.Context, period model.Period) ([]*model.BankTransaction, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.BankTransaction), args.Error(1)
}

func (m *MockDataSource) UpdateIgnoreState(ctx context.Context, id string, ignored bool, remark string, permanent bool) error {
	args := m.Called(ctx, id, ignored, remark, permanent)
	return args.Error(0)
}

// Party methods

func (m *MockDataSource) CreateParty(ctx context.Context, p model.Party) (model.Party, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Party), args.Error(1)
}

func (m *MockDataSource) GetPartyByID(ctx context.Context, id string) (*model.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Party), args.Error(1)
}

func (m *MockDataSource) GetPartiesByExactName(ctx context.Context, name string) ([]*model.Party, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Party), args.Error(1)
}

func (m *MockDataSource) SearchPartiesByName(ctx context.Context, query string) ([]*model.Party, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Party), args.Error(1)
}

func (m *MockDataSource) CreateContract(ctx context.Context, c model.Contract) (model.Contract, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Contract), args.Error(1)
}

func (m *MockDataSource) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contract), args.Error(1)
}

// Obligation methods

func (m *MockDataSource) RecordObligation(ctx context.Context, ob *model.Obligation) (*model.Obligation, error) {
	args := m.Called(ctx, ob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetObligation(ctx context.Context, id string) (*model.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetObligationsByParty(ctx context.Context, partyID string, period model.Period) ([]*model.Obligation, error) {
	args := m.Called(ctx, partyID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetObligationsByContract(ctx context.Context, contractID string) ([]*model.Obligation, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetAdjustmentsByObligation(ctx context.Context, parentID string) ([]*model.Obligation, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetFirstBillOnOrAfter(ctx context.Context, contractID string, period model.Period) (*model.Obligation, error) {
	args := m.Called(ctx, contractID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Obligation), args.Error(1)
}

func (m *MockDataSource) GetLatestBillForContract(ctx context.Context, contractID string) (*model.Obligation, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Obligation), args.Error(1)
}

// Allocation methods

func (m *MockDataSource) AllocateTransaction(ctx context.Context, txnID string, entries []model.AllocationEntry, matchedAlias string) (*model.AllocationBatchResult, error) {
	args := m.Called(ctx, txnID, entries, matchedAlias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocationBatchResult), args.Error(1)
}

func (m *MockDataSource) ReverseAllocations(ctx context.Context, txnID string) ([]model.Allocation, error) {
	args := m.Called(ctx, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Allocation), args.Error(1)
}

func (m *MockDataSource) GetAllocationsByTransaction(ctx context.Context, txnID string) ([]model.Allocation, error) {
	args := m.Called(ctx, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Allocation), args.Error(1)
}

func (m *MockDataSource) GetActiveAllocationsByObligation(ctx context.Context, obligationID string) ([]model.Allocation, error) {
	args := m.Called(ctx, obligationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Allocation), args.Error(1)
}

func (m *MockDataSource) GetActiveAllocationsByAlias(ctx context.Context, payerName string) ([]model.Allocation, error) {
	args := m.Called(ctx, payerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Allocation), args.Error(1)
}

// Alias methods

func (m *MockDataSource) RecordAlias(ctx context.Context, a *model.PayerAlias) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockDataSource) GetAliasByName(ctx context.Context, payerName string) (*model.PayerAlias, error) {
	args := m.Called(ctx, payerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PayerAlias), args.Error(1)
}

func (m *MockDataSource) DeleteAliasByName(ctx context.Context, payerName string) error {
	args := m.Called(ctx, payerName)
	return args.Error(0)
}

func (m *MockDataSource) DeleteAliasCascade(ctx context.Context, payerName string) ([]model.Allocation, error) {
	args := m.Called(ctx, payerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Allocation), args.Error(1)
}

// Merge methods

func (m *MockDataSource) ApplyMerge(ctx context.Context, preview *model.MergePreview) error {
	args := m.Called(ctx, preview)
	return args.Error(0)
}

func (m *MockDataSource) ApplyTransfer(ctx context.Context, sourceBillID, destBillID string, amount model.Money) (*model.Obligation, error) {
	args := m.Called(ctx, sourceBillID, destBillID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Obligation), args.Error(1)
}
