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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/staffbooks/staffbooks/config"
	"github.com/staffbooks/staffbooks/database/mocks"
	"github.com/staffbooks/staffbooks/model"
)

// newTestService builds a service over a mocked datasource and an
// in-process redis, the pair every service test runs against.
func newTestService(t *testing.T) (*Staffbooks, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(&config.Configuration{ProjectName: "staffbooks-test"})
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ds := new(mocks.MockDataSource)
	return &Staffbooks{datasource: ds, redis: client}, ds
}

func testBill(id string, due, allocated string) *model.Obligation {
	return &model.Obligation{
		ObligationID:   id,
		Kind:           model.ObligationCustomerBill,
		Side:           model.SideReceivable,
		OwnerPartyID:   "pty_owner",
		ContractID:     "ctr_1",
		Period:         model.Period{Year: 2025, Month: 6},
		TotalDue:       model.MustMoney(due),
		TotalAllocated: model.MustMoney(allocated),
		CreatedAt:      time.Now(),
	}
}

func testTransaction(id string, amount, allocated string) *model.BankTransaction {
	return &model.BankTransaction{
		TransactionID:     id,
		Direction:         model.DirectionCredit,
		Amount:            model.MustMoney(amount),
		AllocatedAmount:   model.MustMoney(allocated),
		PayerName:         "Jane Smith",
		TransactionTime:   time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC),
		ExternalReference: "ref-" + id,
		CreatedAt:         time.Now(),
	}
}
