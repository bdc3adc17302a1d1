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
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/staffbooks/staffbooks/config"
	"github.com/staffbooks/staffbooks/database"
	"github.com/staffbooks/staffbooks/internal/redisdb"
)

// Staffbooks is the reconciliation service: payer resolution, transaction
// categorization, the allocation ledger, and the bill merge/transfer
// engine, all over one datasource.
type Staffbooks struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
}

// NewStaffbooks initializes the service from the loaded configuration.
func NewStaffbooks(db database.IDataSource) (*Staffbooks, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redisdb.NewRedisClient(fmt.Sprintf("redis://%s", configuration.Redis.Dns))
	if err != nil {
		return nil, err
	}
	return &Staffbooks{datasource: db, redis: redisClient.Client()}, nil
}
