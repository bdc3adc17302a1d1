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
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/staffbooks/staffbooks/model"
)

// ResolvePayer maps a raw bank payer string to a canonical party.
// Order of attempts: exact case-normalized display-name match, then the
// alias table, then unresolved. Read-only; creating an alias is a
// separate explicit operation.
func (s *Staffbooks) ResolvePayer(ctx context.Context, payerName string) (*model.Resolution, error) {
	name := strings.TrimSpace(payerName)
	if name == "" {
		return &model.Resolution{MatchedBy: model.MatchedByNone}, nil
	}

	parties, err := s.datasource.GetPartiesByExactName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(parties) > 0 {
		// Customers sort first; on a customer/employee name collision the
		// customer wins but the ambiguity is surfaced so the categorizer
		// routes to manual allocation instead of auto-confirming.
		return &model.Resolution{
			Party:     parties[0],
			MatchedBy: model.MatchedByExactName,
			Ambiguous: len(parties) > 1,
		}, nil
	}

	alias, err := s.datasource.GetAliasByName(ctx, name)
	if err != nil {
		if _, notFound := err.(*model.NotFoundError); notFound {
			return &model.Resolution{MatchedBy: model.MatchedByNone}, nil
		}
		return nil, err
	}
	party, err := s.datasource.GetPartyByID(ctx, alias.PartyID)
	if err != nil {
		return nil, err
	}
	return &model.Resolution{
		Party:     party,
		MatchedBy: model.MatchedByAlias,
		AliasName: alias.PayerName,
	}, nil
}

// SearchParties returns candidates for a free-text query, ranked by edit
// distance between the query and the display name.
func (s *Staffbooks) SearchParties(ctx context.Context, query string) ([]model.PartyCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	parties, err := s.datasource.SearchPartiesByName(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.PartyCandidate, 0, len(parties))
	for _, p := range parties {
		distance := levenshtein.DistanceForStrings(
			[]rune(strings.ToLower(query)),
			[]rune(strings.ToLower(p.DisplayName)),
			levenshtein.DefaultOptions,
		)
		candidates = append(candidates, model.PartyCandidate{Party: *p, Distance: distance})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates, nil
}

// CreateAlias persists a payer-name mapping. Fails with
// DuplicateAliasError when an alias already exists for the name, unless
// replace is set, in which case the old mapping is dropped first.
func (s *Staffbooks) CreateAlias(ctx context.Context, payerName string, partyID string, contractID string, notes string, replace bool) (*model.PayerAlias, error) {
	payerName = strings.TrimSpace(payerName)
	if payerName == "" {
		return nil, &model.ValidationError{Field: "payer_name", Reason: "must not be empty"}
	}

	if _, err := s.datasource.GetPartyByID(ctx, partyID); err != nil {
		return nil, err
	}

	existing, err := s.datasource.GetAliasByName(ctx, payerName)
	if err == nil {
		if !replace {
			return nil, &model.DuplicateAliasError{PayerName: payerName, ExistsFor: existing.PartyID}
		}
		if err := s.datasource.DeleteAliasByName(ctx, payerName); err != nil {
			return nil, err
		}
	} else if _, notFound := err.(*model.NotFoundError); !notFound {
		return nil, err
	}

	alias := &model.PayerAlias{
		PayerName:  payerName,
		PartyID:    partyID,
		ContractID: contractID,
		Notes:      notes,
	}
	if err := s.datasource.RecordAlias(ctx, alias); err != nil {
		return nil, err
	}
	logrus.Infof("created payer alias %q -> %s", payerName, partyID)
	return alias, nil
}

func aliasLockKey(payerName string) string {
	return "lock:alias:" + payerName
}

// DeleteAlias unlinks a payer name. When active allocations were settled
// through the alias the deletion is refused with AliasInUseError unless
// force is set, which cascades: the dependent allocations are reversed
// and the alias deleted in one database transaction, so their
// transactions fall back to unmatched/manual on the next read and a
// failure partway changes nothing.
func (s *Staffbooks) DeleteAlias(ctx context.Context, payerName string, force bool) error {
	locker, err := s.acquireLock(ctx, aliasLockKey(payerName))
	if err != nil {
		return err
	}
	defer s.releaseLock(ctx, locker)

	if _, err := s.datasource.GetAliasByName(ctx, payerName); err != nil {
		return err
	}

	dependents, err := s.datasource.GetActiveAllocationsByAlias(ctx, payerName)
	if err != nil {
		return err
	}
	if len(dependents) == 0 {
		return s.datasource.DeleteAliasByName(ctx, payerName)
	}
	if !force {
		ids := make([]string, len(dependents))
		for i, a := range dependents {
			ids[i] = a.AllocationID
		}
		return &model.AliasInUseError{PayerName: payerName, ActiveAllocIDs: ids}
	}

	reversed, err := s.datasource.DeleteAliasCascade(ctx, payerName)
	if err != nil {
		return err
	}
	logrus.Warnf("force-deleting alias %q reversed %d allocations", payerName, len(reversed))
	return nil
}
