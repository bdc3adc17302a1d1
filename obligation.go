package staffbooks

import (
	"context"

	"github.com/staffbooks/staffbooks/model"
)

// GetPartyObligations lists a party's obligations for a period, with
// derived totals attached by the repository.
func (s *Staffbooks) GetPartyObligations(ctx context.Context, partyID string, period model.Period) ([]*model.Obligation, error) {
	if _, err := s.datasource.GetPartyByID(ctx, partyID); err != nil {
		return nil, err
	}
	return s.datasource.GetObligationsByParty(ctx, partyID, period)
}

// GetObligation returns one obligation with its allocation history.
func (s *Staffbooks) GetObligation(ctx context.Context, id string) (*model.Obligation, []model.Allocation, error) {
	ob, err := s.datasource.GetObligation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := s.datasource.GetActiveAllocationsByObligation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ob, allocations, nil
}
