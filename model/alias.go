package model

import "time"

// How a payer name resolved to a party.
const (
	MatchedByExactName = "exact_name"
	MatchedByAlias     = "alias"
	MatchedByNone      = "unresolved"
)

// PayerAlias maps a raw bank payer string to a canonical party, for the
// common case of a relative paying on a customer's behalf.
type PayerAlias struct {
	ID         int64     `json:"-"`
	AliasID    string    `json:"alias_id"`
	PayerName  string    `json:"payer_name"`
	PartyID    string    `json:"party_id"`
	ContractID string    `json:"contract_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolution is the outcome of resolving a raw payer name.
type Resolution struct {
	Party     *Party `json:"party,omitempty"`
	MatchedBy string `json:"matched_by"`
	AliasName string `json:"alias_name,omitempty"`
	// Ambiguous is set when the raw name exact-matched more than one
	// party. The categorizer must not auto-confirm such a resolution.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Proposal is a high-confidence single-obligation match the system
// suggests for operator confirmation.
type Proposal struct {
	Obligation Obligation `json:"obligation"`
	Amount     Money      `json:"amount"`
}
