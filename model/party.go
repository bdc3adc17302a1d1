package model

import "time"

const (
	PartyCustomer = "customer"
	PartyEmployee = "employee"
)

// Party is a canonical legal identity on one side of an obligation:
// a customer who owes bills or an employee owed payroll.
type Party struct {
	ID          int64     `json:"-"`
	PartyID     string    `json:"party_id"`
	Kind        string    `json:"kind"`
	DisplayName string    `json:"display_name"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PartyCandidate is one entry of a ranked party search result.
type PartyCandidate struct {
	Party    Party `json:"party"`
	Distance int   `json:"distance"`
}

const (
	ContractActive     = "active"
	ContractTerminated = "terminated"
	ContractFinished   = "finished"
)

// Contract links a customer to a service engagement. Bills hang off a
// contract; a renewal produces a successor contract.
type Contract struct {
	ID              int64      `json:"-"`
	ContractID      string     `json:"contract_id"`
	CustomerPartyID string     `json:"customer_party_id"`
	Status          string     `json:"status"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
