package model

// Merge action kinds, describing what a commit will do to each record
// attached to the source bill and its paired payroll.
const (
	MergeActionReparentAllocation = "reparent_allocation"
	MergeActionCarryAdjustment    = "carry_adjustment"
	MergeActionDeleteAdjustment   = "delete_adjustment"
)

// MergeAction is one step of a bill merge, computed for preview and
// re-derived at commit time.
type MergeAction struct {
	Kind        string `json:"kind"`
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
	// Location names the record the action applies to: an allocation ID
	// or an adjustment obligation ID on the source side.
	Location string `json:"location"`
	// Target names the destination obligation for reparent/carry actions.
	Target string `json:"target,omitempty"`
}

// MergePreview is the full computed diff of a bill merge. Read-only;
// commit never trusts a previously returned preview.
type MergePreview struct {
	SourceBill    Obligation    `json:"source_bill"`
	SourcePayroll *Obligation   `json:"source_payroll,omitempty"`
	TargetBill    Obligation    `json:"target_bill"`
	TargetPayroll *Obligation   `json:"target_payroll,omitempty"`
	Actions       []MergeAction `json:"actions"`
	// CarriedBalance is the source bill's remaining due that the merge
	// moves onto the target as a carry adjustment.
	CarriedBalance Money `json:"carried_balance"`
}

// TransferDestination addresses where a residual deposit balance goes:
// either a concrete bill or a contract whose latest bill receives it.
type TransferDestination struct {
	BillID     string `json:"bill_id,omitempty"`
	ContractID string `json:"contract_id,omitempty"`
}
