package economy

import (
	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// Action types understood by the factory.
const (
	TypePurchaseCosmetic   = "purchase_cosmetic"
	TypePurchaseAvatarPart = "purchase_avatar_part"
	TypeTransferCoins      = "transfer_coins"
	TypeGiftCosmetic       = "gift_cosmetic"
)

// Action turns a player request into a Plan: the optimistic local change and the remote
// procedure that settles it. Actions are registered in a Registry.
type Action interface {
	// ID returns unique action identifier.
	ID() string

	// Name returns human-readable action name.
	Name() string

	// Plan validates req against the current snapshot and describes the change.
	// Validation failures are returned as one of the package's sentinel errors.
	Plan(snap model.Snapshot, req Request) (Plan, error)

	// Config returns the action's configuration.
	Config() ActionConfig
}

// Request carries the player's input to an action.
type Request struct {
	ItemID          string
	TargetAccountID string
	Amount          int64
}

// Plan is the validated description of an economy action.
type Plan struct {
	ActionID  string
	Procedure string
	Params    model.ProcedureParams

	// CoinDelta is applied optimistically; negative for spends.
	CoinDelta        int64
	GrantCosmetics   []string
	GrantAvatarParts []string

	// Kinds lists the record kinds the optimistic change touches.
	Kinds []model.RecordKind
}

// Status is the outcome class of an economy action.
type Status int

const (
	// StatusConfirmed means the remote procedure applied the action.
	StatusConfirmed Status = iota
	// StatusRejected means the remote procedure refused it; the optimistic change was reverted.
	StatusRejected
	// StatusIndeterminate means the outcome is unknown; the optimistic change is kept and synced normally.
	StatusIndeterminate
	// StatusDeclined means the procedure was never invoked, either because local validation failed
	// or because the action could not be sent; no optimistic change is left applied.
	StatusDeclined
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	case StatusIndeterminate:
		return "indeterminate"
	case StatusDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// Result reports an economy action to the caller.
type Result struct {
	ActionID string
	Status   Status
	// Balance is the local balance after the action resolved.
	Balance int64
	// Reason is the server rejection code or the local validation error text.
	Reason string
	Err    error
}

// OK reports whether the action was confirmed.
func (r Result) OK() bool {
	return r.Status == StatusConfirmed
}
