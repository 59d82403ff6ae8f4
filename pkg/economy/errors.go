package economy

import "errors"

var (
	// ErrInsufficientFunds indicates the local balance cannot cover the action.
	ErrInsufficientFunds = errors.New("insufficient coins")

	// ErrInvalidAmount indicates a non-positive or out-of-range coin amount.
	ErrInvalidAmount = errors.New("invalid coin amount")

	// ErrUnknownItem indicates an item id missing from the catalog or of the wrong kind.
	ErrUnknownItem = errors.New("unknown catalog item")

	// ErrAlreadyOwned indicates the item is already owned.
	ErrAlreadyOwned = errors.New("item already owned")

	// ErrNotGiftable indicates the item cannot be gifted.
	ErrNotGiftable = errors.New("item cannot be gifted")

	// ErrInvalidTarget indicates a missing target account or a transfer to oneself.
	ErrInvalidTarget = errors.New("invalid target account")

	// ErrActionNotFound indicates that a requested action doesn't exist in the registry.
	ErrActionNotFound = errors.New("action not found in registry")

	// ErrActionDisabled indicates that an action is disabled in configuration.
	ErrActionDisabled = errors.New("action is disabled")

	// ErrInvalidConfig indicates that an action's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid action configuration")
)
