// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

// Economy procedure names understood by the remote store.
const (
	ProcedurePurchaseCosmetic   = "purchase_cosmetic"
	ProcedurePurchaseAvatarPart = "purchase_avatar_part"
	ProcedureTransferCoins      = "transfer_coins"
	ProcedureGiftCosmetic       = "gift_cosmetic"
)

// Rejection codes returned in ProcedureResult.Error.
const (
	RejectNotEnoughCoins   = "NOT_ENOUGH_COINS"
	RejectAlreadyOwned     = "ALREADY_OWNED"
	RejectUnknownAccount   = "UNKNOWN_ACCOUNT"
	RejectInvalidAmount    = "INVALID_AMOUNT"
	RejectUnknownProcedure = "UNKNOWN_PROCEDURE"
)

// ProcedureParams carries the inputs of an economy procedure.
// RequestID lets the server record which client action produced the ledger line.
type ProcedureParams struct {
	RequestID       string `json:"request_id"`
	AccountID       string `json:"account_id"`
	ItemID          string `json:"item_id,omitempty"`
	Price           int64  `json:"price,omitempty"`
	TargetAccountID string `json:"target_account_id,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
}

// ProcedureResult is the authoritative outcome of an economy procedure.
type ProcedureResult struct {
	Success          bool   `json:"success"`
	ResultingBalance int64  `json:"resulting_balance"`
	Error            string `json:"error,omitempty"`
}
