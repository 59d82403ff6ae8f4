// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package cache provides the durable local key/value store used for crash-safe
// copies of records and for the append-record outbox.
package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// LocalCache is a durable key/value store. Writes are visible to subsequent reads once the
// call returns and survive process restart (for the persistent backends).
type LocalCache interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// PendingWriteKey is where the crash-safe copy of a record being written is kept.
func PendingWriteKey(accountID, kind string) string {
	return fmt.Sprintf("pending:%s:%s", accountID, kind)
}

// OutboxKey is where the not-yet-acknowledged append records of an account are kept.
func OutboxKey(accountID string) string {
	return fmt.Sprintf("outbox:%s", accountID)
}
