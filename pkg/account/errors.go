// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import "errors"

var (
	// ErrNotReady is returned by mutations before the session's initial load succeeded.
	ErrNotReady = errors.New("account session is not loaded")

	// ErrSessionChanged is returned when a session ended while an operation was waiting on the network.
	ErrSessionChanged = errors.New("account session changed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("account container is closed")

	// ErrInvalidArgument is returned for malformed mutation input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotOwned is returned when equipping an item the player does not own.
	ErrNotOwned = errors.New("item not owned")
)
