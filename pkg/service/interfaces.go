// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
)

// Platform interfaces the mirror depends on. The AccelByte-backed implementations live in
// platform.go; pkg/service/mock has call-tracking fakes.

type EntitlementGranter interface {
	// GrantEntitlement grants quantity of itemID to userID.
	GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error
}

type StatIncrementer interface {
	// IncrementStat adds inc to the statCode statistic of userID.
	IncrementStat(ctx context.Context, userID, statCode string, inc float64) error
}
