// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Mirror receives confirmed account events for an external platform.
// Calls run in their own goroutine; failures are logged and never affect the account state.
type Mirror interface {
	CosmeticPurchased(ctx context.Context, accountID, itemID string) error
	GameCompleted(ctx context.Context, accountID string, result GameResult) error
}

const mirrorTimeout = 15 * time.Second

func (c *Container) mirror(name string, fn func(ctx context.Context, m Mirror) error) {
	m := c.deps.Mirror
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx, m); err != nil {
			logrus.Warnf("platform mirror %s failed: %v", name, err)
		}
	}()
}
