// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/economy"
)

// InitEconomy loads the economy catalog and actions from path and returns the action registry.
//
// ============================================================
// DEVELOPER: Register custom economy action types here.
// ============================================================
// Steps to add a new action:
// 1. Implement economy.Action in pkg/economy (see builtin.go)
// 2. Register its factory with economy.RegisterActionType
// 3. Add the action to config/economy.yaml
// ============================================================
func InitEconomy(path string) (*economy.Registry, error) {
	cfg, err := economy.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load economy config from %s: %w", path, err)
	}
	logrus.Infof("loaded economy configuration from %s (%d catalog items)", path, len(cfg.Catalog))

	economy.RegisterBuiltinTypes(economy.NewCatalog(cfg.Catalog))

	registry := economy.NewRegistry()
	if err := economy.RegisterActions(registry, cfg.Actions); err != nil {
		return nil, fmt.Errorf("failed to register economy actions: %w", err)
	}
	logrus.Infof("registered %d economy actions", registry.Count())

	return registry, nil
}
