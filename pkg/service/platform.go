// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"fmt"

	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclient/fulfillment"
	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclientmodels"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclient/user_statistic"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclientmodels"
)

// EntitlementService grants platform entitlements through fulfillment.
type EntitlementService struct {
	fulfillmentClient *platform.FulfillmentService
	cfg               EntitlementServiceConfig
}

type EntitlementServiceConfig struct {
	Namespace string
}

func NewEntitlementService(
	fulfillmentClient *platform.FulfillmentService,
	cfg EntitlementServiceConfig,
) *EntitlementService {
	return &EntitlementService{
		fulfillmentClient: fulfillmentClient,
		cfg:               cfg,
	}
}

func (s *EntitlementService) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	qty := int32(quantity)

	input := &fulfillment.FulfillItemParams{
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		Context:   ctx,
		Body: &platformclientmodels.FulfillmentRequest{
			ItemID:   itemID,
			Quantity: &qty,
			Source:   platformclientmodels.FulfillmentRequestSourceREWARD,
		},
	}

	resp, err := s.fulfillmentClient.FulfillItemShort(input)
	if err != nil {
		return fmt.Errorf("failed to fulfill item %s for %s: %w", itemID, userID, err)
	}
	if resp == nil {
		return fmt.Errorf("could not grant item %s to %s: empty response", itemID, userID)
	}

	return nil
}

// StatisticService increments platform user statistics.
type StatisticService struct {
	statisticsService *social.UserStatisticService
	cfg               StatisticServiceConfig
}

type StatisticServiceConfig struct {
	Namespace string
}

func NewStatisticService(
	statisticsService *social.UserStatisticService,
	cfg StatisticServiceConfig,
) *StatisticService {
	return &StatisticService{
		statisticsService: statisticsService,
		cfg:               cfg,
	}
}

func (s *StatisticService) IncrementStat(ctx context.Context, userID, statCode string, inc float64) error {
	input := &user_statistic.IncUserStatItemValueParams{
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		StatCode:  statCode,
		Context:   ctx,
		Body: &socialclientmodels.StatItemInc{
			Inc: inc,
		},
	}

	if _, err := s.statisticsService.IncUserStatItemValueShort(input); err != nil {
		return fmt.Errorf("failed to increment user %s statistic %s: %w", userID, statCode, err)
	}

	return nil
}
