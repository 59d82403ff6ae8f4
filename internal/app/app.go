// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-account-sync/internal/bootstrap"
	"github.com/AccelByte/extend-account-sync/internal/config"
	"github.com/AccelByte/extend-account-sync/internal/server"
	"github.com/AccelByte/extend-account-sync/pkg/account"
	"github.com/AccelByte/extend-account-sync/pkg/cache"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/service"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	localCache        cache.LocalCache
	closeCache        func() error
	store             *remote.PostgresStore
	session           *bootstrap.Session
	bot               *Bot
	shutdownTelemetry func(context.Context) error

	// AccelByte SDK repositories, set only when the platform mirror is enabled
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. AccelByte SDK (only when PLATFORM_MIRROR_ENABLED)
// 2. Local cache (redis | sqlite | memory)
// 3. Remote store (Postgres)
// 4. Economy catalog and actions (YAML configuration)
// 5. Sync stack (sync service → outbox → account container)
// 6. Servers (gRPC health, metrics)
// 7. Telemetry (OpenTelemetry tracing)
//
// The session itself is loaded in Run, so a slow remote store
// delays readiness instead of failing startup.
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Initialize Client Auth using AccelByte SDK
	// ============================================================
	var mirror account.Mirror
	if cfg.PlatformMirrorEnabled {
		if err := app.initAccelByteSDKAuth(); err != nil {
			return nil, fmt.Errorf("failed to init AccelByte SDK: %w", err)
		}
		mirror = app.initPlatformMirror()
		logrus.Infof("platform mirror enabled for namespace %s", cfg.ABNamespace)
	}

	// ============================================================
	// Step 2: Initialize local cache
	// ============================================================
	localCache, closeCache, err := bootstrap.InitLocalCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init local cache: %w", err)
	}
	app.localCache = localCache
	app.closeCache = closeCache

	// ============================================================
	// Step 3: Initialize remote store
	// ============================================================
	store, err := remote.OpenPostgresStore(ctx, remote.PostgresStoreConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		ConnMaxLifetime: cfg.PostgresConnMaxLife,
		ConnectRetries:  cfg.PostgresConnectRetries,
	})
	if err != nil {
		return app.abort(fmt.Errorf("failed to init remote store: %w", err))
	}
	app.store = store
	logrus.Info("remote store initialized")

	// ============================================================
	// Step 4: Load economy configuration
	// ============================================================
	actions, err := bootstrap.InitEconomy(cfg.EconomyConfigPath)
	if err != nil {
		return app.abort(err)
	}

	// ============================================================
	// Step 5: Wire the sync stack
	// ============================================================
	session, err := bootstrap.InitSession(cfg, store, localCache, actions, mirror)
	if err != nil {
		return app.abort(err)
	}
	app.session = session

	if cfg.BotEnabled {
		app.bot = NewBot(session.Container, cfg.BotInterval, cfg.BotSeed)
	}

	// ============================================================
	// Steps 6 and 7: Setup servers and telemetry
	// ============================================================
	if err := app.initServing(ctx); err != nil {
		return app.abort(err)
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initServing sets up the gRPC health and metrics servers, then telemetry. Nothing listens
// until Run.
func (a *App) initServing(ctx context.Context) error {
	health := cache.NewHealthChecker(a.localCache)
	ready := func(ctx context.Context) bool {
		c := a.session.Container
		return c.Ready() && !c.Halted() && health.IsHealthy(ctx)
	}
	a.grpcServer = server.NewGRPCServer(a.cfg.GRPCPort, ready, 5*time.Second)
	if err := a.grpcServer.Setup(); err != nil {
		return fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	a.metricsServer = server.NewMetricsServer(a.cfg.MetricsPort, "/metrics")
	if err := a.metricsServer.Setup(); err != nil {
		return fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if a.cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, a.cfg.ServiceName, a.cfg.Environment, 0)
		if err != nil {
			return fmt.Errorf("failed to setup telemetry: %w", err)
		}
		a.shutdownTelemetry = shutdownTelemetry
	}
	return nil
}

// abort releases what New opened before err and returns err.
func (a *App) abort(err error) (*App, error) {
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	a.closeStores()
	return nil, err
}

// initAccelByteSDKAuth initializes the AccelByte SDK auth by performing client login.
//
// ============================================================
// DEVELOPER: AccelByte Client Auth configuration
// ============================================================
// The Client Auth is configured via environment variables:
// - AB_BASE_URL: AccelByte platform base URL
// - AB_CLIENT_ID: OAuth2 client ID
// - AB_CLIENT_SECRET: OAuth2 client secret
// - AB_NAMESPACE: Game namespace
//
// The SDK uses automatic token refresh (RefreshRate: 0.8 = 80% of TTL).
//
// IMPORTANT: The configRepo and tokenRepo are stored in the App struct
// and must be reused by all AccelByte services to share authentication.
// ============================================================
func (a *App) initAccelByteSDKAuth() error {
	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()
	refreshRepo := &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8}

	oauthService := iam.OAuth20Service{
		Client:                 factory.NewIamClient(a.configRepo),
		ConfigRepository:       a.configRepo,
		TokenRepository:        a.tokenRepo,
		RefreshTokenRepository: refreshRepo,
	}

	clientID := a.configRepo.GetClientId()
	clientSecret := a.configRepo.GetClientSecret()

	if err := oauthService.LoginClient(&clientID, &clientSecret); err != nil {
		return fmt.Errorf("unable to login using clientId and clientSecret: %w", err)
	}

	logrus.Info("AccelByte SDK initialized and authenticated")
	return nil
}

// initPlatformMirror builds the mirror that copies confirmed purchases and finished games to
// the AccelByte platform.
//
// IMPORTANT: Reuses a.configRepo and a.tokenRepo to share the authenticated
// session from initAccelByteSDKAuth(). Do NOT create new repository instances.
func (a *App) initPlatformMirror() *service.PlatformMirror {
	fulfillmentService := &platform.FulfillmentService{
		Client:           factory.NewPlatformClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}
	granter := service.NewEntitlementService(fulfillmentService, service.EntitlementServiceConfig{
		Namespace: a.cfg.ABNamespace,
	})

	statisticService := &social.UserStatisticService{
		Client:           factory.NewSocialClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}
	stats := service.NewStatisticService(statisticService, service.StatisticServiceConfig{
		Namespace: a.cfg.ABNamespace,
	})

	return service.NewPlatformMirror(granter, stats, service.MirrorConfig{
		ItemPrefix:         a.cfg.MirrorItemPrefix,
		StatGamesPlayed:    a.cfg.MirrorStatGames,
		StatCountriesFound: a.cfg.MirrorStatCountries,
		StatCoinsEarned:    a.cfg.MirrorStatCoins,
		MaxRetries:         a.cfg.MirrorMaxRetries,
	})
}
