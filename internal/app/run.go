// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Run starts the application, loads the configured account and blocks until a shutdown signal
// is received.
func (a *App) Run(ctx context.Context) error {
	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.session.Container.Load(ctx, a.cfg.AccountID); err != nil {
		logrus.Errorf("failed to load account %s: %v", a.cfg.AccountID, err)
		_ = a.Shutdown(context.Background())
		return err
	}
	logrus.Infof("session loaded for account %s", a.cfg.AccountID)

	if a.bot != nil {
		a.bot.Start()
	}

	logrus.Info("application started successfully")

	<-ctx.Done()

	logrus.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop producing writes (bot loop)
// 2. Flush pending records and sign out
// 3. Stop accepting new requests (gRPC + metrics servers)
// 4. Stop the outbox and close the stores (Postgres, local cache)
// 5. Flush telemetry data (OpenTelemetry)
//
// Records the flush could not push stay in the local cache and
// are recovered the next time the account is loaded.
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	// ============================================================
	// Step 1: Stop the bot loop
	// ============================================================
	if a.bot != nil {
		a.bot.Stop()
	}

	// ============================================================
	// Step 2: Flush and sign out
	// ============================================================
	if a.session != nil {
		flushCtx, cancel := context.WithTimeout(ctx, a.cfg.SyncFlushTimeout)
		res := a.session.Container.SignOut(flushCtx)
		cancel()
		if !res.OK() {
			logrus.Warnf("signed out with unsynced records %v: %v", res.Pending, res.Err)
		}
	}

	// ============================================================
	// Step 3: Shutdown servers (stop accepting new requests)
	// ============================================================
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		logrus.Errorf("gRPC server shutdown error: %v", err)
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		logrus.Errorf("metrics server shutdown error: %v", err)
	}

	// ============================================================
	// Step 4: Close external connections
	// ============================================================
	if a.session != nil {
		a.session.Close()
	}
	a.closeStores()

	// ============================================================
	// Step 5: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}

func (a *App) closeStores() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logrus.Errorf("Postgres close error: %v", err)
		}
		a.store = nil
	}
	if a.closeCache != nil {
		if err := a.closeCache(); err != nil {
			logrus.Errorf("local cache close error: %v", err)
		}
		a.closeCache = nil
	}
}
