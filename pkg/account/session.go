// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/common"
	"github.com/AccelByte/extend-account-sync/pkg/merge"
	"github.com/AccelByte/extend-account-sync/pkg/metrics"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/syncer"
)

const refreshTimeout = 15 * time.Second

// Load starts a session for accountID. The previous session, if any, is discarded without
// flushing. The remote copy is loaded with retries; an account the remote store does not know is
// created from defaults. Unacknowledged writes left in the local cache by an earlier process are
// merged over the remote copy and pushed again. Writes are enabled only once all of that succeeded.
func (c *Container) Load(ctx context.Context, accountID string) error {
	if accountID == "" {
		return invalid("empty account id")
	}

	scope := common.StartScope(ctx, "account.Load")
	defer scope.Finish()
	scope.Tag("account_id", accountID)

	epoch, err := c.begin(accountID)
	if err != nil {
		return err
	}

	loadScope := scope.Child("account.LoadRemote")
	snap, created, err := c.loadRemote(loadScope.Ctx, accountID)
	loadScope.Finish()
	if err != nil {
		outcome := metrics.OutcomeFailure
		if remote.IsUnauthorized(err) {
			outcome = metrics.OutcomeUnauthorized
		}
		metrics.SessionLoadTotal.WithLabelValues(outcome).Inc()
		scope.Fail(err)
		return fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	local := snap.Clone()
	dirty := make(map[model.RecordKind]model.FieldSet)
	for kind, pw := range c.deps.Syncer.Recover(scope.Ctx, accountID) {
		if err := pw.Overlay(&local); err != nil {
			scope.Log.Warnf("dropping pending %s of %s: %v", kind, accountID, err)
			continue
		}
		dirty[kind] = pw.FieldSet()
		scope.Log.Infof("recovered unacknowledged %s write of %s (version %d)", kind, accountID, pw.Version)
	}
	merged, diverged := merge.Snapshot(*snap, local, dirty)
	merged.Normalize()

	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return ErrSessionChanged
	}
	c.snap = merged
	c.ready = true
	c.mu.Unlock()

	if !c.deps.Syncer.Enable(epoch) {
		return ErrSessionChanged
	}
	for _, kind := range model.RecordKinds {
		metrics.MergeTotal.WithLabelValues(kind.String(), strconv.FormatBool(diverged[kind])).Inc()
		if !diverged[kind] {
			continue
		}
		var fields []string
		if fs, ok := dirty[kind]; ok {
			fields = fs.Slice()
		}
		c.deps.Syncer.MarkDirty(kind, fields...)
		c.deps.Syncer.ScheduleWrite(kind)
	}

	if n, err := c.deps.Outbox.Replay(scope.Ctx, accountID); err != nil {
		scope.Log.Warnf("failed to replay outbox of %s: %v", accountID, err)
	} else if n > 0 {
		scope.Count("outbox_replayed", n)
	}

	c.armRefresh(epoch)

	outcome := metrics.OutcomeSuccess
	if created {
		outcome = metrics.OutcomeNotFound
	}
	metrics.SessionLoadTotal.WithLabelValues(outcome).Inc()
	scope.Log.Infof("account %s loaded (created=%t, recovered=%d)", accountID, created, len(dirty))

	c.publish()
	return nil
}

// begin tears down the current session and installs a placeholder for accountID.
func (c *Container) begin(accountID string) (uint64, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.stopRefreshLocked()
	c.mu.Unlock()

	epoch := c.deps.Syncer.Begin(accountID)

	c.mu.Lock()
	c.epoch = epoch
	c.accountID = accountID
	c.ready = false
	c.snap = model.NewSnapshot(accountID)
	c.generation = make(map[model.RecordKind]uint64)
	c.mu.Unlock()

	c.publish()
	return epoch, nil
}

// loadRemote reads the remote copy, retrying failures other than a credentials rejection.
// A missing or partly created account is completed with defaults in one remote transaction
// and read back, so a concurrent first login on another device wins where it got there first.
// It reports created when this call wrote any records.
func (c *Container) loadRemote(ctx context.Context, accountID string) (*model.Snapshot, bool, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.loadRetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.opts.loadMaxRetries), ctx)

	var snap *model.Snapshot
	created := false
	err := backoff.RetryNotify(
		func() error {
			s, err := c.deps.Remote.Load(ctx, accountID)
			if errors.Is(err, remote.ErrNotFound) || errors.Is(err, remote.ErrIncomplete) {
				if err := c.deps.Remote.CreateAccount(ctx, model.NewSnapshot(accountID)); err != nil {
					if remote.IsUnauthorized(err) {
						return backoff.Permanent(err)
					}
					return err
				}
				created = true
				s, err = c.deps.Remote.Load(ctx, accountID)
			}
			switch {
			case remote.IsUnauthorized(err):
				return backoff.Permanent(err)
			case err != nil:
				return err
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("%w: %v", remote.ErrMalformed, err)
			}
			snap = s
			return nil
		},
		policy,
		func(err error, d time.Duration) {
			logrus.Warnf("loading account %s failed: %v, retrying in %s", accountID, err, d)
		},
	)
	if err != nil {
		return nil, false, err
	}
	return snap, created, nil
}

// Refresh pulls the remote copy and merges it into every record kind with no pending local write.
// Kinds whose merge result differs from the remote copy are pushed back.
func (c *Container) Refresh(ctx context.Context) error {
	c.mu.RLock()
	accountID, epoch, ready := c.accountID, c.epoch, c.ready
	generation := make(map[model.RecordKind]uint64, len(c.generation))
	for k, v := range c.generation {
		generation[k] = v
	}
	c.mu.RUnlock()

	if !ready {
		return ErrNotReady
	}
	if c.deps.Syncer.Halted() {
		return syncer.ErrHalted
	}

	remoteSnap, err := c.deps.Remote.Load(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to refresh account %s: %w", accountID, err)
	}
	if err := remoteSnap.Validate(); err != nil {
		return fmt.Errorf("failed to refresh account %s: %w: %v", accountID, remote.ErrMalformed, err)
	}

	skip := make(map[model.RecordKind]bool)
	for _, kind := range model.RecordKinds {
		skip[kind] = c.deps.Syncer.IsPending(kind)
	}

	var pushBack []model.RecordKind
	c.mu.Lock()
	if c.epoch != epoch || !c.ready {
		c.mu.Unlock()
		return ErrSessionChanged
	}
	next := c.snap.Clone()
	none := model.NewFieldSet()
	for _, kind := range model.RecordKinds {
		// a mutation after the pending check owns the kind until its own push
		if skip[kind] || c.generation[kind] != generation[kind] {
			continue
		}
		var diverged bool
		switch kind {
		case model.KindProfile:
			next.Profile, diverged = merge.Profile(remoteSnap.Profile, next.Profile, none)
		case model.KindAccountState:
			next.AccountState, diverged = merge.AccountState(remoteSnap.AccountState, next.AccountState, none)
		case model.KindSettings:
			next.Settings, diverged = merge.Settings(remoteSnap.Settings, next.Settings, none)
		}
		metrics.MergeTotal.WithLabelValues(kind.String(), strconv.FormatBool(diverged)).Inc()
		if diverged {
			pushBack = append(pushBack, kind)
		}
	}
	next.Normalize()
	c.snap = next
	c.mu.Unlock()

	for _, kind := range pushBack {
		c.deps.Syncer.MarkDirty(kind)
		c.deps.Syncer.ScheduleWrite(kind)
	}
	c.publish()
	return nil
}

func (c *Container) armRefresh(epoch uint64) {
	if c.opts.refreshInterval <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.closed {
		return
	}
	c.stopRefreshLocked()
	c.refreshTask = c.deps.Scheduler.AfterFunc(c.opts.refreshInterval, func() {
		c.onRefresh(epoch)
	})
}

func (c *Container) onRefresh(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.refreshTask = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	err := c.Refresh(ctx)
	cancel()
	if err != nil && !errors.Is(err, ErrSessionChanged) {
		logrus.Warnf("background refresh failed: %v", err)
	}
	if errors.Is(err, syncer.ErrHalted) {
		return
	}
	c.armRefresh(epoch)
}

func (c *Container) stopRefreshLocked() {
	if c.refreshTask != nil {
		c.refreshTask.Stop()
		c.refreshTask = nil
	}
}

// SetOnline records connectivity. Coming back online flushes the retry queue and replays the outbox.
func (c *Container) SetOnline(ctx context.Context, online bool) syncer.FlushResult {
	res := c.deps.Syncer.SetOnline(ctx, online)
	if online {
		if accountID := c.AccountID(); accountID != "" && c.Ready() {
			if _, err := c.deps.Outbox.Replay(ctx, accountID); err != nil {
				logrus.Warnf("failed to replay outbox of %s: %v", accountID, err)
			}
		}
	}
	return res
}

// Flush pushes every pending write now, bypassing the debounce window.
func (c *Container) Flush(ctx context.Context) syncer.FlushResult {
	return c.deps.Syncer.FlushNow(ctx)
}

// SignOut flushes what it can within ctx and ends the session. Writes not acknowledged by then
// stay in the local cache and are recovered at the account's next load.
func (c *Container) SignOut(ctx context.Context) syncer.FlushResult {
	var res syncer.FlushResult
	if c.Ready() && !c.Halted() {
		res = c.deps.Syncer.FlushNow(ctx)
		if !res.OK() {
			logrus.Warnf("signing out with unsynced records %v: %v", res.Pending, res.Err)
		}
	}
	c.end()
	return res
}

// Close ends the session without flushing and rejects further use.
func (c *Container) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.end()
}

func (c *Container) end() {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	c.mu.Lock()
	c.stopRefreshLocked()
	c.mu.Unlock()

	c.deps.Syncer.Reset()
	epoch := c.deps.Syncer.Epoch()

	c.mu.Lock()
	c.epoch = epoch
	c.accountID = ""
	c.ready = false
	c.snap = model.Snapshot{}
	c.generation = make(map[model.RecordKind]uint64)
	c.mu.Unlock()

	c.publish()
}
