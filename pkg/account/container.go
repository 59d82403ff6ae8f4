// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package account holds the in-memory state of one player session.
//
// A Container owns the canonical copy of the player's records. Every mutation replaces the
// current snapshot synchronously, marks the owning records dirty in the sync service and
// schedules their write. Outbound writes stay blocked until the session's initial remote load
// succeeded, so placeholder state never reaches the remote store.
package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
	"github.com/AccelByte/extend-account-sync/pkg/syncer"
)

// Container is the explicit session context of one signed-in player.
type Container struct {
	deps       Deps
	opts       options
	reconciler *Reconciler

	// sessionMu orders session switches so epochs are assigned monotonically.
	sessionMu sync.Mutex

	mu          sync.RWMutex
	snap        model.Snapshot
	accountID   string
	ready       bool
	closed      bool
	epoch       uint64
	generation  map[model.RecordKind]uint64
	refreshTask schedule.Task

	notifyMu     sync.Mutex
	observerMu   sync.Mutex
	observers    map[int]func(model.Snapshot)
	nextObserver int
}

// NewContainer creates a container with no session. Load starts one.
func NewContainer(deps Deps, opts ...Option) (*Container, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Scheduler == nil {
		deps.Scheduler = schedule.NewRealScheduler()
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		deps:       deps,
		opts:       o,
		generation: make(map[model.RecordKind]uint64),
		observers:  make(map[int]func(model.Snapshot)),
	}
	c.reconciler = newReconciler(c, deps.Actions, o.economyTimeout)
	deps.Syncer.SetSource(c)
	return c, nil
}

// SyncSnapshot implements syncer.Source.
func (c *Container) SyncSnapshot() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() model.Snapshot {
	return c.SyncSnapshot()
}

func (c *Container) Profile() model.PlayerProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Profile.Clone()
}

func (c *Container) AccountState() model.AccountState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.AccountState.Clone()
}

func (c *Container) Settings() model.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Settings.Clone()
}

// Balance returns the local coin balance.
func (c *Container) Balance() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Profile.Coins
}

// AccountID returns the account of the current session, or "" without one.
func (c *Container) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// Ready reports whether the current session finished its initial load.
func (c *Container) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Halted reports whether sync stopped after the remote store rejected the session.
func (c *Container) Halted() bool {
	return c.deps.Syncer.Halted()
}

// SyncStatus returns the write state of one record kind.
func (c *Container) SyncStatus(kind model.RecordKind) syncer.Status {
	return c.deps.Syncer.Status(kind)
}

// Subscribe registers fn to receive the new snapshot after every state change.
// fn runs synchronously on the goroutine that made the change and must not call mutation methods.
func (c *Container) Subscribe(fn func(model.Snapshot)) (cancel func()) {
	c.observerMu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.observerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.observerMu.Lock()
			delete(c.observers, id)
			c.observerMu.Unlock()
		})
	}
}

func (c *Container) publish() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.observerMu.Lock()
	fns := make([]func(model.Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.observerMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// ─── Mutation plumbing ──────────────────────────────────────────────────────

// change collects what a mutation touched.
type change struct {
	fields  map[model.RecordKind][]string
	appends []model.AppendEntry
}

func (ch *change) touch(kind model.RecordKind, fields ...string) {
	if ch.fields == nil {
		ch.fields = make(map[model.RecordKind][]string)
	}
	ch.fields[kind] = append(ch.fields[kind], fields...)
}

func (ch *change) record(entry model.AppendEntry, err error) {
	if err != nil {
		logrus.Errorf("failed to build %s record: %v", entry.Collection, err)
		return
	}
	ch.appends = append(ch.appends, entry)
}

func (ch *change) empty() bool {
	return len(ch.fields) == 0 && len(ch.appends) == 0
}

// mutate applies fn to a copy of the current snapshot and makes it current. A mutation that
// returns an error or touches nothing leaves the state as it was.
func (c *Container) mutate(fn func(s *model.Snapshot, ch *change) error) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	next := c.snap.Clone()
	var ch change
	if err := fn(&next, &ch); err != nil || ch.empty() {
		c.mu.Unlock()
		return err
	}
	c.stampLocked(&next, ch.fields)
	c.snap = next
	c.mu.Unlock()

	c.commit(ch)
	return nil
}

func (c *Container) usableLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case !c.ready:
		return ErrNotReady
	}
	return nil
}

func (c *Container) stampLocked(s *model.Snapshot, touched map[model.RecordKind][]string) {
	now := c.opts.now().UTC()
	for kind := range touched {
		c.generation[kind]++
		switch kind {
		case model.KindProfile:
			s.Profile.UpdatedAt = now
		case model.KindAccountState:
			s.AccountState.UpdatedAt = now
		case model.KindSettings:
			s.Settings.UpdatedAt = now
		}
	}
}

// commit hands a change to the sync layer. It must be called without c.mu held.
func (c *Container) commit(ch change) {
	for _, kind := range model.RecordKinds {
		fields, ok := ch.fields[kind]
		if !ok {
			continue
		}
		c.deps.Syncer.MarkDirty(kind, fields...)
		c.deps.Syncer.ScheduleWrite(kind)
	}
	for _, entry := range ch.appends {
		c.enqueue(entry)
	}
	c.publish()
}

func (c *Container) enqueue(entry model.AppendEntry) {
	ok, err := c.deps.Outbox.Enqueue(context.Background(), entry)
	switch {
	case err != nil:
		logrus.Warnf("failed to queue %s record %s: %v", entry.Collection, entry.ID, err)
	case !ok:
		logrus.Debugf("%s record %s left for replay", entry.Collection, entry.ID)
	}
}

func (c *Container) coinEntry(s *model.Snapshot, delta int64, source string) (model.AppendEntry, error) {
	return model.NewCoinActivityEntry(model.CoinActivityRecord{
		AccountID:    s.AccountID,
		Delta:        delta,
		Source:       source,
		BalanceAfter: s.Profile.Coins,
		CreatedAt:    c.opts.now().UTC(),
	})
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
