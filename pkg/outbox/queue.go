// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package outbox delivers append-only records to the remote store in the background.
//
// Every entry is persisted to the local cache before it is queued and removed only after the
// remote store acknowledged it, so entries survive restarts and are replayed at the next load of
// their account. The remote store deduplicates by record id.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/cache"
	"github.com/AccelByte/extend-account-sync/pkg/metrics"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("outbox is closed")

// Config tunes the queue.
type Config struct {
	Capacity        int
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AppendTimeout   time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:        256,
		MaxAttempts:     8,
		InitialInterval: 2 * time.Second,
		MaxInterval:     2 * time.Minute,
		AppendTimeout:   10 * time.Second,
	}
}

type item struct {
	entry   model.AppendEntry
	attempt int
	backoff *backoff.ExponentialBackOff
}

// Queue is a bounded background delivery queue served by one worker.
type Queue struct {
	cfg       Config
	remote    remote.Store
	cache     cache.LocalCache
	scheduler schedule.Scheduler

	ch   chan *item
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	started bool
	queued  map[string]bool
	retries map[string]schedule.Task

	// persistMu serializes read-modify-write of the persisted lists.
	persistMu sync.Mutex
}

// NewQueue creates a queue. Start must be called before entries are delivered.
func NewQueue(cfg Config, store remote.Store, localCache cache.LocalCache, scheduler schedule.Scheduler) *Queue {
	d := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = d.Capacity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = d.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = d.MaxInterval
	}
	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = d.AppendTimeout
	}
	if scheduler == nil {
		scheduler = schedule.NewRealScheduler()
	}

	return &Queue{
		cfg:       cfg,
		remote:    store,
		cache:     localCache,
		scheduler: scheduler,
		ch:        make(chan *item, cfg.Capacity),
		done:      make(chan struct{}),
		queued:    make(map[string]bool),
		retries:   make(map[string]schedule.Task),
	}
}

// Start launches the worker.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true
	go q.run()
}

// Close stops the worker and pending retries. Undelivered entries stay persisted.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for id, t := range q.retries {
		t.Stop()
		delete(q.retries, id)
	}
	close(q.ch)
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.done
	}
}

// Enqueue persists entry and queues it for delivery. It never blocks; when the queue is full the
// entry stays persisted for the next replay and false is returned.
func (q *Queue) Enqueue(ctx context.Context, entry model.AppendEntry) (bool, error) {
	if entry.ID == "" || entry.AccountID == "" {
		return false, fmt.Errorf("append entry needs an id and an account id")
	}
	if q.isClosed() {
		return false, ErrClosed
	}
	if err := q.persist(ctx, entry); err != nil {
		logrus.Warnf("failed to persist %s record %s: %v", entry.Collection, entry.ID, err)
	}
	return q.offer(&item{entry: entry, backoff: q.newBackOff()}), nil
}

// Replay queues every persisted entry of accountID that is not already queued.
// It returns the number of entries queued.
func (q *Queue) Replay(ctx context.Context, accountID string) (int, error) {
	entries, err := q.load(ctx, accountID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if q.offer(&item{entry: e, backoff: q.newBackOff()}) {
			n++
		}
	}
	if n > 0 {
		logrus.Infof("replaying %d append records for %s", n, accountID)
	}
	return n, nil
}

// Persisted returns the entries of accountID not yet acknowledged.
func (q *Queue) Persisted(ctx context.Context, accountID string) ([]model.AppendEntry, error) {
	return q.load(ctx, accountID)
}

// Depth returns the number of entries queued or waiting for a retry.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued)
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.cfg.InitialInterval
	b.MaxInterval = q.cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// offer hands it to the worker unless it is already queued or the channel is full.
func (q *Queue) offer(it *item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.queued[it.entry.ID] {
		return false
	}
	select {
	case q.ch <- it:
		q.queued[it.entry.ID] = true
		metrics.OutboxDepth.Set(float64(len(q.queued)))
		return true
	default:
		logrus.Warnf("outbox full, %s record %s left for replay", it.entry.Collection, it.entry.ID)
		return false
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for it := range q.ch {
		q.deliver(it)
	}
}

func (q *Queue) deliver(it *item) {
	it.attempt++
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.AppendTimeout)
	err := q.remote.AppendRecord(ctx, it.entry)
	cancel()

	collection := string(it.entry.Collection)
	switch {
	case err == nil:
		metrics.AppendTotal.WithLabelValues(collection, metrics.OutcomeSuccess).Inc()
		q.finish(it, true)

	case remote.IsUnauthorized(err):
		metrics.AppendTotal.WithLabelValues(collection, metrics.OutcomeUnauthorized).Inc()
		logrus.Errorf("append of %s %s rejected, left for next session: %v", collection, it.entry.ID, err)
		q.finish(it, false)

	case !remote.IsTransient(err):
		metrics.AppendTotal.WithLabelValues(collection, metrics.OutcomeDropped).Inc()
		logrus.Errorf("append of %s %s failed permanently, dropping: %v", collection, it.entry.ID, err)
		q.finish(it, true)

	case it.attempt >= q.cfg.MaxAttempts:
		metrics.AppendTotal.WithLabelValues(collection, metrics.OutcomeFailure).Inc()
		logrus.Warnf("append of %s %s failed %d times, left for replay: %v", collection, it.entry.ID, it.attempt, err)
		q.finish(it, false)

	default:
		metrics.AppendTotal.WithLabelValues(collection, metrics.OutcomeFailure).Inc()
		logrus.Warnf("append of %s %s failed (attempt %d), retrying: %v", collection, it.entry.ID, it.attempt, err)
		q.scheduleRetry(it)
	}
}

func (q *Queue) scheduleRetry(it *item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	id := it.entry.ID
	q.retries[id] = q.scheduler.AfterFunc(it.backoff.NextBackOff(), func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.retries, id)
		if q.closed {
			return
		}
		select {
		case q.ch <- it:
		default:
			delete(q.queued, id)
			metrics.OutboxDepth.Set(float64(len(q.queued)))
			logrus.Warnf("outbox full, %s record %s left for replay", it.entry.Collection, id)
		}
	})
}

// finish releases the entry; acknowledged entries are removed from the persisted list.
func (q *Queue) finish(it *item, remove bool) {
	if remove {
		if err := q.unpersist(context.Background(), it.entry); err != nil {
			logrus.Warnf("failed to remove %s record %s from outbox: %v", it.entry.Collection, it.entry.ID, err)
		}
	}

	q.mu.Lock()
	delete(q.queued, it.entry.ID)
	metrics.OutboxDepth.Set(float64(len(q.queued)))
	q.mu.Unlock()
}

// ─── Persistence ────────────────────────────────────────────────────────────

func (q *Queue) load(ctx context.Context, accountID string) ([]model.AppendEntry, error) {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()
	return q.loadLocked(ctx, accountID)
}

func (q *Queue) loadLocked(ctx context.Context, accountID string) ([]model.AppendEntry, error) {
	data, ok, err := q.cache.Get(ctx, cache.OutboxKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var entries []model.AppendEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logrus.Warnf("discarding unreadable outbox of %s: %v", accountID, err)
		return nil, nil
	}
	return entries, nil
}

func (q *Queue) storeLocked(ctx context.Context, accountID string, entries []model.AppendEntry) error {
	if len(entries) == 0 {
		return q.cache.Clear(ctx, cache.OutboxKey(accountID))
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox: %w", err)
	}
	return q.cache.Set(ctx, cache.OutboxKey(accountID), data)
}

func (q *Queue) persist(ctx context.Context, entry model.AppendEntry) error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	entries, err := q.loadLocked(ctx, entry.AccountID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == entry.ID {
			return nil
		}
	}
	return q.storeLocked(ctx, entry.AccountID, append(entries, entry))
}

func (q *Queue) unpersist(ctx context.Context, entry model.AppendEntry) error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	entries, err := q.loadLocked(ctx, entry.AccountID)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != entry.ID {
			kept = append(kept, e)
		}
	}
	return q.storeLocked(ctx, entry.AccountID, kept)
}
