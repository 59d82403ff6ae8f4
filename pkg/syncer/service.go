// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package syncer owns the write path from the in-memory account state to the remote store.
//
// Each record kind moves through Clean, Dirty and Flushing. A mutation bumps the kind's version
// and writes a crash-safe copy to the local cache; a debounced flush pushes the record and clears
// the dirty flag only when the version captured at flush start is still current. Failed pushes
// wait in a retry queue driven by an exponential backoff. All timers belong to a session epoch,
// and outcomes of work started under an older epoch are discarded.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/AccelByte/extend-account-sync/pkg/cache"
	"github.com/AccelByte/extend-account-sync/pkg/metrics"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
)

var (
	// ErrNotReady is reported by a flush before the session finished loading.
	ErrNotReady = errors.New("sync is not enabled for this session")

	// ErrHalted is reported by a flush after the remote store rejected the session credentials.
	ErrHalted = errors.New("sync halted: session credentials rejected")

	// ErrOffline is reported by a flush while connectivity is down; dirty records wait in the retry queue.
	ErrOffline = errors.New("offline: writes queued for retry")
)

// Status is the write state of one record kind.
type Status int

const (
	StatusClean Status = iota
	StatusDirty
	StatusFlushing
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusDirty:
		return "dirty"
	case StatusFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Source provides the state being synchronized.
// SyncSnapshot is called with the service lock held and must not call back into the service.
type Source interface {
	SyncSnapshot() model.Snapshot
}

// FlushResult describes what one flush achieved.
type FlushResult struct {
	// Pushed lists kinds acknowledged by the remote store and now clean.
	Pushed []model.RecordKind
	// Pending lists kinds still dirty after the flush.
	Pending []model.RecordKind
	// Err is the first failure, if any.
	Err error
}

// OK reports whether nothing is left to write.
func (r FlushResult) OK() bool {
	return r.Err == nil && len(r.Pending) == 0
}

type record struct {
	status  Status
	dirty   bool
	version uint64
	fields  model.FieldSet
	timer   schedule.Task
}

// Service coalesces and pushes record writes of one session at a time.
type Service struct {
	cfg       Config
	remote    remote.Store
	cache     cache.LocalCache
	scheduler schedule.Scheduler
	source    Source

	flight singleflight.Group

	mu         sync.Mutex
	inflight   chan struct{}
	epoch      uint64
	accountID  string
	enabled    bool
	halted     bool
	online     bool
	records    map[model.RecordKind]*record
	suppressed map[model.RecordKind]int
	retry      map[model.RecordKind]bool
	retryTask  schedule.Task
	backoff    *backoff.ExponentialBackOff
}

// NewService creates a service with no active session. The source must be set with SetSource
// before the first session begins.
func NewService(cfg Config, store remote.Store, localCache cache.LocalCache, scheduler schedule.Scheduler) *Service {
	cfg = cfg.withDefaults()
	if scheduler == nil {
		scheduler = schedule.NewRealScheduler()
	}
	s := &Service{
		cfg:        cfg,
		remote:     store,
		cache:      localCache,
		scheduler:  scheduler,
		online:     true,
		suppressed: make(map[model.RecordKind]int),
		retry:      make(map[model.RecordKind]bool),
		backoff:    cfg.Retry.NewBackOff(),
	}
	s.records = freshRecords()
	return s
}

func freshRecords() map[model.RecordKind]*record {
	out := make(map[model.RecordKind]*record, len(model.RecordKinds))
	for _, k := range model.RecordKinds {
		out[k] = &record{fields: model.NewFieldSet()}
	}
	return out
}

// SetSource sets the provider of snapshots to push.
func (s *Service) SetSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// Begin starts a new session for accountID. Everything belonging to the previous session is
// discarded and writes stay blocked until Enable.
func (s *Service) Begin(accountID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.accountID = accountID
	return s.epoch
}

// Enable opens the write path once the session's initial load succeeded. It does nothing when
// epoch is no longer the current session.
func (s *Service) Enable(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.accountID == "" {
		return false
	}
	s.enabled = true
	return true
}

// Reset ends the current session without writing anything.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.accountID = ""
}

func (s *Service) teardownLocked() {
	s.epoch++
	for _, rec := range s.records {
		if rec.timer != nil {
			rec.timer.Stop()
		}
	}
	if s.retryTask != nil {
		s.retryTask.Stop()
		s.retryTask = nil
	}
	s.records = freshRecords()
	s.suppressed = make(map[model.RecordKind]int)
	s.retry = make(map[model.RecordKind]bool)
	s.enabled = false
	s.halted = false
	s.backoff.Reset()
	metrics.RetryQueueDepth.Set(0)
}

// Epoch returns the current session epoch.
func (s *Service) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// MarkDirty records a mutation of kind. fields names the point-in-time fields it touched.
// The crash-safe copy of the record is written before MarkDirty returns.
// Mutations before Enable are ignored.
func (s *Service) MarkDirty(kind model.RecordKind, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.halted || s.source == nil {
		return
	}
	rec, ok := s.records[kind]
	if !ok {
		logrus.Warnf("mark dirty: unknown record kind %q", kind)
		return
	}

	rec.version++
	rec.dirty = true
	rec.fields.Add(fields...)
	if rec.status == StatusClean {
		rec.status = StatusDirty
	}
	s.persistLocked(kind, rec, s.source.SyncSnapshot())
}

// ScheduleWrite arms the debounce timer of kind. A timer already armed is left alone, so a burst
// of mutations produces one write at most one window after the first of them.
func (s *Service) ScheduleWrite(kind model.RecordKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(kind)
}

func (s *Service) scheduleLocked(kind model.RecordKind) {
	rec, ok := s.records[kind]
	if !ok || !s.enabled || s.halted || !rec.dirty || rec.timer != nil || s.retry[kind] || s.suppressed[kind] > 0 {
		return
	}
	epoch := s.epoch
	rec.timer = s.scheduler.AfterFunc(s.cfg.Debounce, func() {
		s.onDebounce(epoch, kind)
	})
}

func (s *Service) onDebounce(epoch uint64, kind model.RecordKind) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.records[kind].timer = nil
	s.mu.Unlock()

	s.Flush(context.Background())
}

// Flush pushes every dirty, unsuppressed record now. Concurrent callers share one in-flight flush.
// ctx bounds only the wait; the flush itself continues and its outcome is still applied.
func (s *Service) Flush(ctx context.Context) FlushResult {
	s.mu.Lock()
	key := "flush:" + strconv.FormatUint(s.epoch, 10)
	s.mu.Unlock()

	ch := s.flight.DoChan(key, func() (interface{}, error) {
		done := s.beginFlight()
		defer done()
		return s.flushAll(), nil
	})
	select {
	case res := <-ch:
		return res.Val.(FlushResult)
	case <-ctx.Done():
		return FlushResult{Err: ctx.Err()}
	}
}

// Await waits until no flush is in flight. It never starts one.
func (s *Service) Await(ctx context.Context) error {
	s.mu.Lock()
	ch := s.inflight
	s.mu.Unlock()

	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) beginFlight() (done func()) {
	s.mu.Lock()
	ch := make(chan struct{})
	s.inflight = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.inflight == ch {
			s.inflight = nil
		}
		s.mu.Unlock()
		close(ch)
	}
}

// FlushNow bypasses the debounce window. When the call joined a flush that started before the
// latest mutation, a second round is run for what that flush left behind.
func (s *Service) FlushNow(ctx context.Context) FlushResult {
	res := s.Flush(ctx)
	if ctx.Err() != nil || errors.Is(res.Err, ErrHalted) || errors.Is(res.Err, ErrOffline) || errors.Is(res.Err, ErrNotReady) {
		return res
	}
	if !s.hasFlushable() {
		return res
	}
	second := s.Flush(ctx)
	second.Pushed = append(res.Pushed, second.Pushed...)
	return second
}

// hasFlushable reports whether a dirty kind could be pushed right now.
// Kinds waiting in the retry queue are left to the retry timer.
func (s *Service) hasFlushable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.halted || !s.online {
		return false
	}
	for _, k := range model.RecordKinds {
		if s.records[k].dirty && !s.retry[k] && s.suppressed[k] == 0 {
			return true
		}
	}
	return false
}

func (s *Service) flushAll() FlushResult {
	s.mu.Lock()
	epoch := s.epoch
	switch {
	case s.halted:
		s.mu.Unlock()
		return FlushResult{Err: ErrHalted}
	case !s.enabled:
		s.mu.Unlock()
		return FlushResult{Err: ErrNotReady}
	}

	var kinds []model.RecordKind
	for _, k := range model.RecordKinds {
		rec := s.records[k]
		if !rec.dirty || s.suppressed[k] > 0 {
			continue
		}
		if rec.timer != nil {
			rec.timer.Stop()
			rec.timer = nil
		}
		kinds = append(kinds, k)
	}

	if !s.online {
		for _, k := range kinds {
			s.retry[k] = true
			metrics.FlushTotal.WithLabelValues(k.String(), metrics.OutcomeOffline).Inc()
		}
		metrics.RetryQueueDepth.Set(float64(len(s.retry)))
		res := FlushResult{Err: ErrOffline}
		res.Pending = s.pendingLocked()
		s.mu.Unlock()
		return res
	}
	s.mu.Unlock()

	var res FlushResult
	for _, k := range kinds {
		pushed, err := s.flushKind(epoch, k)
		if pushed {
			res.Pushed = append(res.Pushed, k)
		}
		if err != nil && res.Err == nil {
			res.Err = err
		}
		if errors.Is(err, ErrHalted) {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return res
	}
	for _, k := range model.RecordKinds {
		s.scheduleLocked(k)
	}
	res.Pending = s.pendingLocked()
	return res
}

// flushKind pushes one record. It reports whether the kind became clean.
func (s *Service) flushKind(epoch uint64, kind model.RecordKind) (bool, error) {
	s.mu.Lock()
	if s.epoch != epoch || !s.enabled || s.halted || s.source == nil {
		s.mu.Unlock()
		return false, nil
	}
	rec := s.records[kind]
	if !rec.dirty || s.suppressed[kind] > 0 {
		s.mu.Unlock()
		return false, nil
	}
	snap := s.source.SyncSnapshot()
	if snap.AccountID != s.accountID {
		s.mu.Unlock()
		return false, nil
	}
	version := rec.version
	rec.status = StatusFlushing
	s.persistLocked(kind, rec, snap)
	s.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	err := remote.Upsert(ctx, s.remote, kind, snap)
	cancel()
	metrics.FlushDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		logrus.Debugf("discarding %s push outcome from a previous session", kind)
		return false, nil
	}

	switch {
	case err == nil && rec.version == version:
		rec.dirty = false
		rec.status = StatusClean
		rec.fields = model.NewFieldSet()
		delete(s.retry, kind)
		s.backoff.Reset()
		s.clearPendingLocked(kind)
		metrics.FlushTotal.WithLabelValues(kind.String(), metrics.OutcomeSuccess).Inc()
		metrics.RetryQueueDepth.Set(float64(len(s.retry)))
		return true, nil

	case err == nil:
		// mutated while in flight; the newer version needs another push
		rec.status = StatusDirty
		metrics.FlushTotal.WithLabelValues(kind.String(), metrics.OutcomeStale).Inc()
		return false, nil

	case remote.IsUnauthorized(err):
		rec.status = StatusDirty
		s.haltLocked()
		metrics.FlushTotal.WithLabelValues(kind.String(), metrics.OutcomeUnauthorized).Inc()
		logrus.Errorf("push of %s for %s rejected, halting sync: %v", kind, s.accountID, err)
		return false, fmt.Errorf("%w: %v", ErrHalted, err)

	default:
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(remote.ErrUnavailable, err)
		}
		rec.status = StatusDirty
		s.enqueueRetryLocked(kind)
		metrics.FlushTotal.WithLabelValues(kind.String(), metrics.OutcomeFailure).Inc()
		logrus.Warnf("push of %s for %s failed, queued for retry: %v", kind, s.accountID, err)
		return false, err
	}
}

func (s *Service) pendingLocked() []model.RecordKind {
	var out []model.RecordKind
	for _, k := range model.RecordKinds {
		if s.records[k].dirty {
			out = append(out, k)
		}
	}
	return out
}

func (s *Service) haltLocked() {
	s.halted = true
	for _, rec := range s.records {
		if rec.timer != nil {
			rec.timer.Stop()
			rec.timer = nil
		}
	}
	if s.retryTask != nil {
		s.retryTask.Stop()
		s.retryTask = nil
	}
}

func (s *Service) enqueueRetryLocked(kind model.RecordKind) {
	s.retry[kind] = true
	metrics.RetryQueueDepth.Set(float64(len(s.retry)))
	if rec := s.records[kind]; rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
	s.armRetryLocked()
}

func (s *Service) armRetryLocked() {
	if s.retryTask != nil || !s.online || s.halted || len(s.retry) == 0 {
		return
	}
	d := s.backoff.NextBackOff()
	if d == backoff.Stop {
		d = s.cfg.Retry.MaxInterval
	}
	epoch := s.epoch
	s.retryTask = s.scheduler.AfterFunc(d, func() {
		s.onRetry(epoch)
	})
}

func (s *Service) onRetry(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.retryTask = nil
	s.retry = make(map[model.RecordKind]bool)
	metrics.RetryQueueDepth.Set(0)
	s.mu.Unlock()

	s.Flush(context.Background())
}

// Suppress holds back pushes of kinds until the returned release is called. Releases nest;
// when the last one is released, a still-dirty kind is scheduled again.
func (s *Service) Suppress(kinds ...model.RecordKind) (release func()) {
	s.mu.Lock()
	epoch := s.epoch
	for _, k := range kinds {
		s.suppressed[k]++
		if rec, ok := s.records[k]; ok && rec.timer != nil {
			rec.timer.Stop()
			rec.timer = nil
		}
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.epoch != epoch {
				return
			}
			for _, k := range kinds {
				if s.suppressed[k] > 0 {
					s.suppressed[k]--
				}
				if s.suppressed[k] == 0 {
					delete(s.suppressed, k)
					s.scheduleLocked(k)
				}
			}
		})
	}
}

// SetOnline records connectivity. Going online resets the backoff and flushes the retry queue.
func (s *Service) SetOnline(ctx context.Context, online bool) FlushResult {
	s.mu.Lock()
	was := s.online
	s.online = online
	if !online && s.retryTask != nil {
		s.retryTask.Stop()
		s.retryTask = nil
	}
	s.mu.Unlock()

	if !online || was {
		return FlushResult{}
	}
	return s.Reconnect(ctx)
}

// Reconnect flushes everything pending immediately with a fresh backoff curve.
func (s *Service) Reconnect(ctx context.Context) FlushResult {
	s.mu.Lock()
	s.online = true
	s.backoff.Reset()
	if s.retryTask != nil {
		s.retryTask.Stop()
		s.retryTask = nil
	}
	s.retry = make(map[model.RecordKind]bool)
	metrics.RetryQueueDepth.Set(0)
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Online reports the last connectivity state.
func (s *Service) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Status returns the write state of kind.
func (s *Service) Status(kind model.RecordKind) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[kind]; ok {
		return rec.status
	}
	return StatusClean
}

// IsPending reports whether kind has a local write not yet acknowledged.
func (s *Service) IsPending(kind model.RecordKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[kind]
	return ok && rec.dirty
}

// Halted reports whether sync stopped after a credentials rejection.
func (s *Service) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Enabled reports whether the write path is open.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// PendingRetries returns the number of kinds waiting in the retry queue.
func (s *Service) PendingRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retry)
}

// ─── Crash-safe copies ──────────────────────────────────────────────────────

// Recover returns the unacknowledged writes of accountID left in the cache by an earlier process.
// Unreadable entries are dropped.
func (s *Service) Recover(ctx context.Context, accountID string) map[model.RecordKind]PendingWrite {
	out := make(map[model.RecordKind]PendingWrite)
	for _, k := range model.RecordKinds {
		key := cache.PendingWriteKey(accountID, k.String())
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logrus.Warnf("failed to read pending %s for %s: %v", k, accountID, err)
			continue
		}
		if !ok {
			continue
		}

		var pw PendingWrite
		if err := json.Unmarshal(data, &pw); err != nil || pw.AccountID != accountID || pw.Kind != k {
			logrus.Warnf("dropping unreadable pending %s for %s", k, accountID)
			_ = s.cache.Clear(ctx, key)
			continue
		}
		out[k] = pw
	}
	return out
}

func (s *Service) persistLocked(kind model.RecordKind, rec *record, snap model.Snapshot) {
	if snap.AccountID == "" || snap.AccountID != s.accountID {
		return
	}
	pw, err := newPendingWrite(kind, rec.version, rec.fields, snap)
	if err != nil {
		logrus.Errorf("failed to build pending %s: %v", kind, err)
		return
	}
	data, err := json.Marshal(pw)
	if err != nil {
		logrus.Errorf("failed to marshal pending %s: %v", kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, cache.PendingWriteKey(s.accountID, kind.String()), data); err != nil {
		logrus.Warnf("failed to write crash-safe copy of %s: %v", kind, err)
	}
}

func (s *Service) clearPendingLocked(kind model.RecordKind) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	if err := s.cache.Clear(ctx, cache.PendingWriteKey(s.accountID, kind.String())); err != nil {
		logrus.Warnf("failed to clear crash-safe copy of %s: %v", kind, err)
	}
}
