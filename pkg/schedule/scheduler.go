// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package schedule runs deferred callbacks that can be cancelled by their owner.
package schedule

import "time"

// Task is a scheduled callback.
type Task interface {
	// Stop cancels the task. It returns false if the task already ran or was stopped.
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

// NewRealScheduler returns a wall-clock scheduler.
func NewRealScheduler() RealScheduler {
	return RealScheduler{}
}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
