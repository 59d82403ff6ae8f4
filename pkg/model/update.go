// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

type updateOp int

const (
	opUnchanged updateOp = iota
	opSet
	opClear
)

// Update describes a change to one optional field: leave it as is, set it to
// a value, or clear it. The zero value is Unchanged.
type Update[T any] struct {
	op    updateOp
	value T
}

// Unchanged returns an update that keeps the current value.
func Unchanged[T any]() Update[T] {
	return Update[T]{}
}

// SetTo returns an update that replaces the current value.
func SetTo[T any](v T) Update[T] {
	return Update[T]{op: opSet, value: v}
}

// Clear returns an update that removes the current value.
func Clear[T any]() Update[T] {
	return Update[T]{op: opClear}
}

func (u Update[T]) IsUnchanged() bool { return u.op == opUnchanged }
func (u Update[T]) IsSet() bool { return u.op == opSet }
func (u Update[T]) IsClear() bool { return u.op == opClear }

// Value returns the value carried by a SetTo update.
func (u Update[T]) Value() (T, bool) {
	return u.value, u.op == opSet
}

// ApplyPtr applies the update to an optional field stored as a pointer.
func (u Update[T]) ApplyPtr(current *T) *T {
	switch u.op {
	case opSet:
		v := u.value
		return &v
	case opClear:
		return nil
	default:
		return current
	}
}

// Apply applies the update to a required field; Clear resets it to the zero value.
func (u Update[T]) Apply(current T) T {
	switch u.op {
	case opSet:
		return u.value
	case opClear:
		var zero T
		return zero
	default:
		return current
	}
}
