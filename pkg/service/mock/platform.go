package mock

import (
	"context"
	"sync"
)

// GrantCall tracks parameters for GrantEntitlement calls
type GrantCall struct {
	UserID   string
	ItemID   string
	Quantity int
}

// EntitlementGranter is a mock implementation of service.EntitlementGranter for testing
type EntitlementGranter struct {
	mu sync.Mutex

	// GrantEntitlementFunc is called when GrantEntitlement is invoked
	GrantEntitlementFunc func(ctx context.Context, userID, itemID string, quantity int) error

	// Call tracking
	GrantCalls []GrantCall
}

func (m *EntitlementGranter) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	m.mu.Lock()
	m.GrantCalls = append(m.GrantCalls, GrantCall{UserID: userID, ItemID: itemID, Quantity: quantity})
	fn := m.GrantEntitlementFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, userID, itemID, quantity)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *EntitlementGranter) Calls() []GrantCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GrantCall(nil), m.GrantCalls...)
}

// IncrementCall tracks parameters for IncrementStat calls
type IncrementCall struct {
	UserID   string
	StatCode string
	Inc      float64
}

// StatIncrementer is a mock implementation of service.StatIncrementer for testing
type StatIncrementer struct {
	mu sync.Mutex

	// IncrementStatFunc is called when IncrementStat is invoked
	IncrementStatFunc func(ctx context.Context, userID, statCode string, inc float64) error

	// Call tracking
	IncrementCalls []IncrementCall
}

func (m *StatIncrementer) IncrementStat(ctx context.Context, userID, statCode string, inc float64) error {
	m.mu.Lock()
	m.IncrementCalls = append(m.IncrementCalls, IncrementCall{UserID: userID, StatCode: statCode, Inc: inc})
	fn := m.IncrementStatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, userID, statCode, inc)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *StatIncrementer) Calls() []IncrementCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]IncrementCall(nil), m.IncrementCalls...)
}
