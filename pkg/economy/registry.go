package economy

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages available actions.
// It provides thread-safe registration and lookup of actions.
type Registry struct {
	actions map[string]Action
	mu      sync.RWMutex
}

// NewRegistry creates a new empty action registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
	}
}

// Register adds an action to the registry.
// Returns an error if an action with the same ID already exists.
func (r *Registry) Register(action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.ID()]; exists {
		return fmt.Errorf("action %s already registered", action.ID())
	}

	r.actions[action.ID()] = action
	return nil
}

// Unregister removes an action from the registry.
func (r *Registry) Unregister(actionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[actionID]; !exists {
		return fmt.Errorf("action %s: %w", actionID, ErrActionNotFound)
	}

	delete(r.actions, actionID)
	return nil
}

// Get returns an action by ID, or nil.
func (r *Registry) Get(actionID string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.actions[actionID]
}

// Lookup returns an enabled action by ID.
func (r *Registry) Lookup(actionID string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[actionID]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", actionID, ErrActionNotFound)
	}
	if !action.Config().Enabled {
		return nil, fmt.Errorf("action %s: %w", actionID, ErrActionDisabled)
	}
	return action, nil
}

// LookupType returns the enabled action of actionType with the lowest ID.
func (r *Registry) LookupType(actionType string) (Action, error) {
	for _, action := range r.GetAll() {
		cfg := action.Config()
		if cfg.Type == actionType && cfg.Enabled {
			return action, nil
		}
	}
	return nil, fmt.Errorf("action type %s: %w", actionType, ErrActionNotFound)
}

// GetAll returns all registered actions ordered by ID.
func (r *Registry) GetAll() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]Action, 0, len(r.actions))
	for _, action := range r.actions {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].ID() < actions[j].ID() })

	return actions
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.actions)
}
