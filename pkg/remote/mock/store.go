// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package mock provides an in-memory remote.Store with call tracking and fault injection.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
)

// UpsertCall tracks parameters for Upsert* calls
type UpsertCall struct {
	Kind      model.RecordKind
	AccountID string
	Snapshot  model.Snapshot // only the field of Kind is meaningful
}

// ProcedureCall tracks parameters for InvokeEconomyProcedure calls
type ProcedureCall struct {
	Name   string
	Params model.ProcedureParams
}

// Store is an in-memory remote.Store. Hooks run before the store applies a call and may
// block or fail it; they are invoked without holding the store lock.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*model.Snapshot
	missing  map[string]map[model.RecordKind]bool // records an upsert never created
	records  map[string]model.AppendEntry
	order    []string
	ledger   map[string]bool // applied procedure request ids
	err      error

	loadHook      func(ctx context.Context, accountID string) (*model.Snapshot, error)
	createHook    func(ctx context.Context, accountID string) error
	upsertHook    func(ctx context.Context, kind model.RecordKind, accountID string) error
	procedureHook func(ctx context.Context, name string, params model.ProcedureParams) (*model.ProcedureResult, error)
	appendHook    func(ctx context.Context, entry model.AppendEntry) error
	afterAppend   func(entry model.AppendEntry) error

	// Call tracking
	LoadCalls      []string
	CreateCalls    []string
	UpsertCalls    []UpsertCall
	ProcedureCalls []ProcedureCall
	AppendCalls    []model.AppendEntry
}

var _ remote.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*model.Snapshot),
		missing:  make(map[string]map[model.RecordKind]bool),
		records:  make(map[string]model.AppendEntry),
		ledger:   make(map[string]bool),
	}
}

// Seed stores snap as the authoritative copy of its account.
func (m *Store) Seed(snap model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := snap.Clone()
	m.accounts[snap.AccountID] = &c
	delete(m.missing, snap.AccountID)
}

// Account returns a copy of the stored snapshot.
func (m *Store) Account(accountID string) (model.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.accounts[accountID]
	if !ok {
		return model.Snapshot{}, false
	}
	return s.Clone(), true
}

// Records returns the stored append records of an account and collection in insertion order.
func (m *Store) Records(accountID string, c model.Collection) []model.AppendEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.AppendEntry
	for _, id := range m.order {
		e := m.records[id]
		if e.AccountID == accountID && e.Collection == c {
			out = append(out, e)
		}
	}
	return out
}

// UpsertCount returns how many upserts of kind reached the store, successful or not.
func (m *Store) UpsertCount(kind model.RecordKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.UpsertCalls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// LastUpsert returns the most recent upsert of kind.
func (m *Store) LastUpsert(kind model.RecordKind) (UpsertCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.UpsertCalls) - 1; i >= 0; i-- {
		if m.UpsertCalls[i].Kind == kind {
			return m.UpsertCalls[i], true
		}
	}
	return UpsertCall{}, false
}

// ProcedureCount returns the number of procedure invocations.
func (m *Store) ProcedureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ProcedureCalls)
}

// AppendCount returns the number of AppendRecord calls, successful or not.
func (m *Store) AppendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AppendCalls)
}

// LoadCount returns the number of Load calls.
func (m *Store) LoadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.LoadCalls)
}

// CreateCount returns the number of CreateAccount calls, successful or not.
func (m *Store) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateCalls)
}

// SetError makes every call fail with err; nil restores normal behaviour.
func (m *Store) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// OnLoad replaces Load; return (nil, nil) to fall through to the stored data.
func (m *Store) OnLoad(fn func(ctx context.Context, accountID string) (*model.Snapshot, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadHook = fn
}

// OnCreate runs before every CreateAccount; a non-nil error fails the call without storing.
func (m *Store) OnCreate(fn func(ctx context.Context, accountID string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createHook = fn
}

// OnUpsert runs before every upsert; a non-nil error fails the call without storing.
func (m *Store) OnUpsert(fn func(ctx context.Context, kind model.RecordKind, accountID string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertHook = fn
}

// OnProcedure runs before every procedure; a non-nil result or error short-circuits it.
func (m *Store) OnProcedure(fn func(ctx context.Context, name string, params model.ProcedureParams) (*model.ProcedureResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procedureHook = fn
}

// OnAppend runs before every append; a non-nil error fails the call without storing.
func (m *Store) OnAppend(fn func(ctx context.Context, entry model.AppendEntry) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHook = fn
}

// AfterAppend runs after an append was stored; a non-nil error simulates a lost acknowledgement.
func (m *Store) AfterAppend(fn func(entry model.AppendEntry) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterAppend = fn
}

func (m *Store) Load(ctx context.Context, accountID string) (*model.Snapshot, error) {
	m.mu.Lock()
	m.LoadCalls = append(m.LoadCalls, accountID)
	hook, failure := m.loadHook, m.err
	m.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if hook != nil {
		snap, err := hook(ctx, accountID)
		if snap != nil || err != nil {
			return snap, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.accounts[accountID]
	if !ok || m.missing[accountID][model.KindProfile] {
		return nil, remote.ErrNotFound
	}
	if len(m.missing[accountID]) > 0 {
		return nil, remote.ErrIncomplete
	}
	c := s.Clone()
	return &c, nil
}

// CreateAccount stores the records of snap that are missing and keeps the rest.
func (m *Store) CreateAccount(ctx context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, snap.AccountID)
	hook, failure := m.createHook, m.err
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if hook != nil {
		if err := hook(ctx, snap.AccountID); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.accounts[snap.AccountID]
	if !ok {
		c := snap.Clone()
		m.accounts[snap.AccountID] = &c
		return nil
	}
	fresh := snap.Clone()
	for kind := range m.missing[snap.AccountID] {
		switch kind {
		case model.KindProfile:
			s.Profile = fresh.Profile
		case model.KindAccountState:
			s.AccountState = fresh.AccountState
		case model.KindSettings:
			s.Settings = fresh.Settings
		}
	}
	delete(m.missing, snap.AccountID)
	return nil
}

func (m *Store) UpsertProfile(ctx context.Context, accountID string, p model.PlayerProfile) error {
	return m.upsert(ctx, model.KindProfile, accountID, func(s *model.Snapshot) { s.Profile = p.Clone() })
}

func (m *Store) UpsertAccountState(ctx context.Context, accountID string, st model.AccountState) error {
	return m.upsert(ctx, model.KindAccountState, accountID, func(s *model.Snapshot) { s.AccountState = st.Clone() })
}

func (m *Store) UpsertSettings(ctx context.Context, accountID string, settings model.Settings) error {
	return m.upsert(ctx, model.KindSettings, accountID, func(s *model.Snapshot) { s.Settings = settings.Clone() })
}

func (m *Store) upsert(ctx context.Context, kind model.RecordKind, accountID string, apply func(*model.Snapshot)) error {
	call := UpsertCall{Kind: kind, AccountID: accountID, Snapshot: model.Snapshot{AccountID: accountID}}
	apply(&call.Snapshot)

	m.mu.Lock()
	m.UpsertCalls = append(m.UpsertCalls, call)
	hook, failure := m.upsertHook, m.err
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if hook != nil {
		if err := hook(ctx, kind, accountID); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.accounts[accountID]
	if !ok {
		fresh := model.NewSnapshot(accountID)
		s = &fresh
		m.accounts[accountID] = s
		m.missing[accountID] = make(map[model.RecordKind]bool)
		for _, k := range model.RecordKinds {
			m.missing[accountID][k] = true
		}
	}
	if gaps, ok := m.missing[accountID]; ok {
		delete(gaps, kind)
		if len(gaps) == 0 {
			delete(m.missing, accountID)
		}
	}
	apply(s)
	return nil
}

func (m *Store) AppendRecord(ctx context.Context, entry model.AppendEntry) error {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, entry)
	hook, after, failure := m.appendHook, m.afterAppend, m.err
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if hook != nil {
		if err := hook(ctx, entry); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if _, exists := m.records[entry.ID]; !exists {
		m.records[entry.ID] = entry
		m.order = append(m.order, entry.ID)
	}
	m.mu.Unlock()

	if after != nil {
		return after(entry)
	}
	return nil
}

func (m *Store) InvokeEconomyProcedure(ctx context.Context, name string, p model.ProcedureParams) (model.ProcedureResult, error) {
	m.mu.Lock()
	m.ProcedureCalls = append(m.ProcedureCalls, ProcedureCall{Name: name, Params: p})
	hook, failure := m.procedureHook, m.err
	m.mu.Unlock()

	if failure != nil {
		return model.ProcedureResult{}, failure
	}
	if hook != nil {
		res, err := hook(ctx, name, p)
		if err != nil {
			return model.ProcedureResult{}, err
		}
		if res != nil {
			return *res, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return model.ProcedureResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.accounts[p.AccountID]
	if !ok {
		return rejected(model.RejectUnknownAccount, 0), nil
	}
	if p.RequestID != "" && m.ledger[p.RequestID] {
		return model.ProcedureResult{Success: true, ResultingBalance: from.Profile.Coins}, nil
	}

	switch name {
	case model.ProcedurePurchaseCosmetic, model.ProcedurePurchaseAvatarPart:
		owned := &from.AccountState.OwnedCosmetics
		if name == model.ProcedurePurchaseAvatarPart {
			owned = &from.AccountState.OwnedAvatarParts
		}
		if p.Price < 0 || p.ItemID == "" {
			return rejected(model.RejectInvalidAmount, from.Profile.Coins), nil
		}
		if contains(*owned, p.ItemID) {
			return rejected(model.RejectAlreadyOwned, from.Profile.Coins), nil
		}
		if from.Profile.Coins < p.Price {
			return rejected(model.RejectNotEnoughCoins, from.Profile.Coins), nil
		}
		from.Profile.Coins -= p.Price
		*owned = addSorted(*owned, p.ItemID)

	case model.ProcedureTransferCoins, model.ProcedureGiftCosmetic:
		to, ok := m.accounts[p.TargetAccountID]
		if !ok || p.TargetAccountID == p.AccountID {
			return rejected(model.RejectUnknownAccount, from.Profile.Coins), nil
		}
		cost := p.Amount
		if name == model.ProcedureGiftCosmetic {
			cost = p.Price
			if contains(to.AccountState.OwnedCosmetics, p.ItemID) {
				return rejected(model.RejectAlreadyOwned, from.Profile.Coins), nil
			}
		}
		if cost <= 0 && name == model.ProcedureTransferCoins {
			return rejected(model.RejectInvalidAmount, from.Profile.Coins), nil
		}
		if from.Profile.Coins < cost {
			return rejected(model.RejectNotEnoughCoins, from.Profile.Coins), nil
		}
		from.Profile.Coins -= cost
		if name == model.ProcedureTransferCoins {
			to.Profile.Coins += cost
		} else {
			to.AccountState.OwnedCosmetics = addSorted(to.AccountState.OwnedCosmetics, p.ItemID)
		}

	default:
		return rejected(model.RejectUnknownProcedure, from.Profile.Coins), nil
	}

	if p.RequestID != "" {
		m.ledger[p.RequestID] = true
	}
	return model.ProcedureResult{Success: true, ResultingBalance: from.Profile.Coins}, nil
}

func rejected(code string, balance int64) model.ProcedureResult {
	return model.ProcedureResult{Success: false, ResultingBalance: balance, Error: code}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func addSorted(set []string, v string) []string {
	out := append(append([]string{}, set...), v)
	sort.Strings(out)
	return out
}
