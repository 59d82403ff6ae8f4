// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"context"
	"errors"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/common"
	"github.com/AccelByte/extend-account-sync/pkg/economy"
	"github.com/AccelByte/extend-account-sync/pkg/metrics"
	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// Reconciler runs economy actions: an optimistic local change settled by one atomic remote
// procedure.
//
// While an action is pending, debounced pushes of the record kinds it touches are held back, so
// the only balance write the action causes is the one scheduled after the procedure answered.
// A confirmed action sets the balance to the procedure's authoritative balance plus whatever the
// local balance moved by in the meantime. A rejected action is reverted. An action whose outcome
// is unknown keeps the optimistic change, which is then synced like any other mutation.
type Reconciler struct {
	c       *Container
	actions *economy.Registry
	timeout time.Duration
}

func newReconciler(c *Container, actions *economy.Registry, timeout time.Duration) *Reconciler {
	return &Reconciler{c: c, actions: actions, timeout: timeout}
}

// Run executes the action registered as actionID.
func (r *Reconciler) Run(ctx context.Context, actionID string, req economy.Request) economy.Result {
	action, err := r.actions.Lookup(actionID)
	if err != nil {
		return r.declined(actionID, err)
	}
	return r.run(ctx, action, req)
}

// RunType executes the first enabled action of actionType.
func (r *Reconciler) RunType(ctx context.Context, actionType string, req economy.Request) economy.Result {
	action, err := r.actions.LookupType(actionType)
	if err != nil {
		return r.declined(actionType, err)
	}
	return r.run(ctx, action, req)
}

func (r *Reconciler) run(ctx context.Context, action economy.Action, req economy.Request) economy.Result {
	c := r.c
	scope := common.StartScope(ctx, "account.Economy")
	defer scope.Finish()
	scope.Tag("action", action.ID())

	// Kinds are known only after planning, so hold back everything an action can touch.
	release := c.deps.Syncer.Suppress(model.KindProfile, model.KindAccountState)
	defer release()

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return r.declined(action.ID(), err)
	}
	plan, err := action.Plan(c.snap, req)
	if err != nil {
		balance := c.snap.Profile.Coins
		c.mu.Unlock()
		res := r.declined(action.ID(), err)
		res.Balance = balance
		return res
	}
	epoch := c.epoch
	accountID := c.accountID
	next := c.snap.Clone()
	applyPlan(&next, plan)
	optimistic := next.Profile.Coins
	ch := planChange(plan)
	c.stampLocked(&next, ch.fields)
	c.snap = next
	c.mu.Unlock()
	c.commit(ch)

	scope.Log.Infof("economy action %s for %s pending (request %s)", plan.ActionID, accountID, plan.Params.RequestID)

	// A push that started before the optimistic change must land before the procedure reads
	// the authoritative balance. If it does not land in time the procedure is never invoked,
	// so the optimistic change is undone.
	if err := c.deps.Syncer.Await(scope.Ctx); err != nil {
		scope.Log.Warnf("economy action %s not sent, reverting: %v", plan.ActionID, err)
		return r.abandon(plan, ch, epoch, err)
	}

	callCtx, cancel := context.WithTimeout(scope.Ctx, r.timeout)
	out, err := c.deps.Remote.InvokeEconomyProcedure(callCtx, plan.Procedure, plan.Params)
	cancel()
	scope.Event("procedure answered")

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return r.indeterminate(plan, optimistic, ErrSessionChanged)
	}

	if err != nil {
		balance := c.snap.Profile.Coins
		c.mu.Unlock()
		scope.Fail(err)
		res := r.indeterminate(plan, balance, err)
		scope.Log.Warnf("economy action %s outcome unknown, keeping local change: %v", plan.ActionID, err)
		return res
	}

	next = c.snap.Clone()
	var result economy.Result
	if out.Success {
		drift := next.Profile.Coins - optimistic
		next.Profile.Coins = out.ResultingBalance + drift
		if next.Profile.Coins < 0 {
			next.Profile.Coins = 0
		}
		result = economy.Result{ActionID: plan.ActionID, Status: economy.StatusConfirmed, Balance: next.Profile.Coins}
	} else {
		revertPlan(&next, plan)
		result = economy.Result{
			ActionID: plan.ActionID,
			Status:   economy.StatusRejected,
			Balance:  next.Profile.Coins,
			Reason:   out.Error,
			Err:      rejection(out.Error),
		}
	}
	c.stampLocked(&next, ch.fields)
	c.snap = next
	c.mu.Unlock()

	// The release deferred above schedules this write.
	c.commit(ch)
	metrics.EconomyTotal.WithLabelValues(plan.ActionID, result.Status.String()).Inc()

	if out.Success {
		scope.Log.Infof("economy action %s confirmed, balance %d", plan.ActionID, result.Balance)
		if plan.Procedure == model.ProcedurePurchaseCosmetic {
			for _, id := range plan.GrantCosmetics {
				id := id
				c.mirror("cosmetic purchase", func(ctx context.Context, m Mirror) error {
					return m.CosmeticPurchased(ctx, accountID, id)
				})
			}
		}
	} else {
		scope.Log.Infof("economy action %s rejected: %s", plan.ActionID, out.Error)
	}
	return result
}

func (r *Reconciler) declined(actionID string, err error) economy.Result {
	metrics.EconomyTotal.WithLabelValues(actionID, metrics.OutcomeDeclined).Inc()
	return economy.Result{
		ActionID: actionID,
		Status:   economy.StatusDeclined,
		Reason:   err.Error(),
		Err:      err,
	}
}

// abandon reverts a plan whose procedure was never invoked and reports it as declined.
func (r *Reconciler) abandon(plan economy.Plan, ch change, epoch uint64, err error) economy.Result {
	c := r.c
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return r.declined(plan.ActionID, ErrSessionChanged)
	}
	next := c.snap.Clone()
	revertPlan(&next, plan)
	c.stampLocked(&next, ch.fields)
	c.snap = next
	balance := next.Profile.Coins
	c.mu.Unlock()
	c.commit(ch)

	res := r.declined(plan.ActionID, err)
	res.Balance = balance
	return res
}

func (r *Reconciler) indeterminate(plan economy.Plan, balance int64, err error) economy.Result {
	metrics.EconomyTotal.WithLabelValues(plan.ActionID, metrics.OutcomeIndeterminate).Inc()
	return economy.Result{
		ActionID: plan.ActionID,
		Status:   economy.StatusIndeterminate,
		Balance:  balance,
		Reason:   err.Error(),
		Err:      err,
	}
}

func applyPlan(s *model.Snapshot, plan economy.Plan) {
	s.Profile.Coins += plan.CoinDelta
	for _, id := range plan.GrantCosmetics {
		s.AccountState.OwnedCosmetics = model.AddToSet(s.AccountState.OwnedCosmetics, id)
	}
	for _, id := range plan.GrantAvatarParts {
		s.AccountState.OwnedAvatarParts = model.AddToSet(s.AccountState.OwnedAvatarParts, id)
	}
}

func revertPlan(s *model.Snapshot, plan economy.Plan) {
	s.Profile.Coins -= plan.CoinDelta
	for _, id := range plan.GrantCosmetics {
		s.AccountState.OwnedCosmetics = model.RemoveFromSet(s.AccountState.OwnedCosmetics, id)
	}
	for _, id := range plan.GrantAvatarParts {
		s.AccountState.OwnedAvatarParts = model.RemoveFromSet(s.AccountState.OwnedAvatarParts, id)
	}
}

func planChange(plan economy.Plan) change {
	var ch change
	for _, kind := range plan.Kinds {
		ch.touch(kind)
	}
	return ch
}

// rejection maps a procedure rejection code onto the economy sentinel errors.
func rejection(code string) error {
	switch code {
	case model.RejectNotEnoughCoins:
		return economy.ErrInsufficientFunds
	case model.RejectAlreadyOwned:
		return economy.ErrAlreadyOwned
	case model.RejectInvalidAmount:
		return economy.ErrInvalidAmount
	case model.RejectUnknownAccount:
		return economy.ErrInvalidTarget
	case model.RejectUnknownProcedure:
		return economy.ErrActionNotFound
	default:
		return errors.New(code)
	}
}

// ─── Container entry points ─────────────────────────────────────────────────

// PurchaseCosmetic buys a catalog cosmetic.
func (c *Container) PurchaseCosmetic(ctx context.Context, itemID string) economy.Result {
	return c.reconciler.RunType(ctx, economy.TypePurchaseCosmetic, economy.Request{ItemID: itemID})
}

// PurchaseAvatarPart buys a catalog avatar part.
func (c *Container) PurchaseAvatarPart(ctx context.Context, partID string) economy.Result {
	return c.reconciler.RunType(ctx, economy.TypePurchaseAvatarPart, economy.Request{ItemID: partID})
}

// TransferCoins sends amount coins to another account.
func (c *Container) TransferCoins(ctx context.Context, targetAccountID string, amount int64) economy.Result {
	return c.reconciler.RunType(ctx, economy.TypeTransferCoins, economy.Request{TargetAccountID: targetAccountID, Amount: amount})
}

// GiftCosmetic buys a giftable cosmetic for another account.
func (c *Container) GiftCosmetic(ctx context.Context, targetAccountID, itemID string) economy.Result {
	return c.reconciler.RunType(ctx, economy.TypeGiftCosmetic, economy.Request{ItemID: itemID, TargetAccountID: targetAccountID})
}

// RunAction executes a configured economy action by id.
func (c *Container) RunAction(ctx context.Context, actionID string, req economy.Request) economy.Result {
	return c.reconciler.Run(ctx, actionID, req)
}

// Reconciler returns the container's economy reconciler.
func (c *Container) Reconciler() *Reconciler {
	return c.reconciler
}
