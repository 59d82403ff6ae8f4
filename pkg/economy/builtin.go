package economy

import (
	"fmt"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// RegisterBuiltinTypes registers the built-in action types. They price items from catalog.
func RegisterBuiltinTypes(catalog *Catalog) {
	RegisterActionType(TypePurchaseCosmetic, func(config ActionConfig) (Action, error) {
		return NewPurchaseAction(config, catalog, ItemCosmetic)
	})
	RegisterActionType(TypePurchaseAvatarPart, func(config ActionConfig) (Action, error) {
		return NewPurchaseAction(config, catalog, ItemAvatarPart)
	})
	RegisterActionType(TypeTransferCoins, func(config ActionConfig) (Action, error) {
		return NewTransferAction(config), nil
	})
	RegisterActionType(TypeGiftCosmetic, func(config ActionConfig) (Action, error) {
		return NewGiftAction(config, catalog)
	})
}

// baseAction carries the parts shared by every built-in action.
type baseAction struct {
	config    ActionConfig
	procedure string
}

func newBase(config ActionConfig, defaultProcedure string) baseAction {
	return baseAction{
		config:    config,
		procedure: config.GetParameterString("procedure", defaultProcedure),
	}
}

func (a baseAction) ID() string           { return a.config.ID }
func (a baseAction) Config() ActionConfig { return a.config }

func (a baseAction) plan(snap model.Snapshot) Plan {
	return Plan{
		ActionID:  a.config.ID,
		Procedure: a.procedure,
		Params: model.ProcedureParams{
			RequestID: model.NewRecordID(),
			AccountID: snap.AccountID,
		},
	}
}

// PurchaseAction buys a catalog item of one kind for the player.
type PurchaseAction struct {
	baseAction
	catalog *Catalog
	kind    string
}

// NewPurchaseAction creates a purchase action for items of kind.
func NewPurchaseAction(config ActionConfig, catalog *Catalog, kind string) (*PurchaseAction, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: %s needs a catalog", ErrInvalidConfig, config.ID)
	}
	procedure := model.ProcedurePurchaseCosmetic
	if kind == ItemAvatarPart {
		procedure = model.ProcedurePurchaseAvatarPart
	}
	return &PurchaseAction{baseAction: newBase(config, procedure), catalog: catalog, kind: kind}, nil
}

func (a *PurchaseAction) Name() string {
	if a.kind == ItemAvatarPart {
		return "Purchase Avatar Part"
	}
	return "Purchase Cosmetic"
}

func (a *PurchaseAction) Plan(snap model.Snapshot, req Request) (Plan, error) {
	item, ok := a.catalog.Item(req.ItemID)
	if !ok || item.Kind != a.kind {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownItem, req.ItemID)
	}

	owned := snap.AccountState.OwnsCosmetic(item.ID)
	if a.kind == ItemAvatarPart {
		owned = snap.AccountState.OwnsAvatarPart(item.ID)
	}
	if owned {
		return Plan{}, fmt.Errorf("%w: %s", ErrAlreadyOwned, item.ID)
	}
	if snap.Profile.Coins < item.Price {
		return Plan{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, item.Price, snap.Profile.Coins)
	}

	p := a.plan(snap)
	p.Params.ItemID = item.ID
	p.Params.Price = item.Price
	p.CoinDelta = -item.Price
	if a.kind == ItemAvatarPart {
		p.GrantAvatarParts = []string{item.ID}
	} else {
		p.GrantCosmetics = []string{item.ID}
	}
	p.Kinds = []model.RecordKind{model.KindProfile, model.KindAccountState}
	return p, nil
}

// TransferAction moves coins to another account.
type TransferAction struct {
	baseAction
	minAmount int64
	maxAmount int64
}

// NewTransferAction creates a coin transfer action. Parameters min_amount and max_amount bound
// the transferable amount; a max of 0 means unbounded.
func NewTransferAction(config ActionConfig) *TransferAction {
	return &TransferAction{
		baseAction: newBase(config, model.ProcedureTransferCoins),
		minAmount:  int64(config.GetParameterInt("min_amount", 1)),
		maxAmount:  int64(config.GetParameterInt("max_amount", 0)),
	}
}

func (a *TransferAction) Name() string { return "Transfer Coins" }

func (a *TransferAction) Plan(snap model.Snapshot, req Request) (Plan, error) {
	if req.Amount <= 0 || req.Amount < a.minAmount || (a.maxAmount > 0 && req.Amount > a.maxAmount) {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidAmount, req.Amount)
	}
	if req.TargetAccountID == "" || req.TargetAccountID == snap.AccountID {
		return Plan{}, ErrInvalidTarget
	}
	if snap.Profile.Coins < req.Amount {
		return Plan{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, req.Amount, snap.Profile.Coins)
	}

	p := a.plan(snap)
	p.Params.TargetAccountID = req.TargetAccountID
	p.Params.Amount = req.Amount
	p.CoinDelta = -req.Amount
	p.Kinds = []model.RecordKind{model.KindProfile}
	return p, nil
}

// GiftAction buys a giftable cosmetic for another account.
type GiftAction struct {
	baseAction
	catalog *Catalog
}

// NewGiftAction creates a gift action.
func NewGiftAction(config ActionConfig, catalog *Catalog) (*GiftAction, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: %s needs a catalog", ErrInvalidConfig, config.ID)
	}
	return &GiftAction{baseAction: newBase(config, model.ProcedureGiftCosmetic), catalog: catalog}, nil
}

func (a *GiftAction) Name() string { return "Gift Cosmetic" }

func (a *GiftAction) Plan(snap model.Snapshot, req Request) (Plan, error) {
	item, ok := a.catalog.Item(req.ItemID)
	if !ok || item.Kind != ItemCosmetic {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownItem, req.ItemID)
	}
	if !item.Giftable {
		return Plan{}, fmt.Errorf("%w: %s", ErrNotGiftable, item.ID)
	}
	if req.TargetAccountID == "" || req.TargetAccountID == snap.AccountID {
		return Plan{}, ErrInvalidTarget
	}
	if snap.Profile.Coins < item.Price {
		return Plan{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, item.Price, snap.Profile.Coins)
	}

	p := a.plan(snap)
	p.Params.ItemID = item.ID
	p.Params.Price = item.Price
	p.Params.TargetAccountID = req.TargetAccountID
	p.CoinDelta = -item.Price
	p.Kinds = []model.RecordKind{model.KindProfile}
	return p, nil
}
