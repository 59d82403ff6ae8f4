// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot reports a snapshot with missing or out-of-range fields.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the full mutable state of one account.
type Snapshot struct {
	AccountID    string        `json:"account_id"`
	Profile      PlayerProfile `json:"profile"`
	AccountState AccountState  `json:"account_state"`
	Settings     Settings      `json:"settings"`
}

// NewSnapshot returns the first-login state for accountID.
func NewSnapshot(accountID string) Snapshot {
	return Snapshot{
		AccountID:    accountID,
		Profile:      NewPlayerProfile(accountID),
		AccountState: NewAccountState(),
		Settings:     NewSettings(),
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		AccountID:    s.AccountID,
		Profile:      s.Profile.Clone(),
		AccountState: s.AccountState.Clone(),
		Settings:     s.Settings.Clone(),
	}
}

// Validate rejects snapshots that would be unsafe to hydrate from.
func (s Snapshot) Validate() error {
	if s.AccountID == "" {
		return fmt.Errorf("%w: empty account id", ErrInvalidSnapshot)
	}
	if s.Profile.AccountID != s.AccountID {
		return fmt.Errorf("%w: profile belongs to %q", ErrInvalidSnapshot, s.Profile.AccountID)
	}
	if s.Profile.Coins < 0 {
		return fmt.Errorf("%w: negative coin balance %d", ErrInvalidSnapshot, s.Profile.Coins)
	}
	if s.Profile.Level < 1 {
		return fmt.Errorf("%w: level %d", ErrInvalidSnapshot, s.Profile.Level)
	}
	if s.AccountState.Avatar.Base == "" {
		return fmt.Errorf("%w: avatar base missing", ErrInvalidSnapshot)
	}
	if s.AccountState.License.Tier == "" {
		return fmt.Errorf("%w: license tier missing", ErrInvalidSnapshot)
	}
	if s.Settings.Units == "" {
		return fmt.Errorf("%w: settings units missing", ErrInvalidSnapshot)
	}
	return nil
}

// Normalize fills nil collections so merged and loaded snapshots compare cleanly.
func (s *Snapshot) Normalize() {
	if s.Profile.ClueCorrect == nil {
		s.Profile.ClueCorrect = make(map[ClueType]int64)
	}
	if s.AccountState.Avatar.Parts == nil {
		s.AccountState.Avatar.Parts = make(map[string]string)
	}
	if s.AccountState.Equipped == nil {
		s.AccountState.Equipped = make(map[string]string)
	}
	if s.AccountState.OwnedCosmetics == nil {
		s.AccountState.OwnedCosmetics = []string{}
	}
	if s.AccountState.OwnedAvatarParts == nil {
		s.AccountState.OwnedAvatarParts = []string{}
	}
	if s.AccountState.UnlockedRegions == nil {
		s.AccountState.UnlockedRegions = []string{}
	}
}
