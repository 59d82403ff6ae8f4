// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection names an append-only record collection.
type Collection string

const (
	CollectionScores       Collection = "score_history"
	CollectionCoinActivity Collection = "coin_activity"
)

// RoundResult is one round of a completed game.
type RoundResult struct {
	Round     int    `json:"round"`
	Country   string `json:"country"`
	Score     int64  `json:"score"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Found     bool   `json:"found"`
}

// ScoreRecord is written once per completed game and never updated.
type ScoreRecord struct {
	ID             string        `json:"id"`
	AccountID      string        `json:"account_id"`
	Score          int64         `json:"score"`
	ElapsedMs      int64         `json:"elapsed_ms"`
	Region         string        `json:"region"`
	Rounds         int           `json:"rounds"`
	RoundBreakdown []RoundResult `json:"round_breakdown,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CoinActivityRecord is one ledger line describing a balance change.
type CoinActivityRecord struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Delta        int64     `json:"delta"`
	Source       string    `json:"source"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// AppendEntry is the collection-agnostic envelope of an append-only record.
// ID doubles as the idempotency key on the remote side.
type AppendEntry struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Collection Collection      `json:"collection"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewRecordID returns a fresh idempotency key.
func NewRecordID() string {
	return uuid.NewString()
}

// NewScoreEntry wraps a score record, assigning an id if it has none.
func NewScoreEntry(r ScoreRecord) (AppendEntry, error) {
	if r.ID == "" {
		r.ID = NewRecordID()
	}
	return newEntry(r.ID, r.AccountID, CollectionScores, r.CreatedAt, r)
}

// NewCoinActivityEntry wraps a ledger record, assigning an id if it has none.
func NewCoinActivityEntry(r CoinActivityRecord) (AppendEntry, error) {
	if r.ID == "" {
		r.ID = NewRecordID()
	}
	return newEntry(r.ID, r.AccountID, CollectionCoinActivity, r.CreatedAt, r)
}

func newEntry(id, accountID string, c Collection, at time.Time, v interface{}) (AppendEntry, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return AppendEntry{}, fmt.Errorf("failed to marshal %s record: %w", c, err)
	}
	return AppendEntry{
		ID:         id,
		AccountID:  accountID,
		Collection: c,
		Payload:    payload,
		CreatedAt:  at,
	}, nil
}

// ScoreRecord decodes the payload of a score entry.
func (e AppendEntry) ScoreRecord() (ScoreRecord, error) {
	var r ScoreRecord
	if e.Collection != CollectionScores {
		return r, fmt.Errorf("entry %s is a %s record", e.ID, e.Collection)
	}
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return r, fmt.Errorf("failed to unmarshal score record %s: %w", e.ID, err)
	}
	return r, nil
}

// CoinActivityRecord decodes the payload of a ledger entry.
func (e AppendEntry) CoinActivityRecord() (CoinActivityRecord, error) {
	var r CoinActivityRecord
	if e.Collection != CollectionCoinActivity {
		return r, fmt.Errorf("entry %s is a %s record", e.ID, e.Collection)
	}
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return r, fmt.Errorf("failed to unmarshal coin activity record %s: %w", e.ID, err)
	}
	return r, nil
}
