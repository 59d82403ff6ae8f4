// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package syncer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// PendingWrite is the crash-safe copy of a record that has not been acknowledged by the remote store.
type PendingWrite struct {
	AccountID string           `json:"account_id"`
	Kind      model.RecordKind `json:"kind"`
	Version   uint64           `json:"version"`
	Fields    []string         `json:"fields,omitempty"`
	Payload   json.RawMessage  `json:"payload"`
	SavedAt   time.Time        `json:"saved_at"`
}

func newPendingWrite(kind model.RecordKind, version uint64, fields model.FieldSet, snap model.Snapshot) (PendingWrite, error) {
	var v interface{}
	switch kind {
	case model.KindProfile:
		v = snap.Profile
	case model.KindAccountState:
		v = snap.AccountState
	case model.KindSettings:
		v = snap.Settings
	default:
		return PendingWrite{}, fmt.Errorf("unknown record kind %q", kind)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return PendingWrite{}, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	return PendingWrite{
		AccountID: snap.AccountID,
		Kind:      kind,
		Version:   version,
		Fields:    fields.Slice(),
		Payload:   payload,
		SavedAt:   time.Now().UTC(),
	}, nil
}

// FieldSet returns the point-in-time fields that were edited locally.
func (p PendingWrite) FieldSet() model.FieldSet {
	return model.NewFieldSet(p.Fields...)
}

// Overlay decodes the payload into the matching record of snap.
func (p PendingWrite) Overlay(snap *model.Snapshot) error {
	var err error
	switch p.Kind {
	case model.KindProfile:
		var v model.PlayerProfile
		if err = json.Unmarshal(p.Payload, &v); err == nil {
			snap.Profile = v
		}
	case model.KindAccountState:
		var v model.AccountState
		if err = json.Unmarshal(p.Payload, &v); err == nil {
			snap.AccountState = v
		}
	case model.KindSettings:
		var v model.Settings
		if err = json.Unmarshal(p.Payload, &v); err == nil {
			snap.Settings = v
		}
	default:
		return fmt.Errorf("unknown record kind %q", p.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to decode pending %s: %w", p.Kind, err)
	}
	snap.Normalize()
	return nil
}
