// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

// RecordKind identifies one of the mutable per-account record collections.
type RecordKind string

const (
	KindProfile      RecordKind = "profile"
	KindAccountState RecordKind = "account_state"
	KindSettings     RecordKind = "settings"
)

// RecordKinds lists the mutable kinds in flush order.
var RecordKinds = []RecordKind{KindProfile, KindAccountState, KindSettings}

func (k RecordKind) String() string {
	return string(k)
}

// Field names used for dirty tracking of point-in-time fields.
// Counters, sets and the coin balance have merge policies that do not
// depend on dirtiness and are therefore not listed here.
const (
	FieldUsername        = "username"
	FieldAvatar          = "avatar"
	FieldLicense         = "license"
	FieldEquipped        = "equipped"
	FieldDailyLastDate   = "daily.last_completed_date"
	FieldLastDailyResult = "last_daily_result"

	FieldMusicVolume    = "settings.music_volume"
	FieldSFXVolume      = "settings.sfx_volume"
	FieldHaptics        = "settings.haptics"
	FieldUnits          = "settings.units"
	FieldShowLabels     = "settings.show_labels"
	FieldLanguage       = "settings.language"
	FieldColorblindMode = "settings.colorblind_mode"
)
