// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package merge reconciles a remote copy of a record with the local copy of the same record.
//
// Every persisted field is assigned exactly one policy:
//
//	cumulative counters, best score, streaks   max(remote, local)
//	best time                                  min(remote, local), unset ignored
//	coin balance                               remote
//	ownership sets                             union(remote, local)
//	point-in-time fields                       remote, unless dirty locally
//
// The functions are pure. The returned flag reports that the merged record differs from the
// remote copy, meaning the remote needs the merged version pushed back.
package merge

import (
	"reflect"
	"sort"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// Profile merges two copies of a player profile.
func Profile(remote, local model.PlayerProfile, dirty model.FieldSet) (model.PlayerProfile, bool) {
	merged := model.PlayerProfile{
		AccountID:         remote.AccountID,
		Username:          pointInTime(dirty, model.FieldUsername, remote.Username, local.Username),
		Experience:        maxInt64(remote.Experience, local.Experience),
		Coins:             remote.Coins,
		GamesPlayed:       maxInt64(remote.GamesPlayed, local.GamesPlayed),
		BestScore:         maxInt64(remote.BestScore, local.BestScore),
		BestTimeMs:        minPositive(remote.BestTimeMs, local.BestTimeMs),
		TotalFlightTimeMs: maxInt64(remote.TotalFlightTimeMs, local.TotalFlightTimeMs),
		CountriesFound:    maxInt64(remote.CountriesFound, local.CountriesFound),
		ClueCorrect:       maxCounts(remote.ClueCorrect, local.ClueCorrect),
		BestStreak:        maxInt64(remote.BestStreak, local.BestStreak),
		UpdatedAt:         latest(remote.UpdatedAt, local.UpdatedAt),
	}
	merged.Level = maxInt(maxInt(remote.Level, local.Level), model.LevelForExperience(merged.Experience))

	return merged, !sameProfile(merged, remote)
}

// AccountState merges two copies of an account state record.
func AccountState(remote, local model.AccountState, dirty model.FieldSet) (model.AccountState, bool) {
	merged := model.AccountState{
		Avatar:           pointInTime(dirty, model.FieldAvatar, remote.Avatar, local.Avatar),
		License:          pointInTime(dirty, model.FieldLicense, remote.License, local.License),
		OwnedCosmetics:   model.UnionSets(remote.OwnedCosmetics, local.OwnedCosmetics),
		OwnedAvatarParts: model.UnionSets(remote.OwnedAvatarParts, local.OwnedAvatarParts),
		Equipped:         pointInTime(dirty, model.FieldEquipped, remote.Equipped, local.Equipped),
		UnlockedRegions:  model.UnionSets(remote.UnlockedRegions, local.UnlockedRegions),
		Daily: model.DailyStreak{
			Current:           maxInt64(remote.Daily.Current, local.Daily.Current),
			Longest:           maxInt64(remote.Daily.Longest, local.Daily.Longest),
			TotalCompletions:  maxInt64(remote.Daily.TotalCompletions, local.Daily.TotalCompletions),
			LastCompletedDate: pointInTime(dirty, model.FieldDailyLastDate, remote.Daily.LastCompletedDate, local.Daily.LastCompletedDate),
		},
		LastDailyResult: pointInTime(dirty, model.FieldLastDailyResult, remote.LastDailyResult, local.LastDailyResult),
		UpdatedAt:       latest(remote.UpdatedAt, local.UpdatedAt),
	}
	merged.License.RerollCount = maxInt64(remote.License.RerollCount, local.License.RerollCount)
	if merged.Daily.Longest < merged.Daily.Current {
		merged.Daily.Longest = merged.Daily.Current
	}
	merged = merged.Clone()

	return merged, !sameAccountState(merged, remote)
}

// Settings merges two copies of the settings record. With no dirty fields the remote copy wins
// outright, which is the fresh-session-load behaviour.
func Settings(remote, local model.Settings, dirty model.FieldSet) (model.Settings, bool) {
	merged := model.Settings{
		MusicVolume:    pointInTime(dirty, model.FieldMusicVolume, remote.MusicVolume, local.MusicVolume),
		SFXVolume:      pointInTime(dirty, model.FieldSFXVolume, remote.SFXVolume, local.SFXVolume),
		Haptics:        pointInTime(dirty, model.FieldHaptics, remote.Haptics, local.Haptics),
		Units:          pointInTime(dirty, model.FieldUnits, remote.Units, local.Units),
		ShowLabels:     pointInTime(dirty, model.FieldShowLabels, remote.ShowLabels, local.ShowLabels),
		Language:       pointInTime(dirty, model.FieldLanguage, remote.Language, local.Language),
		ColorblindMode: pointInTime(dirty, model.FieldColorblindMode, remote.ColorblindMode, local.ColorblindMode),
		UpdatedAt:      latest(remote.UpdatedAt, local.UpdatedAt),
	}
	merged = merged.Clone()

	return merged, !sameSettings(merged, remote)
}

// Snapshot merges every record of two snapshots of the same account.
func Snapshot(remote, local model.Snapshot, dirty map[model.RecordKind]model.FieldSet) (model.Snapshot, map[model.RecordKind]bool) {
	diverged := make(map[model.RecordKind]bool, len(model.RecordKinds))
	out := model.Snapshot{AccountID: remote.AccountID}
	out.Profile, diverged[model.KindProfile] = Profile(remote.Profile, local.Profile, dirty[model.KindProfile])
	out.AccountState, diverged[model.KindAccountState] = AccountState(remote.AccountState, local.AccountState, dirty[model.KindAccountState])
	out.Settings, diverged[model.KindSettings] = Settings(remote.Settings, local.Settings, dirty[model.KindSettings])
	return out, diverged
}

func pointInTime[T any](dirty model.FieldSet, field string, remote, local T) T {
	if dirty.Has(field) {
		return local
	}
	return remote
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minPositive(a, b int64) int64 {
	switch {
	case a <= 0:
		return maxInt64(b, 0)
	case b <= 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

func maxCounts(remote, local map[model.ClueType]int64) map[model.ClueType]int64 {
	out := make(map[model.ClueType]int64, len(remote)+len(local))
	for k, v := range remote {
		out[k] = v
	}
	for k, v := range local {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// The comparisons below ignore UpdatedAt and set ordering.

func sameProfile(a, b model.PlayerProfile) bool {
	a, b = a.Clone(), b.Clone()
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	dropZeroCounts(a.ClueCorrect)
	dropZeroCounts(b.ClueCorrect)
	return reflect.DeepEqual(a, b)
}

func sameAccountState(a, b model.AccountState) bool {
	a, b = normalizedAccountState(a), normalizedAccountState(b)
	return reflect.DeepEqual(a, b)
}

func sameSettings(a, b model.Settings) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(a, b)
}

func normalizedAccountState(s model.AccountState) model.AccountState {
	out := s.Clone()
	out.UpdatedAt = time.Time{}
	sort.Strings(out.OwnedCosmetics)
	sort.Strings(out.OwnedAvatarParts)
	sort.Strings(out.UnlockedRegions)
	return out
}

func dropZeroCounts(m map[model.ClueType]int64) {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
}
