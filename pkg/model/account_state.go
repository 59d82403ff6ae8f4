// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date format used for daily challenge dates.
const DateLayout = "2006-01-02"

// AvatarConfig describes how the player's avatar is assembled.
type AvatarConfig struct {
	Base   string            `json:"base"`
	Parts  map[string]string `json:"parts"` // slot -> avatar part id
	Accent *string           `json:"accent,omitempty"`
	Frame  *string           `json:"frame,omitempty"`
}

// License holds the gacha-rolled pilot license stats.
type License struct {
	Serial      string `json:"serial"`
	Tier        string `json:"tier"`
	Speed       int    `json:"speed"`
	Range       int    `json:"range"`
	Luck        int    `json:"luck"`
	RerollCount int64  `json:"reroll_count"`
}

// DailyStreak tracks consecutive daily challenge completions.
type DailyStreak struct {
	Current           int64  `json:"current"`
	Longest           int64  `json:"longest"`
	TotalCompletions  int64  `json:"total_completions"`
	LastCompletedDate string `json:"last_completed_date,omitempty"`
}

// DailyResult is the payload of the most recent daily challenge.
type DailyResult struct {
	Date    string `json:"date"`
	Score   int64  `json:"score"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// AccountState is the collection-and-customisation record of an account.
type AccountState struct {
	Avatar           AvatarConfig      `json:"avatar"`
	License          License           `json:"license"`
	OwnedCosmetics   []string          `json:"owned_cosmetics"`
	OwnedAvatarParts []string          `json:"owned_avatar_parts"`
	Equipped         map[string]string `json:"equipped"` // slot -> cosmetic id
	UnlockedRegions  []string          `json:"unlocked_regions"`
	Daily            DailyStreak       `json:"daily"`
	LastDailyResult  *DailyResult      `json:"last_daily_result,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewAccountState returns the account state created on first login.
func NewAccountState() AccountState {
	return AccountState{
		Avatar:           AvatarConfig{Base: "default", Parts: make(map[string]string)},
		License:          License{Tier: "bronze", Speed: 1, Range: 1, Luck: 1},
		OwnedCosmetics:   []string{},
		OwnedAvatarParts: []string{},
		Equipped:         make(map[string]string),
		UnlockedRegions:  []string{},
	}
}

// Clone returns a deep copy.
func (s AccountState) Clone() AccountState {
	out := s
	out.Avatar.Parts = cloneStringMap(s.Avatar.Parts)
	out.Avatar.Accent = cloneStringPtr(s.Avatar.Accent)
	out.Avatar.Frame = cloneStringPtr(s.Avatar.Frame)
	out.OwnedCosmetics = append([]string{}, s.OwnedCosmetics...)
	out.OwnedAvatarParts = append([]string{}, s.OwnedAvatarParts...)
	out.Equipped = cloneStringMap(s.Equipped)
	out.UnlockedRegions = append([]string{}, s.UnlockedRegions...)
	if s.LastDailyResult != nil {
		r := *s.LastDailyResult
		out.LastDailyResult = &r
	}
	return out
}

// OwnsCosmetic reports whether id is in the owned cosmetics set.
func (s AccountState) OwnsCosmetic(id string) bool {
	return containsString(s.OwnedCosmetics, id)
}

// OwnsAvatarPart reports whether id is in the owned avatar parts set.
func (s AccountState) OwnsAvatarPart(id string) bool {
	return containsString(s.OwnedAvatarParts, id)
}

// HasRegion reports whether region is unlocked.
func (s AccountState) HasRegion(region string) bool {
	return containsString(s.UnlockedRegions, region)
}

// AddToSet returns set with v inserted, sorted and deduplicated.
func AddToSet(set []string, v string) []string {
	if containsString(set, v) {
		return set
	}
	out := append(append([]string{}, set...), v)
	sort.Strings(out)
	return out
}

// RemoveFromSet returns set without v.
func RemoveFromSet(set []string, v string) []string {
	out := make([]string, 0, len(set))
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// UnionSets returns the sorted union of a and b.
func UnionSets(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
