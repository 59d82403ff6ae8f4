// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

import (
	"math"
	"time"
)

// ClueType names a category of clue the player can answer.
type ClueType string

const (
	ClueFlag     ClueType = "flag"
	ClueCapital  ClueType = "capital"
	ClueLandmark ClueType = "landmark"
	ClueLanguage ClueType = "language"
	ClueCurrency ClueType = "currency"
)

// PlayerProfile is the identity and progression record of an account.
type PlayerProfile struct {
	AccountID         string             `json:"account_id"`
	Username          string             `json:"username"`
	Level             int                `json:"level"`
	Experience        int64              `json:"experience"`
	Coins             int64              `json:"coins"`
	GamesPlayed       int64              `json:"games_played"`
	BestScore         int64              `json:"best_score"`
	BestTimeMs        int64              `json:"best_time_ms"` // 0 means no completed game yet
	TotalFlightTimeMs int64              `json:"total_flight_time_ms"`
	CountriesFound    int64              `json:"countries_found"`
	ClueCorrect       map[ClueType]int64 `json:"clue_correct"`
	BestStreak        int64              `json:"best_streak"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewPlayerProfile returns the profile created on first login.
func NewPlayerProfile(accountID string) PlayerProfile {
	return PlayerProfile{
		AccountID:   accountID,
		Level:       1,
		ClueCorrect: make(map[ClueType]int64),
	}
}

// Clone returns a deep copy.
func (p PlayerProfile) Clone() PlayerProfile {
	out := p
	out.ClueCorrect = make(map[ClueType]int64, len(p.ClueCorrect))
	for k, v := range p.ClueCorrect {
		out.ClueCorrect[k] = v
	}
	return out
}

// LevelForExperience maps total experience to a level. Level n starts at 100*(n-1)^2 xp.
func LevelForExperience(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return 1 + int(math.Sqrt(float64(xp)/100))
}
