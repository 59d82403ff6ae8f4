// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-account-sync/pkg/account"
	"github.com/AccelByte/extend-account-sync/pkg/common"
)

type recordingRecorder struct {
	mu    sync.Mutex
	games []account.GameResult
}

func (r *recordingRecorder) RecordGameCompletion(ctx context.Context, result account.GameResult) (account.CompletionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, result)
	return account.CompletionResult{ScoreRecordID: "rec"}, nil
}

func (r *recordingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

func TestBuildGame(t *testing.T) {
	rng := common.NewRand(42)
	for i := 0; i < 50; i++ {
		game := buildGame(rng)

		require.Len(t, game.Rounds, botRounds)
		assert.NotEmpty(t, game.Region)
		assert.LessOrEqual(t, game.CountriesFound, int64(botRounds))
		assert.LessOrEqual(t, game.Streak, game.CountriesFound)
		assert.Equal(t, game.CountriesFound*5, game.CoinReward)

		var score, elapsed, found int64
		for _, r := range game.Rounds {
			score += r.Score
			elapsed += r.ElapsedMs
			if r.Found {
				found++
			}
		}
		assert.Equal(t, score, game.Score)
		assert.Equal(t, elapsed, game.ElapsedMs)
		assert.Equal(t, found, game.CountriesFound)

		var clues int64
		for _, n := range game.ClueCorrect {
			clues += n
		}
		assert.Equal(t, found, clues)
	}
}

func TestBuildGame_Deterministic(t *testing.T) {
	a := buildGame(common.NewRand(7))
	b := buildGame(common.NewRand(7))
	assert.Equal(t, a, b)
}

func TestBot_StartStop(t *testing.T) {
	rec := &recordingRecorder{}
	bot := NewBot(rec, 5*time.Millisecond, 1)

	bot.Start()
	bot.Start()
	assert.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, time.Millisecond)

	bot.Stop()
	n := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.count(), "no games after Stop")

	bot.Stop()
}
