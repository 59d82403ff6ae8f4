// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/account"
	"github.com/AccelByte/extend-account-sync/pkg/common"
	"github.com/AccelByte/extend-account-sync/pkg/model"
)

const botRounds = 5

var botCountries = []string{"FR", "JP", "BR", "KE", "CA", "IN", "NO", "PE", "VN", "EG"}

var botRegions = []string{"world", "europe", "asia", "americas", "africa"}

var botClues = []model.ClueType{
	model.ClueFlag,
	model.ClueCapital,
	model.ClueLandmark,
	model.ClueLanguage,
	model.ClueCurrency,
}

// GameRecorder is the part of the account container the bot drives.
type GameRecorder interface {
	RecordGameCompletion(ctx context.Context, result account.GameResult) (account.CompletionResult, error)
}

// Bot records a synthetic game completion every interval. It is used for soak testing the sync
// path against a live remote store.
type Bot struct {
	recorder GameRecorder
	interval time.Duration
	rng      *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBot creates a stopped bot. A zero seed seeds from the clock.
func NewBot(recorder GameRecorder, interval time.Duration, seed int64) *Bot {
	return &Bot{
		recorder: recorder,
		interval: interval,
		rng:      common.NewRand(seed),
	}
}

// Start launches the loop. Calling Start on a running bot does nothing.
func (b *Bot) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.loop(ctx, b.done)
	logrus.Infof("bot started, one game every %s", b.interval)
}

// Stop ends the loop and waits for an in-progress game to finish recording.
func (b *Bot) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logrus.Info("bot stopped")
}

func (b *Bot) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.play(ctx)
		}
	}
}

func (b *Bot) play(ctx context.Context) {
	game := buildGame(b.rng)
	res, err := b.recorder.RecordGameCompletion(ctx, game)
	if err != nil {
		logrus.Warnf("bot failed to record game: %v", err)
		return
	}
	if !res.Flush.OK() {
		logrus.Debugf("bot game %s saved locally, pending %v", res.ScoreRecordID, res.Flush.Pending)
	}
	if res.LeveledUp {
		logrus.Infof("bot reached level %d", res.Level)
	}
}

// buildGame produces a plausible finished game from rng.
func buildGame(rng *rand.Rand) account.GameResult {
	game := account.GameResult{
		Region:      botRegions[rng.Intn(len(botRegions))],
		ClueCorrect: make(map[model.ClueType]int64),
	}

	for i := 0; i < botRounds; i++ {
		found := rng.Intn(4) != 0
		elapsed := int64(5000 + rng.Intn(25000))
		round := model.RoundResult{
			Round:     i + 1,
			Country:   botCountries[rng.Intn(len(botCountries))],
			ElapsedMs: elapsed,
			Found:     found,
		}
		if found {
			round.Score = int64(200 + rng.Intn(800))
			game.CountriesFound++
			game.Streak++
			game.ClueCorrect[botClues[rng.Intn(len(botClues))]]++
		} else {
			game.Streak = 0
		}
		game.Score += round.Score
		game.ElapsedMs += elapsed
		game.Rounds = append(game.Rounds, round)
	}

	game.FlightTimeMs = game.ElapsedMs / 3
	game.Experience = game.Score / 10
	game.CoinReward = game.CountriesFound * 5
	return game
}

