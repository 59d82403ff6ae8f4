// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AccelByte/extend-account-sync/pkg/common"
	"github.com/AccelByte/extend-account-sync/pkg/economy"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/syncer"
)

const (
	maxUsernameLength = 24

	SourceGameCompletion = "game_completion"
	SourceLicenseReroll  = "license_reroll"
)

// SpendResult is the outcome of SpendCoins. A declined spend changed nothing.
type SpendResult struct {
	OK      bool
	Balance int64
	Reason  error
}

// RerollResult is the outcome of RerollLicense.
type RerollResult struct {
	OK      bool
	License model.License
	Balance int64
	Reason  error
}

// GameResult describes one finished game.
type GameResult struct {
	Score          int64
	ElapsedMs      int64
	FlightTimeMs   int64
	Region         string
	Rounds         []model.RoundResult
	CountriesFound int64
	ClueCorrect    map[model.ClueType]int64
	Streak         int64
	Experience     int64
	CoinReward     int64
}

// CompletionResult reports what RecordGameCompletion changed and how its flush went.
type CompletionResult struct {
	ScoreRecordID string
	Level         int
	LeveledUp     bool
	Balance       int64
	Flush         syncer.FlushResult
}

// AddExperience adds xp and recomputes the level. It returns the new level.
func (c *Container) AddExperience(xp int64) (int, error) {
	if xp <= 0 {
		return 0, invalid("experience %d", xp)
	}
	var level int
	err := c.mutate(func(s *model.Snapshot, ch *change) error {
		addExperience(&s.Profile, xp)
		level = s.Profile.Level
		ch.touch(model.KindProfile)
		return nil
	})
	return level, err
}

func addExperience(p *model.PlayerProfile, xp int64) {
	p.Experience += xp
	if lvl := model.LevelForExperience(p.Experience); lvl > p.Level {
		p.Level = lvl
	}
}

// AddCoins credits amount and writes a ledger entry tagged with source. It returns the new balance.
func (c *Container) AddCoins(amount int64, source string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %d", economy.ErrInvalidAmount, amount)
	}
	var balance int64
	err := c.mutate(func(s *model.Snapshot, ch *change) error {
		s.Profile.Coins += amount
		balance = s.Profile.Coins
		ch.touch(model.KindProfile)
		ch.record(c.coinEntry(s, amount, source))
		return nil
	})
	return balance, err
}

// SpendCoins debits amount. It is declined, leaving the balance untouched, when amount is not
// positive or exceeds the balance.
func (c *Container) SpendCoins(amount int64, source string) SpendResult {
	var res SpendResult
	err := c.mutate(func(s *model.Snapshot, ch *change) error {
		res.Balance = s.Profile.Coins
		switch {
		case amount <= 0:
			return fmt.Errorf("%w: %d", economy.ErrInvalidAmount, amount)
		case amount > s.Profile.Coins:
			return fmt.Errorf("%w: need %d, have %d", economy.ErrInsufficientFunds, amount, s.Profile.Coins)
		}
		s.Profile.Coins -= amount
		res.Balance = s.Profile.Coins
		ch.touch(model.KindProfile)
		ch.record(c.coinEntry(s, -amount, source))
		return nil
	})
	if err != nil {
		res.Reason = err
		return res
	}
	res.OK = true
	return res
}

// SetUsername changes the display name.
func (c *Container) SetUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLength {
		return invalid("username %q", name)
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if s.Profile.Username == name {
			return nil
		}
		s.Profile.Username = name
		ch.touch(model.KindProfile, model.FieldUsername)
		return nil
	})
}

// EquipCosmetic puts an owned cosmetic into slot.
func (c *Container) EquipCosmetic(slot, cosmeticID string) error {
	if slot == "" || cosmeticID == "" {
		return invalid("slot %q cosmetic %q", slot, cosmeticID)
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if !s.AccountState.OwnsCosmetic(cosmeticID) {
			return fmt.Errorf("%w: %s", ErrNotOwned, cosmeticID)
		}
		if s.AccountState.Equipped[slot] == cosmeticID {
			return nil
		}
		s.AccountState.Equipped[slot] = cosmeticID
		ch.touch(model.KindAccountState, model.FieldEquipped)
		return nil
	})
}

// UnequipCosmetic empties slot.
func (c *Container) UnequipCosmetic(slot string) error {
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if _, ok := s.AccountState.Equipped[slot]; !ok {
			return nil
		}
		delete(s.AccountState.Equipped, slot)
		ch.touch(model.KindAccountState, model.FieldEquipped)
		return nil
	})
}

// GrantCosmetic adds a cosmetic to the owned set.
func (c *Container) GrantCosmetic(cosmeticID string) error {
	if cosmeticID == "" {
		return invalid("empty cosmetic id")
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if s.AccountState.OwnsCosmetic(cosmeticID) {
			return nil
		}
		s.AccountState.OwnedCosmetics = model.AddToSet(s.AccountState.OwnedCosmetics, cosmeticID)
		ch.touch(model.KindAccountState)
		return nil
	})
}

// GrantAvatarPart adds an avatar part to the owned set.
func (c *Container) GrantAvatarPart(partID string) error {
	if partID == "" {
		return invalid("empty avatar part id")
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if s.AccountState.OwnsAvatarPart(partID) {
			return nil
		}
		s.AccountState.OwnedAvatarParts = model.AddToSet(s.AccountState.OwnedAvatarParts, partID)
		ch.touch(model.KindAccountState)
		return nil
	})
}

// UpdateAvatar applies a partial avatar update. Parts being set must be owned.
func (c *Container) UpdateAvatar(u model.AvatarUpdate) error {
	if u.IsEmpty() {
		return nil
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		for _, id := range u.PartIDs() {
			if !s.AccountState.OwnsAvatarPart(id) {
				return fmt.Errorf("%w: %s", ErrNotOwned, id)
			}
		}
		s.AccountState.Avatar = u.Apply(s.AccountState.Avatar)
		ch.touch(model.KindAccountState, model.FieldAvatar)
		return nil
	})
}

// UnlockRegion adds region to the unlocked set.
func (c *Container) UnlockRegion(region string) error {
	if region == "" {
		return invalid("empty region")
	}
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		if s.AccountState.HasRegion(region) {
			return nil
		}
		s.AccountState.UnlockedRegions = model.AddToSet(s.AccountState.UnlockedRegions, region)
		ch.touch(model.KindAccountState)
		return nil
	})
}

// RerollLicense spends cost coins and draws new license stats from rng.
func (c *Container) RerollLicense(cost int64, rng *rand.Rand) RerollResult {
	if rng == nil {
		rng = common.NewRand(0)
	}

	var res RerollResult
	err := c.mutate(func(s *model.Snapshot, ch *change) error {
		res.Balance = s.Profile.Coins
		res.License = s.AccountState.License
		switch {
		case cost < 0:
			return fmt.Errorf("%w: %d", economy.ErrInvalidAmount, cost)
		case cost > s.Profile.Coins:
			return fmt.Errorf("%w: need %d, have %d", economy.ErrInsufficientFunds, cost, s.Profile.Coins)
		}

		license := drawLicense(rng)
		license.RerollCount = s.AccountState.License.RerollCount + 1
		s.AccountState.License = license
		ch.touch(model.KindAccountState, model.FieldLicense)

		if cost > 0 {
			s.Profile.Coins -= cost
			ch.touch(model.KindProfile)
			ch.record(c.coinEntry(s, -cost, SourceLicenseReroll))
		}
		res.Balance = s.Profile.Coins
		res.License = license
		return nil
	})
	if err != nil {
		res.Reason = err
		return res
	}
	res.OK = true
	return res
}

var licenseTiers = []struct {
	name   string
	weight int
	base   int
}{
	{"bronze", 60, 1},
	{"silver", 28, 3},
	{"gold", 10, 5},
	{"platinum", 2, 7},
}

func drawLicense(rng *rand.Rand) model.License {
	total := 0
	for _, t := range licenseTiers {
		total += t.weight
	}
	roll := rng.Intn(total)
	tier := licenseTiers[0]
	for _, t := range licenseTiers {
		if roll < t.weight {
			tier = t
			break
		}
		roll -= t.weight
	}

	return model.License{
		Serial: fmt.Sprintf("%c-%06d", strings.ToUpper(tier.name)[0], rng.Intn(1000000)),
		Tier:   tier.name,
		Speed:  tier.base + rng.Intn(4),
		Range:  tier.base + rng.Intn(4),
		Luck:   tier.base + rng.Intn(4),
	}
}

// RecordDailyChallenge updates the daily streak with a finished challenge. A second completion
// on the same day, or one older than the last, changes nothing.
func (c *Container) RecordDailyChallenge(result model.DailyResult) (model.DailyStreak, error) {
	day, err := time.Parse(model.DateLayout, result.Date)
	if err != nil {
		return model.DailyStreak{}, invalid("daily challenge date %q", result.Date)
	}

	var streak model.DailyStreak
	err = c.mutate(func(s *model.Snapshot, ch *change) error {
		d := &s.AccountState.Daily
		streak = *d

		if d.LastCompletedDate != "" {
			last, err := time.Parse(model.DateLayout, d.LastCompletedDate)
			if err == nil {
				switch gap := int(day.Sub(last).Hours() / 24); {
				case gap <= 0:
					return nil
				case gap == 1:
					d.Current++
				default:
					d.Current = 1
				}
			} else {
				d.Current = 1
			}
		} else {
			d.Current = 1
		}

		if d.Current > d.Longest {
			d.Longest = d.Current
		}
		d.TotalCompletions++
		d.LastCompletedDate = result.Date
		r := result
		s.AccountState.LastDailyResult = &r
		streak = *d
		ch.touch(model.KindAccountState, model.FieldDailyLastDate, model.FieldLastDailyResult)
		return nil
	})
	return streak, err
}

// UpdateSettings applies a partial settings update.
func (c *Container) UpdateSettings(u model.SettingsUpdate) error {
	return c.mutate(func(s *model.Snapshot, ch *change) error {
		next, touched := u.Apply(s.Settings)
		if len(touched) == 0 {
			return nil
		}
		s.Settings = next
		ch.touch(model.KindSettings, touched...)
		return nil
	})
}

// RecordGameCompletion folds a finished game into the profile, writes its score record and a
// ledger entry for the reward, then flushes immediately without waiting for the debounce window.
func (c *Container) RecordGameCompletion(ctx context.Context, result GameResult) (CompletionResult, error) {
	if result.Score < 0 || result.ElapsedMs < 0 || result.FlightTimeMs < 0 || result.CountriesFound < 0 ||
		result.Experience < 0 || result.CoinReward < 0 || result.Streak < 0 {
		return CompletionResult{}, invalid("negative game result field")
	}

	var res CompletionResult
	err := c.mutate(func(s *model.Snapshot, ch *change) error {
		p := &s.Profile
		before := p.Level

		p.GamesPlayed++
		if result.Score > p.BestScore {
			p.BestScore = result.Score
		}
		if result.ElapsedMs > 0 && (p.BestTimeMs == 0 || result.ElapsedMs < p.BestTimeMs) {
			p.BestTimeMs = result.ElapsedMs
		}
		p.TotalFlightTimeMs += result.FlightTimeMs
		p.CountriesFound += result.CountriesFound
		for clue, n := range result.ClueCorrect {
			if n > 0 {
				p.ClueCorrect[clue] += n
			}
		}
		if result.Streak > p.BestStreak {
			p.BestStreak = result.Streak
		}
		if result.Experience > 0 {
			addExperience(p, result.Experience)
		}
		ch.touch(model.KindProfile)

		score, err := model.NewScoreEntry(model.ScoreRecord{
			AccountID:      s.AccountID,
			Score:          result.Score,
			ElapsedMs:      result.ElapsedMs,
			Region:         result.Region,
			Rounds:         len(result.Rounds),
			RoundBreakdown: result.Rounds,
			CreatedAt:      c.opts.now().UTC(),
		})
		ch.record(score, err)
		res.ScoreRecordID = score.ID

		if result.CoinReward > 0 {
			p.Coins += result.CoinReward
			ch.record(c.coinEntry(s, result.CoinReward, SourceGameCompletion))
		}

		res.Level = p.Level
		res.LeveledUp = p.Level > before
		res.Balance = p.Coins
		return nil
	})
	if err != nil {
		return CompletionResult{}, err
	}

	if accountID := c.AccountID(); accountID != "" {
		c.mirror("game completion", func(ctx context.Context, m Mirror) error {
			return m.GameCompleted(ctx, accountID, result)
		})
	}

	res.Flush = c.deps.Syncer.FlushNow(ctx)
	return res, nil
}
