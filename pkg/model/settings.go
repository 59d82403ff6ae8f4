// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

import "time"

// Units selects the distance unit shown in game.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Settings holds device-independent gameplay, audio and display preferences.
type Settings struct {
	MusicVolume    float64   `json:"music_volume"`
	SFXVolume      float64   `json:"sfx_volume"`
	Haptics        bool      `json:"haptics"`
	Units          Units     `json:"units"`
	ShowLabels     bool      `json:"show_labels"`
	Language       *string   `json:"language,omitempty"` // nil follows the device language
	ColorblindMode bool      `json:"colorblind_mode"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSettings returns the defaults created on first login.
func NewSettings() Settings {
	return Settings{
		MusicVolume: 0.8,
		SFXVolume:   1.0,
		Haptics:     true,
		Units:       UnitsMetric,
		ShowLabels:  true,
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Language = cloneStringPtr(s.Language)
	return out
}

// SettingsUpdate is a partial settings change; unset fields stay as they are.
type SettingsUpdate struct {
	MusicVolume    Update[float64]
	SFXVolume      Update[float64]
	Haptics        Update[bool]
	Units          Update[Units]
	ShowLabels     Update[bool]
	Language       Update[string]
	ColorblindMode Update[bool]
}

// Apply returns s with the update applied and the names of the fields it touched.
func (u SettingsUpdate) Apply(s Settings) (Settings, []string) {
	out := s.Clone()
	var touched []string
	if !u.MusicVolume.IsUnchanged() {
		out.MusicVolume = clampVolume(u.MusicVolume.Apply(s.MusicVolume))
		touched = append(touched, FieldMusicVolume)
	}
	if !u.SFXVolume.IsUnchanged() {
		out.SFXVolume = clampVolume(u.SFXVolume.Apply(s.SFXVolume))
		touched = append(touched, FieldSFXVolume)
	}
	if !u.Haptics.IsUnchanged() {
		out.Haptics = u.Haptics.Apply(s.Haptics)
		touched = append(touched, FieldHaptics)
	}
	if !u.Units.IsUnchanged() {
		out.Units = u.Units.Apply(s.Units)
		if out.Units == "" {
			out.Units = UnitsMetric
		}
		touched = append(touched, FieldUnits)
	}
	if !u.ShowLabels.IsUnchanged() {
		out.ShowLabels = u.ShowLabels.Apply(s.ShowLabels)
		touched = append(touched, FieldShowLabels)
	}
	if !u.Language.IsUnchanged() {
		out.Language = u.Language.ApplyPtr(s.Language)
		touched = append(touched, FieldLanguage)
	}
	if !u.ColorblindMode.IsUnchanged() {
		out.ColorblindMode = u.ColorblindMode.Apply(s.ColorblindMode)
		touched = append(touched, FieldColorblindMode)
	}
	return out, touched
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
