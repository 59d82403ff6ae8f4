// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package model

// AvatarUpdate is a partial avatar change. Parts maps a slot to the change for that slot;
// Clear removes the part from the slot.
type AvatarUpdate struct {
	Base   Update[string]
	Parts  map[string]Update[string]
	Accent Update[string]
	Frame  Update[string]
}

// IsEmpty reports whether the update changes nothing.
func (u AvatarUpdate) IsEmpty() bool {
	if !u.Base.IsUnchanged() || !u.Accent.IsUnchanged() || !u.Frame.IsUnchanged() {
		return false
	}
	for _, p := range u.Parts {
		if !p.IsUnchanged() {
			return false
		}
	}
	return true
}

// PartIDs returns the avatar part ids the update sets.
func (u AvatarUpdate) PartIDs() []string {
	var ids []string
	for _, p := range u.Parts {
		if v, ok := p.Value(); ok {
			ids = append(ids, v)
		}
	}
	return ids
}

// Apply returns a with the update applied.
func (u AvatarUpdate) Apply(a AvatarConfig) AvatarConfig {
	out := AvatarConfig{
		Base:   u.Base.Apply(a.Base),
		Parts:  cloneStringMap(a.Parts),
		Accent: u.Accent.ApplyPtr(cloneStringPtr(a.Accent)),
		Frame:  u.Frame.ApplyPtr(cloneStringPtr(a.Frame)),
	}
	if out.Base == "" {
		out.Base = "default"
	}
	for slot, p := range u.Parts {
		switch {
		case p.IsSet():
			v, _ := p.Value()
			out.Parts[slot] = v
		case p.IsClear():
			delete(out.Parts, slot)
		}
	}
	return out
}
