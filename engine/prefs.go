package engine

// Pile preferences are advisory metadata: they never affect the legality of
// a play, and reading or writing them has no effect on turn state. They are
// cleared on the lifecycle events that would make them stale — playing on a
// pile clears all of its signals, ending a turn clears the acting player's
// signals everywhere.

// GetPreference returns the player's signal on the pile, defaulting to
// PrefNone when no entry exists.
func GetPreference(p Pile, playerID string) PreferenceLevel {
	if lvl, ok := p.Preferences[playerID]; ok {
		return lvl
	}
	return PrefNone
}

// SetPreference returns a copy of the pile with the player's signal set.
// PrefNone removes the entry entirely; there are no tombstones.
func SetPreference(p Pile, playerID string, level PreferenceLevel) Pile {
	cp := p.Clone()
	if level == PrefNone {
		delete(cp.Preferences, playerID)
		if len(cp.Preferences) == 0 {
			cp.Preferences = nil
		}
		return cp
	}
	if cp.Preferences == nil {
		cp.Preferences = make(map[string]PreferenceLevel, 1)
	}
	cp.Preferences[playerID] = level
	return cp
}

// ClearPreferences returns a copy of the pile with the player's signal
// removed.
func ClearPreferences(p Pile, playerID string) Pile {
	return SetPreference(p, playerID, PrefNone)
}

// ClearAllPreferences returns a copy of the pile with every signal removed.
func ClearAllPreferences(p Pile) Pile {
	cp := p.Clone()
	cp.Preferences = nil
	return cp
}

// ActivePreferences returns a copy of every signal set on the pile, keyed by
// player ID. Never nil.
func ActivePreferences(p Pile) map[string]PreferenceLevel {
	out := make(map[string]PreferenceLevel, len(p.Preferences))
	for id, lvl := range p.Preferences {
		out[id] = lvl
	}
	return out
}

// PreferenceCount returns how many players have set the given level on the
// pile.
func PreferenceCount(p Pile, level PreferenceLevel) int {
	n := 0
	for _, lvl := range p.Preferences {
		if lvl == level {
			n++
		}
	}
	return n
}

// HighestPreference returns the strongest signal currently set on the pile.
func HighestPreference(p Pile) PreferenceLevel {
	for _, lvl := range []PreferenceLevel{PrefHigh, PrefMedium, PrefLow} {
		if PreferenceCount(p, lvl) > 0 {
			return lvl
		}
	}
	return PrefNone
}
