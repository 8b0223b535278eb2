package model

import "time"

// ClassTemplate holds the static per-class inputs the stat base suppliers
// read: primary attributes and vitals growth.
type ClassTemplate struct {
	Name      string
	Strength  int32
	Agility   int32
	Vitality  int32
	Intellect int32

	HPBase     int32
	HPPerLevel int32
	SPBase     int32
	SPPerLevel int32
}

// FighterTemplate returns the melee-leaning starting class.
func FighterTemplate() ClassTemplate {
	return ClassTemplate{
		Name:       "fighter",
		Strength:   40,
		Agility:    30,
		Vitality:   43,
		Intellect:  21,
		HPBase:     80,
		HPPerLevel: 12,
		SPBase:     30,
		SPPerLevel: 5,
	}
}

// MysticTemplate returns the caster-leaning starting class.
func MysticTemplate() ClassTemplate {
	return ClassTemplate{
		Name:       "mystic",
		Strength:   22,
		Agility:    21,
		Vitality:   25,
		Intellect:  41,
		HPBase:     50,
		HPPerLevel: 8,
		SPBase:     60,
		SPPerLevel: 11,
	}
}

// TemplateByName resolves a stored class name. Returns the fighter template
// for unknown names so a corrupted row still loads a playable character.
func TemplateByName(name string) ClassTemplate {
	switch name {
	case "mystic":
		return MysticTemplate()
	default:
		return FighterTemplate()
	}
}

// Tuning groups the cadence and countdown knobs of one character's tickers
// and scheduler slots. Values come from the server config; tests shrink them
// freely because all time is caller-supplied.
type Tuning struct {
	HPRegenInterval     time.Duration
	SPRegenInterval     time.Duration
	AffectDecayInterval time.Duration

	// RestRegenDelay is the one-shot initial delay armed on the regen
	// tickers when the character sits down to rest.
	RestRegenDelay time.Duration

	// KnockoutDelay is how long a character lies at zero HP before dying,
	// unless healed above the recovery threshold first.
	KnockoutDelay time.Duration

	// LogoutDelay is the countdown between a logout request and the actual
	// logout; hostile activity cancels it.
	LogoutDelay time.Duration
}

// DefaultTuning returns the production cadences.
func DefaultTuning() Tuning {
	return Tuning{
		HPRegenInterval:     3 * time.Second,
		SPRegenInterval:     3 * time.Second,
		AffectDecayInterval: time.Second,
		RestRegenDelay:      5 * time.Second,
		KnockoutDelay:       30 * time.Second,
		LogoutDelay:         15 * time.Second,
	}
}
