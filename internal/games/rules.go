package games

import "github.com/MJE43/galactic-survival/internal/engine"

// Engine applies turns. The zero value uses DefaultEventChance.
type Engine struct {
	// EventChance is the hazard probability per turn. Negative disables hazards.
	EventChance float64
}

// ApplyAction runs one turn with the default hazard probability.
func ApplyAction(state PlayerState, action Action, rng engine.Source) (PlayerState, []Event) {
	return Engine{}.Apply(state, action, rng)
}

// Apply returns the state after action and any hazard that fired. The input
// is not modified. Unknown actions change nothing but still cost a day and
// still roll for a hazard.
//
// Order: direct effects, day +1, clamp gauges to [0, 100], hazard roll.
// Hazard damage is applied after the clamp and is not clamped again.
func (e Engine) Apply(state PlayerState, action Action, rng engine.Source) (PlayerState, []Event) {
	next := state
	if r, ok := GetRule(action); ok {
		r.Apply(&next, rng)
	}

	next.DaysSurvived++
	next.Health = clamp(next.Health, 0, MaxGauge)
	next.Oxygen = clamp(next.Oxygen, 0, MaxGauge)
	next.Fuel = clamp(next.Fuel, 0, MaxGauge)

	return next, rollEvent(&next, rng, e.chance())
}

func (e Engine) chance() float64 {
	switch {
	case e.EventChance < 0:
		return 0
	case e.EventChance == 0:
		return DefaultEventChance
	case e.EventChance > 1:
		return 1
	}
	return e.EventChance
}
