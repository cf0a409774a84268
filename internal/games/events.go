package games

import "github.com/MJE43/galactic-survival/internal/engine"

// EventKind identifies a random hazard.
type EventKind string

const (
	EventAsteroid    EventKind = "asteroid"
	EventAlien       EventKind = "alien"
	EventMalfunction EventKind = "malfunction"
)

// DefaultEventChance is the probability that a hazard follows an action.
const DefaultEventChance = 0.10

// Event is a hazard that fired during a turn.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field"`
	Delta   int       `json:"delta"`
}

type hazard struct {
	kind    EventKind
	field   string
	message string
	apply   func(s *PlayerState, n int)
}

// hazards are drawn with equal weight; the index order is part of the
// replay format.
var hazards = []hazard{
	{
		kind:    EventAsteroid,
		field:   "health",
		message: "Asteroid field encountered! Ship damaged.",
		apply:   func(s *PlayerState, n int) { s.Health -= n },
	},
	{
		kind:    EventAlien,
		field:   "credits",
		message: "Alien encounter! Some credits were stolen.",
		apply:   func(s *PlayerState, n int) { s.Credits -= n },
	},
	{
		kind:    EventMalfunction,
		field:   "fuel",
		message: "System malfunction! Fuel leaked.",
		apply:   func(s *PlayerState, n int) { s.Fuel -= n },
	},
}

// EventMessage returns the notice text for a hazard kind.
func EventMessage(kind EventKind) string {
	for _, h := range hazards {
		if h.kind == kind {
			return h.message
		}
	}
	return ""
}

// rollEvent draws the hazard sub-step. The result is not clamped.
func rollEvent(s *PlayerState, rng engine.Source, chance float64) []Event {
	if rng.Float() >= chance {
		return nil
	}
	h := hazards[rng.Intn(0, len(hazards)-1)]
	n := rng.Intn(10, 30)
	h.apply(s, n)
	return []Event{{Kind: h.kind, Message: h.message, Field: h.field, Delta: -n}}
}
