package games

import (
	"sort"
	"strings"

	"github.com/MJE43/galactic-survival/internal/engine"
)

// Action names a player move.
type Action string

const (
	ActionMine   Action = "mine"
	ActionRest   Action = "rest"
	ActionTravel Action = "travel"
	ActionTrade  Action = "trade"
)

// ActionSpec describes an action for menus and help text.
type ActionSpec struct {
	ID      Action `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"-"`
	Effects string `json:"effects"`
	Outcome string `json:"outcome"`
}

// Rule applies one action's direct effects to a state.
type Rule interface {
	Spec() ActionSpec
	Apply(s *PlayerState, rng engine.Source)
}

var rules = map[Action]Rule{}

// RegisterRule adds a rule to the registry, replacing any rule with the same ID.
func RegisterRule(r Rule) {
	rules[r.Spec().ID] = r
}

// GetRule looks up the rule for an action.
func GetRule(a Action) (Rule, bool) {
	r, ok := rules[a]
	return r, ok
}

// ListActions returns the registered actions in menu order.
func ListActions() []ActionSpec {
	specs := make([]ActionSpec, 0, len(rules))
	for _, r := range rules {
		specs = append(specs, r.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Order < specs[j].Order })
	return specs
}

// ParseAction normalizes user input. Unrecognized names are returned as-is
// with ok=false; applying them is a no-op turn.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rules[a]
	return a, ok
}

type MineRule struct{}

func (MineRule) Spec() ActionSpec {
	return ActionSpec{
		ID:      ActionMine,
		Name:    "Mine Resources",
		Order:   1,
		Effects: "credits +10..50, oxygen -5..15, fuel -5..15",
		Outcome: "You mined valuable resources and earned credits!",
	}
}

func (MineRule) Apply(s *PlayerState, rng engine.Source) {
	s.Credits += rng.Intn(10, 50)
	s.Oxygen -= rng.Intn(5, 15)
	s.Fuel -= rng.Intn(5, 15)
}

type RestRule struct{}

func (RestRule) Spec() ActionSpec {
	return ActionSpec{
		ID:      ActionRest,
		Name:    "Rest",
		Order:   2,
		Effects: "health +10..30, oxygen -5..15",
		Outcome: "You restored health but consumed oxygen!",
	}
}

func (RestRule) Apply(s *PlayerState, rng engine.Source) {
	s.Health += rng.Intn(10, 30)
	s.Oxygen -= rng.Intn(5, 15)
}

type TravelRule struct{}

func (TravelRule) Spec() ActionSpec {
	return ActionSpec{
		ID:      ActionTravel,
		Name:    "Travel to New Planet",
		Order:   3,
		Effects: "new planet 1..5, fuel -20..40, oxygen -10..30, distance +100..500",
		Outcome: "You traveled to another planet, consuming fuel and oxygen!",
	}
}

func (TravelRule) Apply(s *PlayerState, rng engine.Source) {
	s.CurrentPlanet = rng.Intn(1, PlanetCount)
	s.Fuel -= rng.Intn(20, 40)
	s.Oxygen -= rng.Intn(10, 30)
	s.DistanceTraveled += rng.Intn(100, 500)
}

type TradeRule struct{}

func (TradeRule) Spec() ActionSpec {
	return ActionSpec{
		ID:      ActionTrade,
		Name:    "Trade at Space Station",
		Order:   4,
		Effects: "credits -10..30, oxygen +20..40, fuel +20..40",
		Outcome: "You traded resources for supplies!",
	}
}

func (TradeRule) Apply(s *PlayerState, rng engine.Source) {
	s.Credits -= rng.Intn(10, 30)
	s.Oxygen += rng.Intn(20, 40)
	s.Fuel += rng.Intn(20, 40)
}

func init() {
	RegisterRule(MineRule{})
	RegisterRule(RestRule{})
	RegisterRule(TravelRule{})
	RegisterRule(TradeRule{})
}
