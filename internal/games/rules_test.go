package games

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galactic-survival/internal/engine"
)

// noEvent is a hazard roll that never fires.
const noEvent = 0.5

func TestApplyActionTable(t *testing.T) {
	start := NewMission("Nova", "m-1")

	tests := []struct {
		action Action
		ints   []int
		want   func(s *PlayerState)
	}{
		{ActionMine, []int{50, 15, 15}, func(s *PlayerState) {
			s.Credits, s.Oxygen, s.Fuel = 150, 85, 85
		}},
		{ActionRest, []int{30, 5}, func(s *PlayerState) {
			s.Health, s.Oxygen = 100, 95
		}},
		{ActionTravel, []int{4, 20, 30, 250}, func(s *PlayerState) {
			s.CurrentPlanet, s.Fuel, s.Oxygen, s.DistanceTraveled = 4, 80, 70, 250
		}},
		{ActionTrade, []int{10, 40, 20}, func(s *PlayerState) {
			s.Credits, s.Oxygen, s.Fuel = 90, 100, 100
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			rng := &engine.ScriptedSource{Ints: tt.ints, Floats: []float64{noEvent}}
			got, events := ApplyAction(start, tt.action, rng)

			want := start
			tt.want(&want)
			want.DaysSurvived = 1

			assert.Equal(t, want, got)
			assert.Empty(t, events)
			assert.Zero(t, rng.Remaining(), "all scripted draws consumed")
		})
	}
}

func TestApplyActionDoesNotMutateInput(t *testing.T) {
	start := NewMission("Nova", "m-1")
	before := start
	ApplyAction(start, ActionTravel, &engine.ScriptedSource{Ints: []int{3, 40, 30, 500}})
	assert.Equal(t, before, start)
}

func TestUnknownActionStillAdvancesDay(t *testing.T) {
	start := NewMission("Nova", "m-1")
	got, events := ApplyAction(start, Action("dance"), &engine.ScriptedSource{Floats: []float64{noEvent}})

	want := start
	want.DaysSurvived = 1
	assert.Equal(t, want, got)
	assert.Empty(t, events)
}

func TestClampHappensBeforeHazard(t *testing.T) {
	s := NewMission("Nova", "m-1")
	s.Health = 95

	// rest +30 would reach 125, clamp to 100, asteroid then takes 25.
	rng := &engine.ScriptedSource{Ints: []int{30, 5, 0, 25}, Floats: []float64{0.01}}
	got, events := ApplyAction(s, ActionRest, rng)

	require.Len(t, events, 1)
	assert.Equal(t, EventAsteroid, events[0].Kind)
	assert.Equal(t, -25, events[0].Delta)
	assert.Equal(t, "Asteroid field encountered! Ship damaged.", events[0].Message)
	assert.Equal(t, 75, got.Health)
}

func TestHazardIsNotReclamped(t *testing.T) {
	s := NewMission("Nova", "m-1")
	s.Fuel = 12

	// mine drains fuel to 2, malfunction takes 30 more.
	rng := &engine.ScriptedSource{Ints: []int{10, 5, 10, 2, 30}, Floats: []float64{0}}
	got, events := ApplyAction(s, ActionMine, rng)

	require.Len(t, events, 1)
	assert.Equal(t, EventMalfunction, events[0].Kind)
	assert.Equal(t, -28, got.Fuel)
	assert.True(t, got.IsGameOver())
}

func TestAlienStealsCreditsBelowZero(t *testing.T) {
	s := NewMission("Nova", "m-1")
	s.Credits = 5

	rng := &engine.ScriptedSource{Ints: []int{30, 20, 20, 1, 30}, Floats: []float64{0.09}}
	got, events := ApplyAction(s, ActionTrade, rng)

	require.Len(t, events, 1)
	assert.Equal(t, EventAlien, events[0].Kind)
	assert.Equal(t, 5-30-30, got.Credits)
	assert.False(t, got.IsGameOver(), "credits do not end a mission")
}

func TestEventChanceBoundary(t *testing.T) {
	s := NewMission("Nova", "m-1")

	_, events := ApplyAction(s, ActionRest, &engine.ScriptedSource{Ints: []int{10, 5}, Floats: []float64{0.10}})
	assert.Empty(t, events, "a roll equal to the chance does not fire")

	_, events = Engine{EventChance: -1}.Apply(s, ActionRest, &engine.ScriptedSource{Floats: []float64{0}})
	assert.Empty(t, events, "negative chance disables hazards")

	_, events = Engine{EventChance: 1}.Apply(s, ActionRest, &engine.ScriptedSource{Floats: []float64{0.98}})
	assert.Len(t, events, 1)
}

// Properties over a seeded stream: gauges are in range before the hazard
// step, days advance by one, travel lands on a planet and moves forward.
func TestApplyActionProperties(t *testing.T) {
	actions := []Action{ActionMine, ActionRest, ActionTravel, ActionTrade, Action("unknown")}

	for i := 0; i < 400; i++ {
		state := NewMission("Prop", "m-prop")
		state.Credits = i - 200
		state.Health = i % 101
		state.Oxygen = (i * 7) % 101
		state.Fuel = (i * 13) % 101
		state.DistanceTraveled = i * 3

		for _, a := range actions {
			rng := engine.NewTurnSource("prop-seed", fmt.Sprintf("m-%d", i), i)
			got, _ := Engine{EventChance: -1}.Apply(state, a, rng)

			require.Equal(t, state.DaysSurvived+1, got.DaysSurvived)
			for _, g := range []int{got.Health, got.Oxygen, got.Fuel} {
				require.GreaterOrEqual(t, g, 0)
				require.LessOrEqual(t, g, MaxGauge)
			}
			if a == ActionTravel {
				require.GreaterOrEqual(t, got.CurrentPlanet, 1)
				require.LessOrEqual(t, got.CurrentPlanet, PlanetCount)
				require.Greater(t, got.DistanceTraveled, state.DistanceTraveled)
			} else {
				require.Equal(t, state.DistanceTraveled, got.DistanceTraveled)
			}

			withEvents, _ := ApplyAction(state, a, engine.NewTurnSource("prop-seed", fmt.Sprintf("m-%d", i), i))
			require.Equal(t, state.DaysSurvived+1, withEvents.DaysSurvived)
		}
	}
}

func TestRestAloneCannotEndMission(t *testing.T) {
	s := NewMission("Nova", "m-1")
	s.Health, s.Oxygen, s.Fuel = 5, 50, 50

	got, events := ApplyAction(s, ActionRest, &engine.ScriptedSource{Ints: []int{10, 15}, Floats: []float64{noEvent}})
	assert.Empty(t, events)
	assert.False(t, got.IsGameOver())

	got, events = ApplyAction(s, ActionRest, &engine.ScriptedSource{Ints: []int{10, 15, 0, 20}, Floats: []float64{0.05}})
	require.Len(t, events, 1)
	assert.Equal(t, -5, got.Health)
	assert.True(t, got.IsGameOver())
}
