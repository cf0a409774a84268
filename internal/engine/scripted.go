package engine

// ScriptedSource replays fixed draws in order. Once a queue is exhausted
// Intn returns lo and Float returns 0.99.
type ScriptedSource struct {
	Ints   []int
	Floats []float64
}

// Intn implements Source.
func (s *ScriptedSource) Intn(lo, hi int) int {
	if len(s.Ints) == 0 {
		return lo
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	return v
}

// Float implements Source.
func (s *ScriptedSource) Float() float64 {
	if len(s.Floats) == 0 {
		return 0.99
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// Remaining reports how many scripted draws have not been consumed.
func (s *ScriptedSource) Remaining() int {
	return len(s.Ints) + len(s.Floats)
}
