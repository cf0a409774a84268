package engine

import (
	"testing"
)

func TestFloats(t *testing.T) {
	tests := []struct {
		name       string
		serverSeed string
		clientSeed string
		nonce      uint64
		cursor     uint64
		count      int
	}{
		{"single float", "test_server_seed", "mission-1", 1, 0, 1},
		{"multiple floats", "test_server_seed", "mission-1", 1, 0, 8},
		{"cursor boundary", "test_server_seed", "mission-1", 1, 31, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floats := Floats(tt.serverSeed, tt.clientSeed, tt.nonce, tt.cursor, tt.count)
			if len(floats) != tt.count {
				t.Fatalf("Floats() returned %d floats, want %d", len(floats), tt.count)
			}
			for i, f := range floats {
				if f < 0 || f >= 1 {
					t.Errorf("float %d out of range [0, 1): %f", i, f)
				}
			}
		})
	}
}

func TestTurnSourceIsReproducible(t *testing.T) {
	a := NewTurnSource("seed", "mission-1", 3)
	b := NewTurnSource("seed", "mission-1", 3)
	for i := 0; i < 20; i++ {
		x, y := a.Intn(10, 50), b.Intn(10, 50)
		if x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}

	c := NewTurnSource("seed", "mission-1", 4)
	same := true
	d := NewTurnSource("seed", "mission-1", 3)
	for i := 0; i < 8; i++ {
		if c.Float() != d.Float() {
			same = false
		}
	}
	if same {
		t.Error("different days produced identical streams")
	}
}

func TestIntnStaysInClosedRange(t *testing.T) {
	bg := NewByteGenerator("range_seed", "client", 7, 0)
	seenLo, seenHi := false, false
	for i := 0; i < 5000; i++ {
		n := bg.Intn(1, 5)
		if n < 1 || n > 5 {
			t.Fatalf("Intn(1,5) = %d", n)
		}
		seenLo = seenLo || n == 1
		seenHi = seenHi || n == 5
	}
	if !seenLo || !seenHi {
		t.Errorf("range ends never drawn: lo=%v hi=%v", seenLo, seenHi)
	}
}

func TestScale(t *testing.T) {
	cases := []struct {
		f      float64
		lo, hi int
		want   int
	}{
		{0, 10, 50, 10},
		{0.999999, 10, 50, 50},
		{0.5, 1, 5, 3},
		{0.3, 7, 7, 7},
	}
	for _, c := range cases {
		if got := scale(c.f, c.lo, c.hi); got != c.want {
			t.Errorf("scale(%v, %d, %d) = %d, want %d", c.f, c.lo, c.hi, got, c.want)
		}
	}
}

func TestBytesToFloat(t *testing.T) {
	if got := bytesToFloat([4]byte{0, 0, 0, 0}); got != 0 {
		t.Errorf("zero bytes = %f", got)
	}
	if got := bytesToFloat([4]byte{128, 0, 0, 0}); got != 0.5 {
		t.Errorf("0x80 = %f, want 0.5", got)
	}
	if got := bytesToFloat([4]byte{255, 255, 255, 255}); got >= 1 {
		t.Errorf("max bytes = %f, want < 1", got)
	}
}

func TestScriptedSource(t *testing.T) {
	s := &ScriptedSource{Ints: []int{42}, Floats: []float64{0.05}}
	if got := s.Intn(10, 50); got != 42 {
		t.Errorf("Intn = %d, want 42", got)
	}
	if got := s.Float(); got != 0.05 {
		t.Errorf("Float = %f, want 0.05", got)
	}
	if got := s.Intn(10, 50); got != 10 {
		t.Errorf("exhausted Intn = %d, want lo", got)
	}
	if got := s.Float(); got != 0.99 {
		t.Errorf("exhausted Float = %f", got)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d", s.Remaining())
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	b, _ := NewSeed()
	if len(a) != 64 || a == b {
		t.Errorf("unexpected seeds %q %q", a, b)
	}
	if len(HashSeed(a)) != 64 {
		t.Error("hash length")
	}
}
