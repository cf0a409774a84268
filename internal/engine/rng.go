package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Source supplies the random draws consumed by a turn.
type Source interface {
	// Intn returns a uniform integer in the closed range [lo, hi].
	Intn(lo, hi int) int
	// Float returns a uniform value in [0, 1).
	Float() float64
}

// ByteGenerator streams HMAC-SHA256 bytes keyed by the server seed over
// "clientSeed:nonce:round" and turns them into floats four bytes at a time.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a generator positioned at the given byte cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// NewTurnSource returns the source for one turn of a mission. The same
// server seed, mission and day always replay the same draws.
func NewTurnSource(serverSeed, missionID string, day int) *ByteGenerator {
	if day < 0 {
		day = 0
	}
	return NewByteGenerator(serverSeed, missionID, uint64(day), 0)
}

// Next returns the next byte from the stream.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat generates the next float using exactly 4 bytes.
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

// Float implements Source.
func (bg *ByteGenerator) Float() float64 {
	return bg.NextFloat()
}

// Intn implements Source.
func (bg *ByteGenerator) Intn(lo, hi int) int {
	return scale(bg.NextFloat(), lo, hi)
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat maps 4 bytes onto [0, 1) as sum(b[i] / 256^(i+1)).
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// scale maps f in [0, 1) onto the closed integer range [lo, hi].
func scale(f float64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := lo + int(math.Floor(f*float64(hi-lo+1)))
	if n > hi {
		n = hi
	}
	return n
}

// Floats generates count floats starting from the given cursor.
func Floats(serverSeed, clientSeed string, nonce uint64, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(serverSeed, clientSeed, nonce, cursor)
	floats := make([]float64, count)
	for i := range floats {
		floats[i] = bg.NextFloat()
	}
	return floats
}

// NewSeed returns a random 32-byte hex server seed.
func NewSeed() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// HashSeed returns the SHA-256 commitment for a server seed.
func HashSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
