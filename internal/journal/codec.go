package journal

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// GenesisHash seeds the chain of every mission.
var GenesisHash = hashChain("", []byte("galactic-survival/journal/v1"))

var bufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func compress(src []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("journal: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("journal: compress: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(src []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, lz4.NewReader(bytes.NewReader(src))); err != nil {
		return nil, fmt.Errorf("journal: decompress: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// hashChain links payload to the previous entry: blake3(prev || payload).
func hashChain(prev string, payload []byte) string {
	h := blake3.New(32, nil)
	h.Write([]byte(prev))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a short blake3 digest of s, for logs that must not carry s itself.
func Fingerprint(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
