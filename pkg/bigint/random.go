package bigint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"
)

// weakReader is a fast, non-cryptographic stream seeded from OS entropy
// once; it exists only for the "weak" tier (fast, high-volume sampling
// in tests and benchmarks), never for key material. Its output differs
// from run to run.
type weakReader struct {
	mu    sync.Mutex
	state [4]uint64
}

func newWeakReader() *weakReader {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	w := &weakReader{}
	for i := range w.state {
		w.state[i] = binary.LittleEndian.Uint64(seed[i*8 : i*8+8])
	}
	return w
}

// xoshiro-style mixing, good enough for a non-cryptographic fast tier.
func (w *weakReader) next() uint64 {
	s0, s1, s2, s3 := w.state[0], w.state[1], w.state[2], w.state[3]
	result := rotl(s1*5, 7) * 9
	t := s1 << 17
	s2 ^= s0
	s3 ^= s1
	s1 ^= s2
	s0 ^= s3
	s2 ^= t
	s3 = rotl(s3, 45)
	w.state[0], w.state[1], w.state[2], w.state[3] = s0, s1, s2, s3
	return result
}

func rotl(x uint64, k uint) uint64 { return (x << k) | (x >> (64 - k)) }

// Read implements io.Reader.
func (w *weakReader) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(p)
	for i := 0; i < n; i += 8 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], w.next())
		copy(p[i:], buf[:])
	}
	return n, nil
}

// strongReader stretches a single OS-entropy seed with a SHA-256
// counter-mode expansion; cheaper than reading the blocking pool for
// every call but still cryptographically seeded, matching the "strong"
// tier.
type strongReader struct {
	mu      sync.Mutex
	seed    [32]byte
	counter uint64
}

func newStrongReader() *strongReader {
	s := &strongReader{}
	_, _ = rand.Read(s.seed[:])
	return s
}

func (s *strongReader) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := p
	for len(out) > 0 {
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], s.counter)
		s.counter++
		h := sha256.New()
		h.Write(s.seed[:])
		h.Write(ctr[:])
		block := h.Sum(nil)
		n := copy(out, block)
		out = out[n:]
	}
	return len(p), nil
}

var _ io.Reader = (*weakReader)(nil)
var _ io.Reader = (*strongReader)(nil)
