package bigint

import (
	"fmt"
	"io"
	"math/big"
)

// smallPrimeSieve lists primes under 1000 used to sieve candidates
// before paying for Miller-Rabin, a trial-division sieve step.
var smallPrimeSieve = func() []uint64 {
	const limit = 1000
	sieve := make([]bool, limit)
	var primes []uint64
	for i := uint64(2); i < limit; i++ {
		if sieve[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j < limit; j += i {
			sieve[j] = true
		}
	}
	return primes
}()

func passesSieve(n *big.Int) bool {
	for _, p := range smallPrimeSieve {
		pb := new(big.Int).SetUint64(p)
		if n.Cmp(pb) == 0 {
			return true
		}
		if new(big.Int).Mod(n, pb).Sign() == 0 {
			return false
		}
	}
	return true
}

// GenerateSophieGermain returns a random prime q of the requested bit
// length such that 2q+1 is also prime, together with p = 2q+1. This is
// a safe-prime generation policy: sieve candidates for
// q, Miller-Rabin q, then form and test p the same way. The only
// failure mode is the RNG failing; otherwise the search always
// eventually succeeds.
func GenerateSophieGermain(r io.Reader, bits int, iterations int) (q, p *Int, err error) {
	if bits < 8 {
		return nil, nil, fmt.Errorf("%w: bits too small for a safe prime", ErrDomain)
	}
	for {
		cand, err := randomOddBits(r, bits)
		if err != nil {
			return nil, nil, err
		}
		if !passesSieve(cand.v) {
			continue
		}
		if !cand.ProbablyPrime(iterations) {
			continue
		}
		pCand := cand.Mul2Exp(1).Add(NewInt(1)) // p = 2q+1
		if !passesSieve(pCand.v) {
			continue
		}
		if !pCand.ProbablyPrime(iterations) {
			continue
		}
		return cand, pCand, nil
	}
}

// GenerateSafePrime is an alias for GenerateSophieGermain that returns
// only p, matching callers who only need the safe prime itself.
func GenerateSafePrime(r io.Reader, bits int, iterations int) (*Int, error) {
	_, p, err := GenerateSophieGermain(r, bits, iterations)
	return p, err
}

// randomOddBits returns a random odd integer of exactly `bits` bits
// (top bit forced to 1 so the bit length is exact, low bit forced to 1
// so the candidate is odd).
func randomOddBits(r io.Reader, bits int) (*Int, error) {
	byteLen := (bits + 7) / 8
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("bigint: reading entropy: %w", err)
	}
	excess := uint(byteLen*8 - bits)
	buf[0] &= 0xff >> excess
	buf[0] |= 1 << uint(7-excess)
	buf[len(buf)-1] |= 1
	return &Int{v: new(big.Int).SetBytes(buf)}, nil
}
