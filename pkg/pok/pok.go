// Package pok implements the two Sigma-protocol proofs of knowledge the
// core needs: a Schnorr proof of knowledge of a discrete
// log, and a Chaum-Pedersen proof of equality of two discrete logs.
// Both are made non-interactive via the domain-separated Fiat-Shamir
// hash in pkg/hash; an interactive, "public-coin" variant can be built
// by swapping the challenge for one produced by pkg/edcf.
package pok

import (
	"io"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/hash"
)

// SchnorrProof proves knowledge of x such that y = g^x mod p.
type SchnorrProof struct {
	T *bigint.Int // commitment g^v
	R *bigint.Int // response v - c*x mod q
}

// ProveSchnorr proves knowledge of x where y = g^x.
func ProveSchnorr(r io.Reader, grp *group.Group, g, y, x *bigint.Int) (*SchnorrProof, error) {
	v, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, err
	}
	t, err := grp.Exp(g, v)
	if err != nil {
		return nil, err
	}
	c := hash.SchnorrChallenge(grp.Q.Big(), g.Big(), y.Big(), t.Big())
	resp, err := v.Sub(bigint.FromBigInt(c).Mul(x)).Mod(grp.Q)
	if err != nil {
		return nil, err
	}
	return &SchnorrProof{T: t, R: resp}, nil
}

// VerifySchnorr checks t == g^r * y^c where c = H(g, y, t).
func VerifySchnorr(grp *group.Group, g, y *bigint.Int, proof *SchnorrProof) (bool, error) {
	c := hash.SchnorrChallenge(grp.Q.Big(), g.Big(), y.Big(), proof.T.Big())
	gr, err := grp.Exp(g, proof.R)
	if err != nil {
		return false, err
	}
	yc, err := grp.Exp(y, bigint.FromBigInt(c))
	if err != nil {
		return false, err
	}
	rhs, err := grp.Mul(gr, yc)
	if err != nil {
		return false, err
	}
	return rhs.Equal(proof.T), nil
}

// EqualityProof proves that y1 = g1^x and y2 = g2^x share the same
// discrete log x, the Chaum-Pedersen construction used by
// threshold-ElGamal share verification () and the joint h
// generation / Pedersen VSS extraction round.
type EqualityProof struct {
	T1, T2 *bigint.Int
	R      *bigint.Int
}

// ProveEquality proves that y1 = g1^x and y2 = g2^x for the same secret
// x.
func ProveEquality(r io.Reader, grp *group.Group, g1, y1, g2, y2, x *bigint.Int) (*EqualityProof, error) {
	v, err := bigint.UniformMod(r, grp.Q)
	if err != nil {
		return nil, err
	}
	t1, err := grp.Exp(g1, v)
	if err != nil {
		return nil, err
	}
	t2, err := grp.Exp(g2, v)
	if err != nil {
		return nil, err
	}
	c := hash.EqualityChallenge(grp.Q.Big(), g1.Big(), y1.Big(), g2.Big(), y2.Big(), t1.Big(), t2.Big())
	resp, err := v.Sub(bigint.FromBigInt(c).Mul(x)).Mod(grp.Q)
	if err != nil {
		return nil, err
	}
	return &EqualityProof{T1: t1, T2: t2, R: resp}, nil
}

// VerifyEquality checks both Chaum-Pedersen equations:
//
//	t1 == g1^r * y1^c
//	t2 == g2^r * y2^c
func VerifyEquality(grp *group.Group, g1, y1, g2, y2 *bigint.Int, proof *EqualityProof) (bool, error) {
	c := hash.EqualityChallenge(grp.Q.Big(), g1.Big(), y1.Big(), g2.Big(), y2.Big(), proof.T1.Big(), proof.T2.Big())
	cInt := bigint.FromBigInt(c)

	lhs1, err := checkSide(grp, g1, y1, cInt, proof.R)
	if err != nil {
		return false, err
	}
	if !lhs1.Equal(proof.T1) {
		return false, nil
	}
	lhs2, err := checkSide(grp, g2, y2, cInt, proof.R)
	if err != nil {
		return false, err
	}
	return lhs2.Equal(proof.T2), nil
}

func checkSide(grp *group.Group, g, y, c, r *bigint.Int) (*bigint.Int, error) {
	gr, err := grp.Exp(g, r)
	if err != nil {
		return nil, err
	}
	yc, err := grp.Exp(y, c)
	if err != nil {
		return nil, err
	}
	return grp.Mul(gr, yc)
}
