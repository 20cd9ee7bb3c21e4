// Package dkg implements the Gennaro-Jarecki-Krawczyk-Rabin distributed
// key generation: Joint-RVSS sharing (delegated to
// protocols/vss), the Feldman extraction round that exposes the
// QUAL-wide public key, CheckKey verification, proactive Refresh, and
// a fixed ASCII-decimal publish/import format.
package dkg

import (
	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
)

// Config is one party's complete long-term key state after a
// successful Generate (or a subsequent Refresh), matching the
// "publish/import state" field list.
type Config struct {
	Grp *group.Group

	N, T int
	Self party.ID
	QUAL party.IDSlice

	X, Xp *bigint.Int // this party's combined secret shares
	Y     *bigint.Int // QUAL-wide public key

	Yj                 map[party.ID]*bigint.Int   // per-dealer public contribution g^{a_j,0}
	Commitments        map[party.ID][]*bigint.Int // per-dealer Pedersen commitments, needed by CheckKey
	FeldmanCommitments map[party.ID][]*bigint.Int // per-dealer Feldman commitments g^{a_j,k}, needed to reconstruct any party's share public key
}

// Public returns the subset of Config safe to publish to an external
// verifier: everything except the secret shares.
type Public struct {
	Grp                *group.Group
	N, T               int
	QUAL               party.IDSlice
	Y                  *bigint.Int
	Yj                 map[party.ID]*bigint.Int
	Commitments        map[party.ID][]*bigint.Int
	FeldmanCommitments map[party.ID][]*bigint.Int
}

// Public projects this Config's public fields.
func (c *Config) Public() *Public {
	return &Public{
		Grp: c.Grp, N: c.N, T: c.T, QUAL: c.QUAL, Y: c.Y,
		Yj: c.Yj, Commitments: c.Commitments, FeldmanCommitments: c.FeldmanCommitments,
	}
}

// SharePublicKey reconstructs g^{x_p}, the discrete-log public key for
// party p's combined share x_p = Sum_{j in QUAL} f_j(p+1), from the
// QUAL-wide Feldman commitments: g^{x_p} = Prod_{j in QUAL} Prod_k
// A_{j,k}^{(p+1)^k}. This is the value a verifier must use as y1 in a
// Chaum-Pedersen proof that p's decryption share was computed honestly
// (Run in protocols/decrypt); it is NOT the same as Yj[p] =
// A_{p,0}, which is only the dealer p's own commitment to its
// constant term z_p, not p's share of the joint secret.
func (c *Config) SharePublicKey(p party.ID) (*bigint.Int, error) {
	grp := c.Grp
	point := bigint.NewInt(int64(p.Point()))
	result := bigint.NewInt(1)
	for _, dealer := range c.QUAL {
		commits := c.FeldmanCommitments[dealer]
		exp := bigint.NewInt(1)
		for _, ajk := range commits {
			term, err := grp.Exp(ajk, exp)
			if err != nil {
				return nil, err
			}
			result, err = grp.Mul(result, term)
			if err != nil {
				return nil, err
			}
			exp = exp.Mul(point)
			exp, err = exp.Mod(grp.Q)
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}
