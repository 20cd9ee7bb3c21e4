package tdss

import (
	"github.com/luxfi/tmcgcore/pkg/bigint"
)

// LagrangeCoefficient computes lambda_target = Prod_{l in points, l !=
// target} l/(l-target) mod q, the weight used to combine
// per-signer contributions over the DKG index points of SIGNERS.
func LagrangeCoefficient(points []uint64, target uint64, q *bigint.Int) (*bigint.Int, error) {
	num := bigint.NewInt(1)
	den := bigint.NewInt(1)
	for _, l := range points {
		if l == target {
			continue
		}
		lInt := bigint.NewInt(int64(l))
		targetInt := bigint.NewInt(int64(target))

		num = num.Mul(lInt)
		var err error
		num, err = num.Mod(q)
		if err != nil {
			return nil, err
		}

		diff := lInt.Sub(targetInt)
		den = den.Mul(diff)
		den, err = den.Mod(q)
		if err != nil {
			return nil, err
		}
	}
	denInv, err := den.ModInverse(q)
	if err != nil {
		return nil, err
	}
	out := num.Mul(denInv)
	return out.Mod(q)
}
