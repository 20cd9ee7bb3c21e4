package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/bigint"
)

// newBenchCmd reports the per-operation cost of the safe-prime group's
// modular exponentiation against an elliptic-curve scalar multiplication
// of comparable security, a side-by-side comparison of the two schemes.
func newBenchCmd() *cobra.Command {
	var iterations int
	var bits int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare safe-prime modexp cost against secp256k1 scalar multiplication",
		RunE: func(cmd *cobra.Command, args []string) error {
			grp, _, err := buildGroup(false, bits)
			if err != nil {
				return err
			}

			exps := make([]*bigint.Int, iterations)
			for i := range exps {
				e, err := bigint.UniformMod(rand.Reader, grp.Q)
				if err != nil {
					return err
				}
				exps[i] = e
			}
			start := time.Now()
			for _, e := range exps {
				if _, err := grp.Exp(grp.G, e); err != nil {
					return err
				}
			}
			modexpElapsed := time.Since(start)

			start = time.Now()
			for i := 0; i < iterations; i++ {
				priv, err := secp256k1.GeneratePrivateKey()
				if err != nil {
					return err
				}
				_ = priv.PubKey()
			}
			curveElapsed := time.Since(start)

			fmt.Fprintf(cmd.OutOrStdout(),
				"bench: %d iterations, safe-prime bits=%d\n  g^x mod p:           %s (%s/op)\n  secp256k1 scalar mult: %s (%s/op)\n",
				iterations, grp.P.Big().BitLen(),
				modexpElapsed, modexpElapsed/time.Duration(iterations),
				curveElapsed, curveElapsed/time.Duration(iterations))
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 100, "number of exponentiations/scalar multiplications to time")
	cmd.Flags().IntVar(&bits, "bits", 0, "safe-prime bit size (0 = CLI default)")
	return cmd
}
