package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/protocols/decrypt"
)

func newDecryptCmd() *cobra.Command {
	var configDir, ctFile string
	var demo bool

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Threshold-decrypt an ElGamal ciphertext (or run a self-contained demo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, ids, err := loadConfigs(configDir)
			if err != nil {
				return err
			}
			first := configs[ids[0]]
			grp := first.Grp
			t := first.T

			var ct *decrypt.Ciphertext
			var wantPlaintext *bigint.Int
			switch {
			case demo:
				wantPlaintext, err = grp.RandomElement(rand.Reader)
				if err != nil {
					return err
				}
				k, err := bigint.UniformMod(rand.Reader, grp.Q)
				if err != nil {
					return err
				}
				gk, err := grp.Exp(grp.G, k)
				if err != nil {
					return err
				}
				yk, err := grp.Exp(first.Y, k)
				if err != nil {
					return err
				}
				myk, err := grp.Mul(wantPlaintext, yk)
				if err != nil {
					return err
				}
				ct = &decrypt.Ciphertext{Gk: gk, Myk: myk}
			case ctFile != "":
				ct, err = loadCiphertext(ctFile)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --ct or --demo must be given")
			}

			if err := decrypt.CheckCiphertext(first, ct); err != nil {
				return err
			}

			participants := ids
			if participants.Len() > t+1 {
				participants = participants[:t+1]
			}

			sim := newSimulation(participants, rbcByzantineTolerance(participants.Len()), "tmcg-cli-decrypt")
			defer sim.close()

			type out struct {
				plaintext *bigint.Int
				err       error
			}
			results := make(map[party.ID]out, participants.Len())
			var mu sync.Mutex
			var wg sync.WaitGroup
			for _, id := range participants {
				wg.Add(1)
				go func(id party.ID) {
					defer wg.Done()
					h := sim.helper("tmcgcore/decrypt", id, t, grp, "cli-decrypt")
					pt, err := decrypt.Run(h, sim.sessions[id], configs[id], ct, rand.Reader, "cli-decryption", defaultTimeout())
					mu.Lock()
					results[id] = out{pt, err}
					mu.Unlock()
				}(id)
			}
			wg.Wait()
			for id, r := range results {
				if r.err != nil {
					return fmt.Errorf("party %d: %w", id, r.err)
				}
			}
			plaintext := results[participants[0]].plaintext

			if demo {
				if !plaintext.Equal(wantPlaintext) {
					return fmt.Errorf("demo round-trip mismatch: encrypted %s, recovered %s", wantPlaintext.Text(10), plaintext.Text(10))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "decrypt demo: encrypted and recovered plaintext match: %s\n", plaintext.Text(10))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decrypt: plaintext = %s\n", plaintext.Text(10))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./tmcg-keys", "directory holding party-*.cfg files")
	cmd.Flags().StringVar(&ctFile, "ct", "", "path to a ciphertext file (gk, myk decimal, one per line)")
	cmd.Flags().BoolVar(&demo, "demo", false, "ignore --ct and encrypt/decrypt a fresh random message to demonstrate the protocol")
	return cmd
}

func loadCiphertext(path string) (*decrypt.Ciphertext, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Fields(string(raw))
	if len(lines) != 2 {
		return nil, fmt.Errorf("ciphertext file must contain exactly gk and myk on separate lines")
	}
	gk, err := bigint.FromString(lines[0], 10)
	if err != nil {
		return nil, fmt.Errorf("parsing gk: %w", err)
	}
	myk, err := bigint.FromString(lines[1], 10)
	if err != nil {
		return nil, fmt.Errorf("parsing myk: %w", err)
	}
	return &decrypt.Ciphertext{Gk: gk, Myk: myk}, nil
}
