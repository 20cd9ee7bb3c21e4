package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/protocols/tdss"
)

func newSignCmd() *cobra.Command {
	var configDir, signersCSV, msgFile, outFile string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Produce a threshold DSS signature over a message with a subset of signers",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, allIDs, err := loadConfigs(configDir)
			if err != nil {
				return err
			}
			t := configs[allIDs[0]].T

			var signers party.IDSlice
			if signersCSV != "" {
				signers, err = parseIDList(signersCSV)
				if err != nil {
					return err
				}
			} else {
				// tdss.Sign needs at least 2t+1 signers.
				need := 2*t + 1
				if need > len(allIDs) {
					need = len(allIDs)
				}
				signers = allIDs[:need]
			}
			for _, s := range signers {
				if _, ok := configs[s]; !ok {
					return fmt.Errorf("no config loaded for signer %d", s)
				}
			}

			msg, err := os.ReadFile(msgFile)
			if err != nil {
				return fmt.Errorf("reading message: %w", err)
			}

			grp := configs[signers[0]].Grp
			params := pedersen.NewParams(grp)
			msgHash := tdss.HashMessage(grp.Q, msg)

			sim := newSimulation(signers, rbcByzantineTolerance(signers.Len()), "tmcg-cli-sign")
			defer sim.close()

			type out struct {
				sig *tdss.Signature
				err error
			}
			results := make(map[party.ID]out, signers.Len())
			var mu sync.Mutex
			var wg sync.WaitGroup
			for _, id := range signers {
				wg.Add(1)
				go func(id party.ID) {
					defer wg.Done()
					h := sim.helper("tmcgcore/tdss", id, t, grp, "cli-sign")
					sig, err := tdss.Sign(h, sim.channels[id], sim.sessions[id], params, configs[id], msgHash, rand.Reader, "cli-signature", defaultTimeout())
					mu.Lock()
					results[id] = out{sig, err}
					mu.Unlock()
				}(id)
			}
			wg.Wait()

			for id, r := range results {
				if r.err != nil {
					return fmt.Errorf("signer %d: %w", id, r.err)
				}
			}
			sig := results[signers[0]].sig

			ok, err := tdss.Verify(grp, msgHash, sig, configs[signers[0]].Y)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("produced signature failed local verification")
			}

			if outFile != "" {
				content := sig.R.Text(10) + "\n" + sig.S.Text(10) + "\n"
				if err := os.WriteFile(outFile, []byte(content), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sign: signers=%v r=%s s=%s\n", signers, sig.R.Text(10), sig.S.Text(10))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./tmcg-keys", "directory holding party-*.cfg files")
	cmd.Flags().StringVar(&signersCSV, "signers", "", "comma-separated signer party IDs (default: the first 2t+1 parties)")
	cmd.Flags().StringVar(&msgFile, "msg", "", "path to the message to sign")
	cmd.Flags().StringVar(&outFile, "out", "", "path to write the r,s signature to (optional)")
	_ = cmd.MarkFlagRequired("msg")
	return cmd
}
