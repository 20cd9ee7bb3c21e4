package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/protocols/dkg"
)

func newKeygenCmd() *cobra.Command {
	var n, t int
	var toy bool
	var bits int
	var outDir string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Run a distributed key generation among n simulated parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			if t >= n {
				return fmt.Errorf("threshold t=%d must be below n=%d", t, n)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			grp, params, err := buildGroup(toy, bits)
			if err != nil {
				return err
			}

			ids := idsUpTo(n)
			sim := newSimulation(ids, t, "tmcg-cli-keygen")
			defer sim.close()

			configs, err := runKeygen(sim, ids, t, grp, params, "keygen")
			if err != nil {
				return err
			}

			for _, id := range sim.ids {
				path := filepath.Join(outDir, fmt.Sprintf("party-%d.cfg", id))
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				err = configs[id].Export(f)
				closeErr := f.Close()
				if err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				if closeErr != nil {
					return closeErr
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "keygen: n=%d t=%d QUAL=%v\npublic key y = %s\nconfigs written under %s\n",
				n, t, configs[ids[0]].QUAL, configs[ids[0]].Y.Text(10), outDir)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 4, "number of parties")
	cmd.Flags().IntVar(&t, "t", 1, "threshold (max corrupted parties)")
	cmd.Flags().BoolVar(&toy, "toy", false, "use the tiny insecure test group instead of a real one")
	cmd.Flags().IntVar(&bits, "bits", 0, "safe-prime bit size (0 = CLI default)")
	cmd.Flags().StringVar(&outDir, "out", "./tmcg-keys", "directory to write per-party key state into")
	return cmd
}

// runKeygen drives protocols/dkg.Generate concurrently, one goroutine
// per simulated party, since each party's Generate call blocks on
// network traffic from the others.
func runKeygen(sim *simulation, ids party.IDSlice, t int, grp *group.Group, params *pedersen.Params, epoch string) (map[party.ID]*dkg.Config, error) {
	configs := make(map[party.ID]*dkg.Config, len(ids))
	errs := make(map[party.ID]error, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			h := sim.helper("tmcgcore/dkg", id, t, grp, "cli-"+epoch)
			cfg, err := dkg.Generate(h, sim.channels[id], sim.sessions[id], params, rand.Reader, epoch, defaultTimeout())
			mu.Lock()
			if err != nil {
				errs[id] = err
			} else {
				configs[id] = cfg
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	for id, err := range errs {
		return nil, fmt.Errorf("party %d: %w", id, err)
	}
	return configs, nil
}
