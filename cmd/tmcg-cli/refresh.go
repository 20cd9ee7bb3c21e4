package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/party"
	"github.com/luxfi/tmcgcore/pkg/pedersen"
	"github.com/luxfi/tmcgcore/protocols/dkg"
)

func newRefreshCmd() *cobra.Command {
	var configDir, outDir, epoch string
	var threshold int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Proactively refresh an existing key's shares without changing the public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, ids, err := loadConfigs(configDir)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = configDir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			grp := prev[ids[0]].Grp
			params := pedersen.NewParams(grp)
			t := threshold
			if t <= 0 {
				t = prev[ids[0]].T
			}

			sim := newSimulation(ids, t, "tmcg-cli-refresh")
			defer sim.close()

			next := make(map[party.ID]*dkg.Config, len(ids))
			errs := make(map[party.ID]error)
			var mu sync.Mutex
			var wg sync.WaitGroup
			for _, id := range ids {
				wg.Add(1)
				go func(id party.ID) {
					defer wg.Done()
					h := sim.helper("tmcgcore/dkg-refresh", id, t, grp, "cli-refresh-"+epoch)
					cfg, err := dkg.Refresh(h, sim.channels[id], sim.sessions[id], params, rand.Reader, prev[id], epoch, defaultTimeout())
					mu.Lock()
					if err != nil {
						errs[id] = err
					} else {
						next[id] = cfg
					}
					mu.Unlock()
				}(id)
			}
			wg.Wait()
			for id, err := range errs {
				return fmt.Errorf("party %d: %w", id, err)
			}

			for _, id := range ids {
				path := filepath.Join(outDir, fmt.Sprintf("party-%d.cfg", id))
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				err = next[id].Export(f)
				closeErr := f.Close()
				if err != nil {
					return err
				}
				if closeErr != nil {
					return closeErr
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refresh: epoch=%q public key unchanged, y = %s\n", epoch, next[ids[0]].Y.Text(10))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./tmcg-keys", "directory holding party-*.cfg files to refresh")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write refreshed configs into (default: overwrite config-dir)")
	cmd.Flags().StringVar(&epoch, "epoch", "epoch1", "epoch label for this refresh")
	cmd.Flags().IntVar(&threshold, "t", 0, "override threshold (default: the one recorded in the configs)")
	return cmd
}

// loadConfigs reads every party-*.cfg file in dir, keyed by the party
// ID recorded inside each file.
func loadConfigs(dir string) (map[party.ID]*dkg.Config, party.IDSlice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	configs := make(map[party.ID]*dkg.Config)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		cfg, err := dkg.Import(f)
		closeErr := f.Close()
		if err != nil {
			continue // not a config file, e.g. a stray README
		}
		if closeErr != nil {
			return nil, nil, closeErr
		}
		configs[cfg.Self] = cfg
	}
	if len(configs) == 0 {
		return nil, nil, fmt.Errorf("no party-*.cfg files found under %s", dir)
	}
	ids := make([]party.ID, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	return configs, party.NewIDSlice(ids), nil
}
