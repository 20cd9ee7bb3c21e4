package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/protocols/tdss"
)

func newVerifyCmd() *cobra.Command {
	var configDir, msgFile, sigFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a threshold DSS signature against a group's public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, ids, err := loadConfigs(configDir)
			if err != nil {
				return err
			}
			cfg := configs[ids[0]]

			msg, err := os.ReadFile(msgFile)
			if err != nil {
				return fmt.Errorf("reading message: %w", err)
			}
			raw, err := os.ReadFile(sigFile)
			if err != nil {
				return fmt.Errorf("reading signature: %w", err)
			}
			lines := strings.Fields(string(raw))
			if len(lines) != 2 {
				return fmt.Errorf("signature file must contain exactly r and s on separate lines")
			}
			r, err := bigint.FromString(lines[0], 10)
			if err != nil {
				return fmt.Errorf("parsing r: %w", err)
			}
			s, err := bigint.FromString(lines[1], 10)
			if err != nil {
				return fmt.Errorf("parsing s: %w", err)
			}

			msgHash := tdss.HashMessage(cfg.Grp.Q, msg)
			ok, err := tdss.Verify(cfg.Grp, msgHash, &tdss.Signature{R: r, S: s}, cfg.Y)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "verify: INVALID")
				return fmt.Errorf("signature does not verify")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verify: OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./tmcg-keys", "directory holding party-*.cfg files (any one party's config carries the group and y)")
	cmd.Flags().StringVar(&msgFile, "msg", "", "path to the signed message")
	cmd.Flags().StringVar(&sigFile, "sig", "", "path to the r,s signature file produced by sign")
	_ = cmd.MarkFlagRequired("msg")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}
