// Command tmcg-cli drives the asynchronous DKG, threshold signing and
// threshold decryption protocols end to end over an in-process
// AIOU+RBC simulation of N local parties.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tmcg-cli:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tmcg-cli",
		Short:         "Asynchronous threshold DKG/signing/decryption toolbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newKeygenCmd(),
		newRefreshCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newDecryptCmd(),
		newBenchCmd(),
		newCRSCmd(),
		newCRSVerifyCmd(),
	)
	return root
}
