// Command ownersign produces the owner signature headers the fee registry
// expects on config updates, withdrawals and audit queries.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ownersign",
	Short: "Sign fee registry owner requests.",
	Long: `ownersign signs an owner request with a secp256k1 key and prints the ` +
		`X-Owner-Timestamp and X-Owner-Signature headers to attach to it.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
