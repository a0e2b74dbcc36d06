package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Stub: throughput/latency benchmarking is an external harness",
	Long: `bench is intentionally unimplemented. Benchmarking throughput and
tail latency under load is an external collaborator of this core (engine
specification §1's explicit non-goal), typically driven against the
HTTP introspection API or pkg/client with a separate load-generation
tool. This subcommand exists only so "durablex bench --help" documents
that decision instead of failing with "unknown command".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stderr, "durablex bench: not implemented; drive load externally against pkg/client or the HTTP API")
		return fmt.Errorf("bench: no built-in harness")
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
}
