// Command durablex is the CLI surface described in engine specification
// §6: apply schema migrations, run a Worker process against one or more
// queues, and introspect running executions. bench is intentionally a
// stub — the benchmarking harness is an external collaborator (engine
// specification §1, "Out of scope").
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
