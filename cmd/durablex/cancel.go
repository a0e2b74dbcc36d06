package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel EXECUTION_ID",
	Short: "Cancel a pending or suspended execution",
	Long: `cancel requests cancellation of an execution that has not yet
started running (engine specification §7: cancellation only takes effect
from pending or suspended; a running execution finishes its current step
first). The server returns an error for any other status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if err := c.CancelExecution(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("cancel: %w", err)
		}
		fmt.Printf("cancelled %s\n", args[0])
		return nil
	},
}

func init() {
	addClientFlags(cancelCmd)
	rootCmd.AddCommand(cancelCmd)
}
