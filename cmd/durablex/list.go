package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durablex/durablex/pkg/client"
)

var (
	listQueue  string
	listStatus string
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List executions, optionally filtered by queue and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		executions, err := c.ListExecutions(cmd.Context(), client.ListFilter{
			Queue:  listQueue,
			Status: listStatus,
			Limit:  listLimit,
			Offset: listOffset,
		})
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return printJSON(executions)
	},
}

func init() {
	addClientFlags(listCmd)
	listCmd.Flags().StringVar(&listQueue, "queue", "", "filter by queue name")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, running, suspended, completed, failed)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "max results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "result offset")
	rootCmd.AddCommand(listCmd)
}
