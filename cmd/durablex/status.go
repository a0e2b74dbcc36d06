package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status EXECUTION_ID",
	Short: "Show one execution's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		e, err := c.GetExecution(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		return printJSON(e)
	},
}

func init() {
	addClientFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
