package main

import (
	"github.com/spf13/cobra"

	"github.com/durablex/durablex/pkg/client"
)

// apiURL and apiKey point status/list/cancel at a running api server
// (SPEC_FULL §13 supplements the engine specification's CLI with these
// client-side operations, grounded on the original source's
// workflows/cli.py status/list/cancel commands).
var (
	apiURL string
	apiKey string
)

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&apiURL, "url", "http://localhost:8080", "base URL of a running durablex api server")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key, if the server requires one")
}

func newClient() *client.Client {
	opts := []client.Option{}
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	return client.New(apiURL, opts...)
}
