package commands

import (
	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// Verify returns the command that polls deployed components for readiness.
func Verify(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.RequestOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Wait for deployed components to become ready",
		Long: `Poll the components listed under verify.components in the request file until
all are ready or the deadline passes. The deadline is absolute: retries never
extend it. On timeout, per-component states are still reported.

Examples:
` + exampleBlock(
			"accelctl verify -c request.yaml",
			"accelctl verify -c request.yaml --json",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Verify(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, opts)
	return cmd
}
