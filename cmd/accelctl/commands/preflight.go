package commands

import (
	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// Preflight returns the command that validates a request end to end without
// provisioning anything.
func Preflight(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.RequestOptions{}

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Validate tools, credentials, capacity, and quota before provisioning",
		Long: `Run every preflight check against the requested accelerator configuration.

Checks never short-circuit: one run reports every problem found, each with a
remediation hint. The overall verdict is FAIL if any check failed, WARN if the
configuration is usable but degraded, PASS otherwise. WARN still exits 0.

Examples:
` + exampleBlock(
			"accelctl preflight -c request.yaml",
			"accelctl preflight --accelerator tpu --machine-type ct6e-standard-4t \\",
			"    --topology 2x2 --count 4 --zone us-central1-b --cluster ml-serving --project my-proj",
			"accelctl preflight -c request.yaml --customer",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Preflight(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, opts)
	return cmd
}
