package commands

import (
	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// CreateCluster returns the command that provisions the cluster and node
// pool after a passing preflight.
func CreateCluster(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.CreateOptions{}

	cmd := &cobra.Command{
		Use:   "create-cluster",
		Short: "Provision the cluster and accelerator node pool",
		Long: `Run preflight, build the provisioning plan, and execute it step by step.

Execution is idempotent: every step re-checks live state first, so re-running
after an interruption skips what already exists. A step whose target exists
in a different shape than requested fails with a conflict instead of adopting
it. --dry-run previews the plan using read-only calls only.

Examples:
` + exampleBlock(
			"accelctl create-cluster -c request.yaml --dry-run",
			"accelctl create-cluster -c request.yaml",
			"accelctl create-cluster -c request.yaml --skip-preflight",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CreateCluster(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, &opts.RequestOptions)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview the plan without mutating anything")
	cmd.Flags().BoolVar(&opts.SkipPreflight, "skip-preflight", false, "Provision without running preflight first")
	return cmd
}
