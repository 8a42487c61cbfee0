package commands

import (
	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// EstimateCost returns the offline cost estimation command.
func EstimateCost(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.CostOptions{}

	cmd := &cobra.Command{
		Use:   "estimate-cost",
		Short: "Estimate hourly, daily, and monthly accelerator cost",
		Long: `Price the request against the built-in on-demand rate table, or a custom one
given with --pricing-table. Estimation is pure lookup: no cloud calls.

Examples:
` + exampleBlock(
			"accelctl estimate-cost -c request.yaml",
			"accelctl estimate-cost --accelerator tpu --machine-type ct6e-standard-4t --topology 2x2 --count 4 --zone us-central1-b --cluster ml-serving --project my-proj",
			"accelctl estimate-cost -c request.yaml --compare",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.EstimateCost(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, &opts.RequestOptions)
	cmd.Flags().BoolVar(&opts.Compare, "compare", false, "Price every valid topology of the machine type")
	return cmd
}
