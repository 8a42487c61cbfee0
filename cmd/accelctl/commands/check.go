package commands

import (
	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// CheckZone returns the command that answers whether a zone offers the
// requested accelerator.
func CheckZone(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.RequestOptions{}

	cmd := &cobra.Command{
		Use:   "check-zone",
		Short: "Check whether a zone offers the requested accelerator",
		Long: `Query live zone inventory for the requested machine type.

When the zone cannot host it, alternative zones are listed (same region
first).

Examples:
` + exampleBlock(
			"accelctl check-zone --accelerator tpu --machine-type ct6e-standard-4t --topology 2x2 --count 4 --zone us-central1-b --project my-proj --cluster ml-serving",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CheckZone(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, opts)
	return cmd
}

// CheckNodePool returns the offline catalog check for a machine-type,
// topology, and count combination.
func CheckNodePool(env func() *handlers.Env) *cobra.Command {
	opts := &handlers.RequestOptions{}

	cmd := &cobra.Command{
		Use:   "check-nodepool",
		Short: "Validate a machine type, topology, and chip count combination",
		Long: `Validate the node pool shape against the machine-type catalog without any
cloud calls. On failure the valid topologies for the machine type are listed.

Examples:
` + exampleBlock(
			"accelctl check-nodepool --accelerator tpu --machine-type ct6e-standard-4t --topology 4x4 --count 16 --zone us-central1-b --cluster ml-serving --project my-proj",
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CheckNodePool(cmd.Context(), env(), opts)
		},
	}
	addRequestFlags(cmd, opts)
	return cmd
}
