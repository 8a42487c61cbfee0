// Package commands defines the CLI command structure and flag bindings.
//
// Commands parse arguments and delegate execution to the handlers package,
// which holds the testable logic.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// Root returns the root command for the accelctl CLI.
func Root() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:          "accelctl",
		Short:        "Validate and provision GPU/TPU node pools on GKE",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	env := func() *handlers.Env { return handlers.DefaultEnv(verbose) }

	cmd.AddCommand(Preflight(env))
	cmd.AddCommand(CheckZone(env))
	cmd.AddCommand(CheckNodePool(env))
	cmd.AddCommand(CreateCluster(env))
	cmd.AddCommand(Verify(env))
	cmd.AddCommand(EstimateCost(env))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// addRequestFlags binds the flags every request-shaped command shares.
func addRequestFlags(cmd *cobra.Command, opts *handlers.RequestOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to request YAML file")
	flags.StringVar(&opts.Project, "project", "", "Cloud project (default: config file or GOOGLE_CLOUD_PROJECT)")
	flags.StringVar(&opts.Region, "region", "", "Region (default: derived from zone)")
	flags.StringVar(&opts.Zone, "zone", "", "Target zone, e.g. us-central1-b")
	flags.StringVar(&opts.Cluster, "cluster", "", "Cluster name")
	flags.StringVar(&opts.Accelerator, "accelerator", "", "Accelerator kind: gpu or tpu")
	flags.StringVar(&opts.MachineType, "machine-type", "", "Machine type, e.g. ct6e-standard-4t")
	flags.StringVar(&opts.Topology, "topology", "", "TPU chip topology, e.g. 2x2")
	flags.Int64Var(&opts.Count, "count", 0, "Chips/GPUs per replica")
	flags.IntVar(&opts.Replicas, "replicas", 0, "Replica count (default 1)")
	flags.StringVar(&opts.PricingTable, "pricing-table", "", "Custom pricing table YAML")
	flags.BoolVar(&opts.Customer, "customer", false, "Customer-facing report: verdicts and remediations only")
	flags.BoolVar(&opts.JSON, "json", false, "Output in JSON format")
}

func exampleBlock(lines ...string) string {
	out := ""
	for _, l := range lines {
		out += fmt.Sprintf("  %s\n", l)
	}
	return out
}
