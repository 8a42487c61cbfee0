package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/report"
)

// CheckZone answers the single question "can this zone host the requested
// accelerator", with alternatives when it cannot.
func CheckZone(ctx context.Context, env *Env, opts *RequestOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}

	client, err := env.NewClient(ctx, cfg.Project, env.Log)
	if err != nil {
		return unavailablef("connect to control plane: %v", err)
	}

	capability, err := client.ZoneCapability(ctx, cfg.Request())
	if err != nil {
		return classifyCloudErr("zone capability query", err)
	}

	printer := report.NewPrinter(env.Out, opts.Mode())
	if opts.JSON {
		if err := printer.JSON(capability); err != nil {
			return failf("%v", err)
		}
	} else if capability.Available {
		fmt.Fprintf(env.Out, "✓ %s offers %s\n", capability.Zone, cfg.Accelerator.MachineType)
	} else if len(capability.AlternativeZones) > 0 {
		fmt.Fprintf(env.Out, "✗ %s does not offer %s\n", capability.Zone, cfg.Accelerator.MachineType)
		fmt.Fprintf(env.Out, "  available in: %s\n", strings.Join(capability.AlternativeZones, ", "))
	} else {
		fmt.Fprintf(env.Out, "✗ %s is not offered in %s or any reachable zone\n",
			cfg.Accelerator.MachineType, capability.Zone)
	}

	if !capability.Available {
		return failf("%s not available in %s", cfg.Accelerator.MachineType, capability.Zone)
	}
	return nil
}

// CheckNodePool validates the machine-type/topology/count combination against
// the static catalog. Fully offline.
func CheckNodePool(_ context.Context, env *Env, opts *RequestOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}
	req := cfg.Request()

	if err := req.Validate(); err != nil {
		fmt.Fprintf(env.Out, "✗ %v\n", err)
		if mt, ok := accel.LookupMachineType(req.MachineType); ok && len(mt.Topologies) > 0 {
			fmt.Fprintf(env.Out, "  valid topologies for %s: %s\n",
				mt.Name, strings.Join(mt.Topologies, ", "))
		} else if !ok {
			fmt.Fprintf(env.Out, "  known %s machine types: %s\n",
				req.Kind, strings.Join(machineTypeNames(req.Kind), ", "))
		}
		return failf("node pool configuration invalid: %v", err)
	}

	mt, _ := accel.LookupMachineType(req.MachineType)
	hosts, err := mt.HostCount(req.AcceleratorCount)
	if err != nil {
		return failf("%v", err)
	}

	fmt.Fprintf(env.Out, "✓ %s", req.MachineType)
	if req.Topology != "" {
		fmt.Fprintf(env.Out, " topology %s", req.Topology)
	}
	fmt.Fprintf(env.Out, ": %d chips per replica across %d host(s), %d replica(s), %d chips total\n",
		req.AcceleratorCount, hosts, req.Replicas, req.TotalChips())
	return nil
}

func machineTypeNames(kind accel.Kind) []string {
	var names []string
	for _, mt := range accel.MachineTypes(kind) {
		names = append(names, mt.Name)
	}
	sort.Strings(names)
	return names
}
