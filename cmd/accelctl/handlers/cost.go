package handlers

import (
	"context"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/pricing"
	"github.com/accelctl/accelctl/internal/report"
)

// CostOptions extends the shared flags for estimate-cost.
type CostOptions struct {
	RequestOptions
	// Compare prices every valid topology of the machine type instead of
	// just the requested one.
	Compare bool
}

// EstimateCost prices the request against the rate table. Estimation is pure:
// no cloud call is ever made here.
func EstimateCost(_ context.Context, env *Env, opts *CostOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}
	req := cfg.Request()

	calc, err := newCalculator(cfg)
	if err != nil {
		return usagef("%v", err)
	}
	printer := report.NewPrinter(env.Out, opts.Mode())

	if opts.Compare {
		breakdowns, errs := calc.Compare(topologyVariants(req))
		if len(breakdowns) == 0 {
			if len(errs) > 0 {
				return failf("no price available for %s: %v", req.MachineType, errs[0])
			}
			return failf("no price available for %s", req.MachineType)
		}
		if opts.JSON {
			if err := printer.JSON(breakdowns); err != nil {
				return failf("%v", err)
			}
			return nil
		}
		formatter := pricing.NewFormatter()
		if _, err := env.Out.Write([]byte(formatter.FormatComparison(breakdowns))); err != nil {
			return failf("%v", err)
		}
		return nil
	}

	breakdown, err := calc.Estimate(req)
	if err != nil {
		return failf("%v", err)
	}
	if opts.JSON {
		if err := printer.JSON(breakdown); err != nil {
			return failf("%v", err)
		}
		return nil
	}
	printer.CostBreakdown(breakdown)
	return nil
}

// topologyVariants expands a TPU request across every topology its machine
// type supports. GPU requests have no variants.
func topologyVariants(req accel.Request) []accel.Request {
	mt, ok := accel.LookupMachineType(req.MachineType)
	if !ok || len(mt.Topologies) == 0 {
		return []accel.Request{req}
	}
	variants := make([]accel.Request, 0, len(mt.Topologies))
	for _, topology := range mt.Topologies {
		chips, err := accel.TopologyChips(topology)
		if err != nil {
			continue
		}
		v := req
		v.Topology = topology
		v.AcceleratorCount = chips
		variants = append(variants, v)
	}
	return variants
}
