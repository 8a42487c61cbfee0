package handlers

import (
	"context"
	"fmt"

	"github.com/accelctl/accelctl/internal/provision"
	"github.com/accelctl/accelctl/internal/report"
)

// CreateOptions extends the shared flags for create-cluster.
type CreateOptions struct {
	RequestOptions
	DryRun        bool
	SkipPreflight bool
}

// CreateCluster validates, plans, and provisions the cluster and its
// accelerator node pool. With --dry-run only read-only existence checks run
// and the plan preview is printed.
func CreateCluster(ctx context.Context, env *Env, opts *CreateOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}
	printer := report.NewPrinter(env.Out, opts.Mode())

	if !opts.SkipPreflight {
		rep, err := runPreflight(ctx, env, cfg)
		if err != nil {
			return err
		}
		if !opts.JSON {
			printer.PreflightReport(fmt.Sprintf("preflight: %s (%s)", cfg.Cluster, cfg.Zone), rep)
		}
		if !rep.Passed() {
			return failf("preflight failed, not provisioning (use check output to remediate)")
		}
	}

	plan, err := provision.BuildPlan(cfg.Project, cfg.Zone, cfg.Cluster, cfg.Request())
	if err != nil {
		return failf("%v", err)
	}

	client, err := env.NewClient(ctx, cfg.Project, env.Log)
	if err != nil {
		return unavailablef("connect to control plane: %v", err)
	}

	executor := provision.NewExecutor(client, env.Log,
		provision.WithKubeconfigWriter(env.NewKubeconfigWriter(cfg.Kubeconfig)),
		provision.WithOperationGrace(cfg.Timeouts.Operation.Duration))

	if !opts.JSON {
		printer.Plan(plan)
	}

	outcomes, execErr := executor.Execute(ctx, plan, opts.DryRun)

	if opts.JSON {
		if err := printer.JSON(struct {
			Plan     *provision.Plan      `json:"plan"`
			Outcomes []provision.Outcome  `json:"outcomes"`
			DryRun   bool                 `json:"dryRun"`
		}{plan, outcomes, opts.DryRun}); err != nil {
			return failf("%v", err)
		}
	} else {
		printer.Outcomes(outcomes)
	}

	if execErr != nil {
		return classifyCloudErr("provisioning", execErr)
	}
	return nil
}
