package handlers

import (
	"context"
	"fmt"

	"github.com/accelctl/accelctl/internal/cloud"
	"github.com/accelctl/accelctl/internal/config"
	"github.com/accelctl/accelctl/internal/preflight"
	"github.com/accelctl/accelctl/internal/pricing"
	"github.com/accelctl/accelctl/internal/report"
)

// Preflight runs the full validation suite and prints the report.
func Preflight(ctx context.Context, env *Env, opts *RequestOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}

	rep, err := runPreflight(ctx, env, cfg)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(env.Out, opts.Mode())
	if opts.JSON {
		if err := printer.JSON(rep); err != nil {
			return failf("%v", err)
		}
	} else {
		printer.PreflightReport(fmt.Sprintf("preflight: %s (%s)", cfg.Cluster, cfg.Zone), rep)
	}

	if !rep.Passed() {
		return failf("preflight failed: %d checks did not pass", countFailed(rep))
	}
	return nil
}

// runPreflight assembles the validator inputs and executes the check set.
// Inventory construction failure is not fatal: the inventory-backed checks
// degrade to WARN and the local checks still run.
func runPreflight(ctx context.Context, env *Env, cfg *config.Config) (*preflight.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Preflight.Duration)
	defer cancel()

	var inventory cloud.Inventory
	if client, err := env.NewClient(ctx, cfg.Project, env.Log); err == nil {
		inventory = client
	} else {
		env.Log.V(1).Info("inventory client unavailable", "error", err.Error())
	}

	var secrets preflight.SecretChecker
	if len(cfg.SecretRefs) > 0 && env.NewSecretChecker != nil {
		secrets, _ = env.NewSecretChecker(cfg.Kubeconfig)
	}

	calc, err := newCalculator(cfg)
	if err != nil {
		return nil, usagef("%v", err)
	}

	validator := preflight.New(env.Log, preflight.WithCostAnnotation(calc))
	return validator.Validate(ctx, &preflight.Input{
		Request:    cfg.Request(),
		Project:    cfg.Project,
		Region:     cfg.Region,
		Inventory:  inventory,
		Secrets:    secrets,
		Tools:      cfg.Tools,
		SecretRefs: cfg.SecretRefs,
	}), nil
}

func newCalculator(cfg *config.Config) (*pricing.Calculator, error) {
	if cfg.PricingTable == "" {
		return pricing.NewCalculator(), nil
	}
	rates, err := pricing.LoadRates(cfg.PricingTable)
	if err != nil {
		return nil, fmt.Errorf("load pricing table: %w", err)
	}
	return pricing.NewCalculatorWithRates(rates), nil
}

func countFailed(rep *preflight.Report) int {
	n := 0
	for _, c := range rep.Checks {
		if c.Status == preflight.StatusFail {
			n++
		}
	}
	return n
}
