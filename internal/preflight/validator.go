package preflight

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/accelctl/accelctl/internal/pricing"
)

// Validator runs the full ordered check set. Checks never short-circuit:
// an operator fixing problems wants the complete list in one pass.
type Validator struct {
	checks []Check
	log    logr.Logger
	costs  *pricing.Calculator
}

// Option configures a Validator.
type Option func(*Validator)

// WithChecks replaces the default check set, for tests that need a
// synthetic mix of results.
func WithChecks(checks ...Check) Option {
	return func(v *Validator) { v.checks = checks }
}

// WithCostAnnotation attaches an estimate from the given calculator to each
// report. Estimation is pure and never changes the verdict.
func WithCostAnnotation(calc *pricing.Calculator) Option {
	return func(v *Validator) { v.costs = calc }
}

// New builds a validator with the standard check order: local environment
// first (tools, credentials, request shape), then the cloud-backed checks.
func New(log logr.Logger, opts ...Option) *Validator {
	v := &Validator{
		log: log.WithName("preflight"),
		checks: []Check{
			toolCheck{},
			credentialCheck{},
			topologyCheck{},
			zoneCheck{},
			quotaCheck{},
			secretCheck{},
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every check against the input and folds the results into a
// report. The context bounds each check's external calls.
func (v *Validator) Validate(ctx context.Context, in *Input) *Report {
	report := &Report{GeneratedAt: time.Now()}

	for _, check := range v.checks {
		result := check.Run(ctx, in)
		report.Checks = append(report.Checks, result)
		v.log.V(1).Info("check completed", "check", check.Name(), "status", string(result.Status))
	}

	report.Overall = Combine(report.Checks)

	if v.costs != nil {
		if breakdown, err := v.costs.Estimate(in.Request); err == nil {
			report.Cost = breakdown
		} else {
			v.log.V(1).Info("cost annotation skipped", "error", err.Error())
		}
	}

	return report
}
