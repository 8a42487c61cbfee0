package handlers

import (
	"context"

	"github.com/accelctl/accelctl/internal/report"
	"github.com/accelctl/accelctl/internal/verify"
)

// Verify polls the configured components until ready or the deadline passes.
func Verify(ctx context.Context, env *Env, opts *RequestOptions) error {
	cfg, err := opts.Resolve()
	if err != nil {
		return err
	}

	probe, err := env.NewProbe(cfg.Kubeconfig)
	if err != nil {
		return unavailablef("connect to cluster: %v", err)
	}

	verifier := verify.New(probe, env.Log,
		verify.WithInterval(cfg.Verify.Interval.Duration),
		verify.WithTimeout(cfg.Verify.Timeout.Duration))

	result, waitErr := verifier.Wait(ctx, cfg.Verify.Components)

	printer := report.NewPrinter(env.Out, opts.Mode())
	if opts.JSON {
		if err := printer.JSON(result); err != nil {
			return failf("%v", err)
		}
	} else {
		printer.VerifyResult(result)
	}

	if waitErr != nil {
		return failf("verification incomplete: %v", waitErr)
	}
	return nil
}
