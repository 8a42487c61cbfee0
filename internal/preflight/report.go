// Package preflight validates an accelerator request against local tooling,
// credentials, and live cloud inventory before any provisioning happens.
// Checks run independently so one report surfaces every problem at once.
package preflight

import (
	"time"

	"github.com/accelctl/accelctl/internal/pricing"
)

// Status is the verdict of a single check or a whole report.
type Status string

const (
	// StatusPass means the check found nothing wrong.
	StatusPass Status = "PASS"
	// StatusWarn means the configuration is usable but degraded or
	// unverifiable right now (e.g. transient inventory errors).
	StatusWarn Status = "WARN"
	// StatusFail means provisioning would not succeed as requested.
	StatusFail Status = "FAIL"
)

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// Report aggregates all check results. Overall is FAIL if any check failed,
// WARN if none failed but at least one warned, PASS otherwise.
type Report struct {
	Overall     Status             `json:"overall"`
	Checks      []CheckResult      `json:"checks"`
	Cost        *pricing.Breakdown `json:"cost,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// Passed reports whether the run is clean enough to provision.
func (r *Report) Passed() bool {
	return r.Overall != StatusFail
}

// Combine folds per-check statuses into the overall verdict.
func Combine(checks []CheckResult) Status {
	overall := StatusPass
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			overall = StatusWarn
		}
	}
	return overall
}
