// Package main is the entry point for the accelctl CLI.
//
// accelctl validates and provisions GPU/TPU-backed Kubernetes node pools:
// preflight checks for tooling, credentials, zone capacity and quota; an
// idempotent provisioning plan with dry-run; post-deployment readiness
// verification; and offline cost estimation.
//
// Commands: preflight, check-zone, check-nodepool, create-cluster, verify,
// estimate-cost, version, completion.
//
// Exit codes: 0 = PASS (warnings allowed), 1 = FAIL, 2 = usage error,
// 3 = control plane unreachable.
package main

import (
	"fmt"
	"os"

	"github.com/accelctl/accelctl/cmd/accelctl/commands"
	"github.com/accelctl/accelctl/cmd/accelctl/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(handlers.ExitCode(err))
	}
}
