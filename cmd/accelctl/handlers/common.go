// Package handlers implements the CLI command logic. Commands parse flags
// and delegate here; everything cloud- or cluster-facing is injected through
// Env so tests run against fakes.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/accelctl/accelctl/internal/cloud"
	"github.com/accelctl/accelctl/internal/config"
	"github.com/accelctl/accelctl/internal/k8s"
	"github.com/accelctl/accelctl/internal/logging"
	"github.com/accelctl/accelctl/internal/preflight"
	"github.com/accelctl/accelctl/internal/provision"
	"github.com/accelctl/accelctl/internal/report"
	"github.com/accelctl/accelctl/internal/verify"
)

// Exit codes the binary commits to.
const (
	ExitPass        = 0 // overall PASS (WARN still passes)
	ExitFail        = 1 // validation or provisioning failure
	ExitUsage       = 2 // bad arguments or config
	ExitUnavailable = 3 // control plane unreachable or auth unusable
)

// exitError carries the process exit code alongside the message.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failf(format string, args ...any) error {
	return &exitError{code: ExitFail, err: fmt.Errorf(format, args...)}
}

func usagef(format string, args ...any) error {
	return &exitError{code: ExitUsage, err: fmt.Errorf(format, args...)}
}

func unavailablef(format string, args ...any) error {
	return &exitError{code: ExitUnavailable, err: fmt.Errorf(format, args...)}
}

// classifyCloudErr picks the exit code for a failed control-plane call:
// transient and timeout kinds mean the API never gave a definitive answer.
func classifyCloudErr(op string, err error) error {
	switch cloud.ErrKind(err) {
	case cloud.KindTransient, cloud.KindTimeout:
		return unavailablef("%s: %v", op, err)
	default:
		return failf("%s: %v", op, err)
	}
}

// ExitCode maps an error returned by command execution to a process exit
// code. Errors without an explicit code are treated as usage errors, which
// covers cobra's own flag and unknown-command failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitPass
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsage
}

// Env carries the injectable edges of every handler.
type Env struct {
	Out io.Writer
	Log logr.Logger

	// NewClient dials the cloud control plane.
	NewClient func(ctx context.Context, project string, log logr.Logger) (cloud.Client, error)

	// NewSecretChecker connects to the cluster for secret existence checks.
	// A nil return with nil error means "no cluster connection available".
	NewSecretChecker func(kubeconfig string) (preflight.SecretChecker, error)

	// NewProbe connects to the cluster for verification probes.
	NewProbe func(kubeconfig string) (verify.Probe, error)

	// NewKubeconfigWriter wires credential writing for create-cluster.
	NewKubeconfigWriter func(path string) provision.KubeconfigWriter
}

// DefaultEnv wires the real implementations.
func DefaultEnv(verbose bool) *Env {
	return &Env{
		Out: os.Stdout,
		Log: logging.New(verbose),
		NewClient: func(ctx context.Context, project string, log logr.Logger) (cloud.Client, error) {
			return cloud.NewGCPClient(ctx, project, log)
		},
		NewSecretChecker: func(kubeconfig string) (preflight.SecretChecker, error) {
			client, err := k8s.New(kubeconfig, "")
			if err != nil {
				// Preflight downgrades missing cluster access to WARN.
				return nil, nil
			}
			return client, nil
		},
		NewProbe: func(kubeconfig string) (verify.Probe, error) {
			client, err := k8s.New(kubeconfig, "")
			if err != nil {
				return nil, err
			}
			return &verify.ClusterProbe{Client: client}, nil
		},
		NewKubeconfigWriter: func(path string) provision.KubeconfigWriter {
			return provision.NewFileKubeconfig(path)
		},
	}
}

// RequestOptions are the flag values shared by the request-shaped commands.
// Flag values override the config file field by field.
type RequestOptions struct {
	ConfigPath string

	Project     string
	Region      string
	Zone        string
	Cluster     string
	Accelerator string
	MachineType string
	Topology    string
	Count       int64
	Replicas    int

	PricingTable string
	Customer     bool
	JSON         bool
}

// Resolve merges the config file (when given) with flag overrides and
// validates the result.
func (o *RequestOptions) Resolve() (*config.Config, error) {
	cfg := &config.Config{}
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, usagef("%v", err)
		}
		cfg = loaded
	}

	if o.Project != "" {
		cfg.Project = o.Project
	}
	if cfg.Project == "" {
		cfg.Project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if o.Zone != "" {
		cfg.Zone = o.Zone
	}
	if o.Region != "" {
		cfg.Region = o.Region
	}
	if o.Cluster != "" {
		cfg.Cluster = o.Cluster
	}
	if o.Accelerator != "" {
		cfg.Accelerator.Kind = o.Accelerator
	}
	if o.MachineType != "" {
		cfg.Accelerator.MachineType = o.MachineType
	}
	if o.Topology != "" {
		cfg.Accelerator.Topology = o.Topology
	}
	if o.Count != 0 {
		cfg.Accelerator.Count = o.Count
	}
	if o.Replicas != 0 {
		cfg.Accelerator.Replicas = o.Replicas
	}
	if o.PricingTable != "" {
		cfg.PricingTable = o.PricingTable
	}

	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, usagef("%v", err)
	}
	return cfg, nil
}

// Mode returns the report mode the flags select.
func (o *RequestOptions) Mode() report.Mode {
	if o.Customer {
		return report.ModeCustomer
	}
	return report.ModeDiagnostic
}
