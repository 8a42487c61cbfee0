// Package config loads and validates the declarative request file the CLI
// commands share. One file describes the target project, the accelerator
// capacity wanted, and what to verify after deployment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/preflight"
	"github.com/accelctl/accelctl/internal/verify"
)

// Config is the root of the request file.
type Config struct {
	Project string `json:"project"`
	Region  string `json:"region,omitempty"` // derived from zone when empty
	Zone    string `json:"zone"`
	Cluster string `json:"cluster"`

	// Kubeconfig overrides the default kubeconfig path for credential
	// writing and cluster-side checks.
	Kubeconfig string `json:"kubeconfig,omitempty"`

	Accelerator Accelerator `json:"accelerator"`

	// Tools are the CLIs preflight requires on PATH.
	Tools []string `json:"tools,omitempty"`

	// SecretRefs are credential secrets preflight verifies by name.
	SecretRefs []preflight.SecretRef `json:"secretRefs,omitempty"`

	Verify   Verify   `json:"verify,omitempty"`
	Timeouts Timeouts `json:"timeouts,omitempty"`

	// PricingTable points at a custom rate file for cost estimation.
	PricingTable string `json:"pricingTable,omitempty"`
}

// Accelerator describes the capacity to provision.
type Accelerator struct {
	Kind        string `json:"kind"` // "gpu" or "tpu"
	MachineType string `json:"machineType"`
	Count       int64  `json:"count"`
	Topology    string `json:"topology,omitempty"`
	Replicas    int    `json:"replicas,omitempty"`
	Spot        bool   `json:"spot,omitempty"`
}

// Verify lists the components checked after provisioning.
type Verify struct {
	Components []verify.Component `json:"components,omitempty"`
	Interval   metav1.Duration    `json:"interval,omitempty"`
	Timeout    metav1.Duration    `json:"timeout,omitempty"`
}

// Timeouts bounds the long-running phases.
type Timeouts struct {
	// Operation caps a single control-plane operation wait.
	Operation metav1.Duration `json:"operation,omitempty"`
	// Preflight caps the whole validation pass.
	Preflight metav1.Duration `json:"preflight,omitempty"`
}

// Load reads, defaults, and validates a request file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a request file from bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default fills unset fields with their defaults. Idempotent; flag-merging
// callers re-run it after overrides.
func (c *Config) Default() {
	if c.Region == "" && c.Zone != "" {
		c.Region = RegionOfZone(c.Zone)
	}
	if len(c.Tools) == 0 {
		c.Tools = []string{"gcloud", "kubectl", "gke-gcloud-auth-plugin"}
	}
	if c.Accelerator.Replicas == 0 {
		c.Accelerator.Replicas = 1
	}
	if c.Verify.Interval.Duration == 0 {
		c.Verify.Interval = metav1.Duration{Duration: 10 * time.Second}
	}
	if c.Verify.Timeout.Duration == 0 {
		c.Verify.Timeout = metav1.Duration{Duration: 10 * time.Minute}
	}
	if c.Timeouts.Operation.Duration == 0 {
		c.Timeouts.Operation = metav1.Duration{Duration: 30 * time.Minute}
	}
	if c.Timeouts.Preflight.Duration == 0 {
		c.Timeouts.Preflight = metav1.Duration{Duration: 2 * time.Minute}
	}
}

// Validate checks the file for structural problems. Catalog-level request
// validation happens later in preflight, so an unknown machine type loads
// fine here and fails with a proper check result.
func (c *Config) Validate() error {
	var problems []string
	if c.Project == "" {
		problems = append(problems, "project is required")
	}
	if c.Zone == "" {
		problems = append(problems, "zone is required")
	}
	if c.Cluster == "" {
		problems = append(problems, "cluster is required")
	}
	if c.Accelerator.MachineType == "" {
		problems = append(problems, "accelerator.machineType is required")
	}
	if _, err := accel.ParseKind(c.Accelerator.Kind); err != nil {
		problems = append(problems, err.Error())
	}
	for i, comp := range c.Verify.Components {
		if comp.Kind == "" || comp.Namespace == "" {
			problems = append(problems, fmt.Sprintf("verify.components[%d]: kind and namespace are required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Request converts the accelerator block into the domain request type.
func (c *Config) Request() accel.Request {
	kind, _ := accel.ParseKind(c.Accelerator.Kind)
	return accel.Request{
		Kind:             kind,
		MachineType:      c.Accelerator.MachineType,
		AcceleratorCount: c.Accelerator.Count,
		Topology:         c.Accelerator.Topology,
		Zone:             c.Zone,
		Replicas:         c.Accelerator.Replicas,
	}
}

// RegionOfZone strips the zone suffix, e.g. "us-central1-b" -> "us-central1".
func RegionOfZone(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}
