// Package accel defines the accelerator domain model: requests for GPU/TPU
// capacity, the machine-type catalog with its valid chip topologies, and the
// snapshot types returned by the cloud inventory client.
package accel

import (
	"fmt"
	"time"
)

// Kind identifies the accelerator family of a request.
type Kind string

const (
	// KindGPU requests NVIDIA GPU-attached machine types (a2, a3, g2).
	KindGPU Kind = "gpu"
	// KindTPU requests TPU slice machine types (ct4p, ct5lp, ct5p, ct6e).
	KindTPU Kind = "tpu"
)

// ParseKind converts a user-supplied string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGPU, KindTPU:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown accelerator kind %q (expected %q or %q)", s, KindGPU, KindTPU)
	}
}

// Request describes the accelerator capacity an operator wants provisioned.
//
// AcceleratorCount is the total chip/GPU count per replica. For TPUs the
// Topology must describe the same number of chips; for GPUs Topology is empty
// and the count must match the machine type's fixed GPU attachment.
type Request struct {
	Kind             Kind   `json:"kind"`
	MachineType      string `json:"machineType"`
	AcceleratorCount int64  `json:"acceleratorCount"`
	Topology         string `json:"topology,omitempty"`
	Zone             string `json:"zone"`
	Replicas         int    `json:"replicas"`
}

// TotalChips returns the chip/GPU count across all replicas. This is the
// number compared against the project quota.
func (r Request) TotalChips() int64 {
	return r.AcceleratorCount * int64(r.Replicas)
}

// Validate checks the request against the machine-type catalog. It returns an
// error describing the first structural problem found; catalog-level topology
// mismatches include the list of valid topologies in the message.
func (r Request) Validate() error {
	if r.Replicas < 1 {
		return fmt.Errorf("replicas must be >= 1, got %d", r.Replicas)
	}
	if r.Zone == "" {
		return fmt.Errorf("zone is required")
	}
	if r.MachineType == "" {
		return fmt.Errorf("machine type is required")
	}

	mt, ok := LookupMachineType(r.MachineType)
	if !ok {
		return fmt.Errorf("unknown machine type %q", r.MachineType)
	}
	if mt.Kind != r.Kind {
		return fmt.Errorf("machine type %s is a %s type, request asks for %s", r.MachineType, mt.Kind, r.Kind)
	}

	switch r.Kind {
	case KindGPU:
		if r.Topology != "" {
			return fmt.Errorf("topology is not applicable to GPU machine types")
		}
		if r.AcceleratorCount != mt.ChipsPerHost {
			return fmt.Errorf("machine type %s carries %d GPUs per node, request asks for %d",
				r.MachineType, mt.ChipsPerHost, r.AcceleratorCount)
		}
	case KindTPU:
		if r.Topology == "" {
			return fmt.Errorf("topology is required for TPU machine types")
		}
		chips, err := TopologyChips(r.Topology)
		if err != nil {
			return err
		}
		if chips != r.AcceleratorCount {
			return fmt.Errorf("topology %s describes %d chips, request asks for %d",
				r.Topology, chips, r.AcceleratorCount)
		}
		if !mt.SupportsTopology(r.Topology) {
			return fmt.Errorf("topology %s is not valid for %s (valid: %v)",
				r.Topology, r.MachineType, mt.Topologies)
		}
	default:
		return fmt.Errorf("unknown accelerator kind %q", r.Kind)
	}

	return nil
}

// QuotaSnapshot is a point-in-time read of a regional quota metric. It is
// immutable once fetched; callers re-fetch rather than mutate on
// re-validation, since the live value can drift underneath them.
type QuotaSnapshot struct {
	Project   string    `json:"project"`
	Region    string    `json:"region"`
	Metric    string    `json:"metric"`
	Limit     float64   `json:"limit"`
	Used      float64   `json:"used"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Available returns the headroom remaining under the quota limit.
func (q QuotaSnapshot) Available() float64 {
	return q.Limit - q.Used
}

// ZoneCapability reports whether a zone can host the requested accelerator,
// and if not, which other zones can. AlternativeZones is ordered: zones in
// the same region first, then the remainder of the search scope.
type ZoneCapability struct {
	Zone             string   `json:"zone"`
	Kind             Kind     `json:"kind"`
	AcceleratorType  string   `json:"acceleratorType,omitempty"`
	Available        bool     `json:"available"`
	AlternativeZones []string `json:"alternativeZones,omitempty"`
}
