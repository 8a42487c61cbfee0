package accel

import (
	"fmt"
	"strconv"
	"strings"
)

// MachineType describes one entry in the accelerator machine-type catalog.
//
// ChipsPerHost is the number of chips (TPU) or GPUs attached to a single
// node of this type. For TPU types, Topologies lists the chip-grid shapes
// the type accepts; multi-host shapes are valid when the total chip count is
// a multiple of ChipsPerHost.
type MachineType struct {
	Name            string
	Kind            Kind
	Generation      string // e.g. "tpu-v6e", "nvidia-h100-80gb"
	ChipsPerHost    int64
	TopologyDims    int // 2 for v5e/v6e grids, 3 for v4/v5p cubes, 0 for GPU
	Topologies      []string
	QuotaMetric     string // regional quota metric governing this type's chips
	AcceleratorType string // GKE accelerator resource name, empty for TPU slices
}

// SupportsTopology reports whether the given chip grid is valid for this
// machine type.
func (m MachineType) SupportsTopology(topology string) bool {
	for _, t := range m.Topologies {
		if t == topology {
			return true
		}
	}
	return false
}

// HostCount returns how many nodes a slice with the given total chip count
// occupies, or an error if the count does not divide evenly across hosts.
func (m MachineType) HostCount(totalChips int64) (int64, error) {
	if m.ChipsPerHost == 0 {
		return 0, fmt.Errorf("machine type %s has no accelerator attachment", m.Name)
	}
	if totalChips%m.ChipsPerHost != 0 {
		return 0, fmt.Errorf("%d chips do not divide across %s hosts of %d chips",
			totalChips, m.Name, m.ChipsPerHost)
	}
	return totalChips / m.ChipsPerHost, nil
}

// TopologyChips parses a chip-grid string such as "2x2" or "2x2x4" and
// returns the total chip count it describes.
func TopologyChips(topology string) (int64, error) {
	parts := strings.Split(topology, "x")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid topology %q: expected NxM or NxMxK", topology)
	}
	total := int64(1)
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid topology %q: %q is not a positive integer", topology, p)
		}
		total *= n
	}
	return total, nil
}

// catalog is the static machine-type table. Keep in sync with the machine
// families the platform actually exposes; unknown types fail request
// validation rather than passing through to a cloud error mid-provisioning.
var catalog = map[string]MachineType{
	// TPU v6e (Trillium), 2D grids.
	"ct6e-standard-1t": {
		Name: "ct6e-standard-1t", Kind: KindTPU, Generation: "tpu-v6e",
		ChipsPerHost: 1, TopologyDims: 2,
		Topologies:  []string{"1x1"},
		QuotaMetric: "TPU_V6E_CHIPS",
	},
	"ct6e-standard-4t": {
		Name: "ct6e-standard-4t", Kind: KindTPU, Generation: "tpu-v6e",
		ChipsPerHost: 4, TopologyDims: 2,
		Topologies:  []string{"2x2", "2x4", "4x4", "4x8", "8x8", "8x16", "16x16"},
		QuotaMetric: "TPU_V6E_CHIPS",
	},
	"ct6e-standard-8t": {
		Name: "ct6e-standard-8t", Kind: KindTPU, Generation: "tpu-v6e",
		ChipsPerHost: 8, TopologyDims: 2,
		Topologies:  []string{"2x4"},
		QuotaMetric: "TPU_V6E_CHIPS",
	},

	// TPU v5e, 2D grids.
	"ct5lp-hightpu-1t": {
		Name: "ct5lp-hightpu-1t", Kind: KindTPU, Generation: "tpu-v5e",
		ChipsPerHost: 1, TopologyDims: 2,
		Topologies:  []string{"1x1"},
		QuotaMetric: "TPU_V5_LITEPOD_CHIPS",
	},
	"ct5lp-hightpu-4t": {
		Name: "ct5lp-hightpu-4t", Kind: KindTPU, Generation: "tpu-v5e",
		ChipsPerHost: 4, TopologyDims: 2,
		Topologies:  []string{"2x2", "2x4", "4x4", "4x8", "8x8", "8x16", "16x16"},
		QuotaMetric: "TPU_V5_LITEPOD_CHIPS",
	},
	"ct5lp-hightpu-8t": {
		Name: "ct5lp-hightpu-8t", Kind: KindTPU, Generation: "tpu-v5e",
		ChipsPerHost: 8, TopologyDims: 2,
		Topologies:  []string{"2x4"},
		QuotaMetric: "TPU_V5_LITEPOD_CHIPS",
	},

	// TPU v5p, 3D cubes.
	"ct5p-hightpu-4t": {
		Name: "ct5p-hightpu-4t", Kind: KindTPU, Generation: "tpu-v5p",
		ChipsPerHost: 4, TopologyDims: 3,
		Topologies:  []string{"2x2x1", "2x2x2", "2x2x4", "2x4x4", "4x4x4", "4x4x8", "4x8x8", "8x8x8"},
		QuotaMetric: "TPU_V5P_CHIPS",
	},

	// TPU v4, 3D cubes.
	"ct4p-hightpu-4t": {
		Name: "ct4p-hightpu-4t", Kind: KindTPU, Generation: "tpu-v4",
		ChipsPerHost: 4, TopologyDims: 3,
		Topologies:  []string{"2x2x1", "2x2x2", "2x2x4", "2x4x4", "4x4x4", "4x4x8", "4x8x8", "8x8x8"},
		QuotaMetric: "TPU_V4_CHIPS",
	},

	// A100 40GB.
	"a2-highgpu-1g": {
		Name: "a2-highgpu-1g", Kind: KindGPU, Generation: "nvidia-tesla-a100",
		ChipsPerHost: 1, QuotaMetric: "NVIDIA_A100_GPUS", AcceleratorType: "nvidia-tesla-a100",
	},
	"a2-highgpu-2g": {
		Name: "a2-highgpu-2g", Kind: KindGPU, Generation: "nvidia-tesla-a100",
		ChipsPerHost: 2, QuotaMetric: "NVIDIA_A100_GPUS", AcceleratorType: "nvidia-tesla-a100",
	},
	"a2-highgpu-4g": {
		Name: "a2-highgpu-4g", Kind: KindGPU, Generation: "nvidia-tesla-a100",
		ChipsPerHost: 4, QuotaMetric: "NVIDIA_A100_GPUS", AcceleratorType: "nvidia-tesla-a100",
	},
	"a2-highgpu-8g": {
		Name: "a2-highgpu-8g", Kind: KindGPU, Generation: "nvidia-tesla-a100",
		ChipsPerHost: 8, QuotaMetric: "NVIDIA_A100_GPUS", AcceleratorType: "nvidia-tesla-a100",
	},

	// A100 80GB.
	"a2-ultragpu-8g": {
		Name: "a2-ultragpu-8g", Kind: KindGPU, Generation: "nvidia-a100-80gb",
		ChipsPerHost: 8, QuotaMetric: "NVIDIA_A100_80GB_GPUS", AcceleratorType: "nvidia-a100-80gb",
	},

	// H100 80GB.
	"a3-highgpu-8g": {
		Name: "a3-highgpu-8g", Kind: KindGPU, Generation: "nvidia-h100-80gb",
		ChipsPerHost: 8, QuotaMetric: "NVIDIA_H100_GPUS", AcceleratorType: "nvidia-h100-80gb",
	},

	// L4.
	"g2-standard-4": {
		Name: "g2-standard-4", Kind: KindGPU, Generation: "nvidia-l4",
		ChipsPerHost: 1, QuotaMetric: "NVIDIA_L4_GPUS", AcceleratorType: "nvidia-l4",
	},
	"g2-standard-24": {
		Name: "g2-standard-24", Kind: KindGPU, Generation: "nvidia-l4",
		ChipsPerHost: 2, QuotaMetric: "NVIDIA_L4_GPUS", AcceleratorType: "nvidia-l4",
	},
	"g2-standard-48": {
		Name: "g2-standard-48", Kind: KindGPU, Generation: "nvidia-l4",
		ChipsPerHost: 4, QuotaMetric: "NVIDIA_L4_GPUS", AcceleratorType: "nvidia-l4",
	},
}

// LookupMachineType returns the catalog entry for a machine type name.
func LookupMachineType(name string) (MachineType, bool) {
	mt, ok := catalog[name]
	return mt, ok
}

// MachineTypes returns the catalog entries for the given kind, or all
// entries when kind is empty. Order is not defined.
func MachineTypes(kind Kind) []MachineType {
	out := make([]MachineType, 0, len(catalog))
	for _, mt := range catalog {
		if kind == "" || mt.Kind == kind {
			out = append(out, mt)
		}
	}
	return out
}

// MachineFamily returns the prefix of a machine type name used when matching
// against zone machine-type listings, e.g. "ct6e" for "ct6e-standard-4t".
func MachineFamily(machineType string) string {
	if i := strings.Index(machineType, "-"); i > 0 {
		return machineType[:i]
	}
	return machineType
}
