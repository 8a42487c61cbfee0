package pricing

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Rates is one version of the accelerator rate table. Accelerators maps
// generation names to on-demand USD per chip/GPU hour; Hosts maps machine
// family prefixes to the per-node hourly price of the attached host
// (vCPU/RAM), zero for TPU families where the chip rate is all-inclusive.
type Rates struct {
	Version      string             `json:"version"`
	Currency     string             `json:"currency"`
	Accelerators map[string]float64 `json:"accelerators"`
	Hosts        map[string]float64 `json:"hosts"`
}

// DefaultRates returns the built-in on-demand table. Approximate list
// prices; operators tracking negotiated or regional pricing pass their own
// table via --pricing-table.
func DefaultRates() *Rates {
	return &Rates{
		Version:  "2026-01",
		Currency: "USD",
		Accelerators: map[string]float64{
			"tpu-v4":            3.22,
			"tpu-v5e":           1.20,
			"tpu-v5p":           4.20,
			"tpu-v6e":           2.70,
			"nvidia-tesla-a100": 2.93,
			"nvidia-a100-80gb":  3.93,
			"nvidia-h100-80gb":  6.98,
			"nvidia-l4":         0.71,
		},
		Hosts: map[string]float64{
			"a2": 0.74,
			"a3": 1.52,
			"g2": 0.29,
		},
	}
}

// LoadRates reads a rate table override from a YAML file.
func LoadRates(path string) (*Rates, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing table: %w", err)
	}

	var rates Rates
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("failed to parse pricing table: %w", err)
	}
	if len(rates.Accelerators) == 0 {
		return nil, fmt.Errorf("pricing table %s defines no accelerator rates", path)
	}
	if rates.Currency == "" {
		rates.Currency = "USD"
	}
	return &rates, nil
}
