// Package pricing estimates accelerator infrastructure cost from a static
// rate table. Estimation is a pure function of the request and the table;
// no network access, so preflight can annotate reports without a quota hit.
package pricing

import (
	"fmt"

	"github.com/accelctl/accelctl/internal/accel"
)

// HoursPerMonth is the flat-rate month used for monthly projections.
const HoursPerMonth = 730

// LineItem is one priced component of an estimate.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPerHour float64 `json:"unitPerHour"`
	PerHour     float64 `json:"perHour"`
}

// Breakdown is the full cost estimate for a request.
type Breakdown struct {
	Items        []LineItem    `json:"items"`
	PerHour      float64       `json:"perHour"`
	PerDay       float64       `json:"perDay"`
	PerMonth     float64       `json:"perMonth"`
	Currency     string        `json:"currency"`
	RatesVersion string        `json:"ratesVersion"`
	Request      accel.Request `json:"request"`
}

// Calculator prices requests against one rate table version.
type Calculator struct {
	rates *Rates
}

// NewCalculator returns a calculator over the built-in rate table.
func NewCalculator() *Calculator {
	return &Calculator{rates: DefaultRates()}
}

// NewCalculatorWithRates returns a calculator over a specific table, e.g.
// one loaded from a --pricing-table override.
func NewCalculatorWithRates(rates *Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate prices the request. Deterministic for a given table version.
func (c *Calculator) Estimate(req accel.Request) (*Breakdown, error) {
	mt, ok := accel.LookupMachineType(req.MachineType)
	if !ok {
		return nil, fmt.Errorf("unknown machine type %q", req.MachineType)
	}

	chipRate, ok := c.rates.Accelerators[mt.Generation]
	if !ok {
		return nil, fmt.Errorf("rate table %s has no entry for %s", c.rates.Version, mt.Generation)
	}

	totalChips := req.TotalChips()
	hostsPerReplica, err := mt.HostCount(req.AcceleratorCount)
	if err != nil {
		return nil, err
	}
	totalHosts := hostsPerReplica * int64(req.Replicas)

	b := &Breakdown{
		Currency:     c.rates.Currency,
		RatesVersion: c.rates.Version,
		Request:      req,
	}

	chipUnit := "chip"
	if req.Kind == accel.KindGPU {
		chipUnit = "gpu"
	}
	chipTotal := float64(totalChips) * chipRate
	b.Items = append(b.Items, LineItem{
		Description: mt.Generation,
		Quantity:    totalChips,
		Unit:        chipUnit,
		UnitPerHour: chipRate,
		PerHour:     chipTotal,
	})

	if hostRate := c.rates.Hosts[accel.MachineFamily(req.MachineType)]; hostRate > 0 {
		hostTotal := float64(totalHosts) * hostRate
		b.Items = append(b.Items, LineItem{
			Description: "host machines (" + req.MachineType + ")",
			Quantity:    totalHosts,
			Unit:        "node",
			UnitPerHour: hostRate,
			PerHour:     hostTotal,
		})
	}

	for _, item := range b.Items {
		b.PerHour += item.PerHour
	}
	b.PerDay = b.PerHour * 24
	b.PerMonth = b.PerHour * HoursPerMonth

	return b, nil
}

// Compare estimates several requests side by side, e.g. the same topology
// across accelerator generations. Requests that fail to price are skipped
// with their error recorded.
func (c *Calculator) Compare(reqs []accel.Request) ([]*Breakdown, []error) {
	breakdowns := make([]*Breakdown, 0, len(reqs))
	var errs []error
	for _, req := range reqs {
		b, err := c.Estimate(req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req.MachineType, err))
			continue
		}
		breakdowns = append(breakdowns, b)
	}
	return breakdowns, errs
}
