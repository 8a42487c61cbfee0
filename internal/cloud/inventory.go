package cloud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	compute "google.golang.org/api/compute/v1"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/util/retry"
)

// maxAlternativeZones bounds the number of fallback zones probed and
// reported when the requested zone lacks the accelerator. Probing is one
// list call per zone, so the search stops as soon as enough hits are found.
const maxAlternativeZones = 3

// inventoryRetry wraps a read-only call with a short transient-only retry.
// Definitive answers (not found, denied) pass through on the first attempt.
func inventoryRetry(ctx context.Context, op func() error) error {
	return retry.Do(ctx, op,
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithRetryable(IsTransient))
}

// ZoneCapability reports whether the requested accelerator is offered in
// the zone. GPU requests are resolved against the zone's accelerator-type
// listing, TPU requests against its machine-type listing, since TPU slices
// surface as dedicated machine families rather than attachable devices.
func (c *GCPClient) ZoneCapability(ctx context.Context, req accel.Request) (*accel.ZoneCapability, error) {
	mt, ok := accel.LookupMachineType(req.MachineType)
	if !ok {
		return nil, NewError(KindInvalidRequest, "zone capability", req.MachineType,
			fmt.Errorf("unknown machine type %q", req.MachineType))
	}

	if c.project == "" {
		return nil, NewError(KindInvalidRequest, "zone capability", req.Zone,
			fmt.Errorf("client has no project bound"))
	}

	var available bool
	err := inventoryRetry(ctx, func() error {
		var probeErr error
		available, probeErr = c.zoneOffers(ctx, c.project, req.Zone, mt)
		return probeErr
	})
	if err != nil {
		return nil, err
	}

	capability := &accel.ZoneCapability{
		Zone:            req.Zone,
		Kind:            req.Kind,
		AcceleratorType: mt.AcceleratorType,
		Available:       available,
	}
	if available {
		return capability, nil
	}

	alternatives, err := c.findAlternativeZones(ctx, c.project, req.Zone, mt)
	if err != nil {
		// The primary answer stands; a failed fallback search only costs
		// the hint, so report the zone as unavailable with what we have.
		c.log.V(1).Info("alternative zone search failed", "zone", req.Zone, "error", err.Error())
	}
	capability.AlternativeZones = alternatives
	return capability, nil
}

// Quota fetches one regional quota metric as an immutable snapshot.
func (c *GCPClient) Quota(ctx context.Context, project, region, metric string) (*accel.QuotaSnapshot, error) {
	var reg *compute.Region
	err := inventoryRetry(ctx, func() error {
		got, getErr := c.compute.Regions.Get(project, region).Context(ctx).Do()
		if getErr != nil {
			return Classify("get region quota", region, getErr)
		}
		reg = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, q := range reg.Quotas {
		if q.Metric == metric {
			return &accel.QuotaSnapshot{
				Project:   project,
				Region:    region,
				Metric:    metric,
				Limit:     q.Limit,
				Used:      q.Usage,
				FetchedAt: time.Now(),
			}, nil
		}
	}

	return nil, NewError(KindNotFound, "get region quota", metric,
		fmt.Errorf("metric %q not present in region %s", metric, region))
}

// zoneOffers probes one zone for the machine type's accelerator family.
func (c *GCPClient) zoneOffers(ctx context.Context, project, zone string, mt accel.MachineType) (bool, error) {
	if mt.Kind == accel.KindGPU {
		list, err := c.compute.AcceleratorTypes.List(project, zone).
			Filter(fmt.Sprintf("name = %q", mt.AcceleratorType)).
			Context(ctx).Do()
		if err != nil {
			if IsKind(Classify("", "", err), KindNotFound) {
				return false, nil // zone itself unknown: not capable
			}
			return false, Classify("list accelerator types", zone, err)
		}
		return len(list.Items) > 0, nil
	}

	list, err := c.compute.MachineTypes.List(project, zone).
		Filter(fmt.Sprintf("name = %q", mt.Name)).
		Context(ctx).Do()
	if err != nil {
		if IsKind(Classify("", "", err), KindNotFound) {
			return false, nil
		}
		return false, Classify("list machine types", zone, err)
	}
	return len(list.Items) > 0, nil
}

// findAlternativeZones probes other zones for the same machine type and
// returns up to maxAlternativeZones hits, same-region zones first.
func (c *GCPClient) findAlternativeZones(ctx context.Context, project, requestedZone string, mt accel.MachineType) ([]string, error) {
	zoneList, err := c.compute.Zones.List(project).Context(ctx).Do()
	if err != nil {
		return nil, Classify("list zones", project, err)
	}

	region := zoneRegion(requestedZone)
	candidates := make([]string, 0, len(zoneList.Items))
	for _, z := range zoneList.Items {
		if z.Name == requestedZone || z.Status != "UP" {
			continue
		}
		candidates = append(candidates, z.Name)
	}

	// Same-region zones are the cheapest moves for the operator, so they
	// get probed and listed ahead of everything else.
	sort.SliceStable(candidates, func(i, j int) bool {
		iSame := zoneRegion(candidates[i]) == region
		jSame := zoneRegion(candidates[j]) == region
		if iSame != jSame {
			return iSame
		}
		return candidates[i] < candidates[j]
	})

	var hits []string
	for _, zone := range candidates {
		if len(hits) >= maxAlternativeZones {
			break
		}
		ok, err := c.zoneOffers(ctx, project, zone, mt)
		if err != nil {
			if IsTransient(err) {
				continue
			}
			return hits, err
		}
		if ok {
			hits = append(hits, zone)
		}
	}
	return hits, nil
}

// zoneRegion strips the zone suffix: "us-central1-b" -> "us-central1".
func zoneRegion(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}
