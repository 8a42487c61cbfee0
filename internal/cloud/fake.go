package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/accelctl/accelctl/internal/accel"
)

// Fake is an in-memory Client for tests and offline plan previews. Every
// mutating call bumps Mutations, which the dry-run tests compare before and
// after execution.
type Fake struct {
	mu sync.Mutex

	Clusters  map[string]*ClusterInfo  // keyed by cluster name
	NodePools map[string]*NodePoolInfo // keyed by cluster/pool
	Quotas    map[string]*accel.QuotaSnapshot
	Zones     map[string][]string // machineType -> zones offering it

	// Errs injects a failure for a named call site, e.g. "quota" or
	// "zone-capability". The error is returned verbatim.
	Errs map[string]error

	// FailOps marks operation names whose WaitOperation reports failure.
	FailOps map[string]string

	mutations int
}

var _ Client = (*Fake)(nil)

// NewFake returns an empty fake with all maps initialized.
func NewFake() *Fake {
	return &Fake{
		Clusters:  make(map[string]*ClusterInfo),
		NodePools: make(map[string]*NodePoolInfo),
		Quotas:    make(map[string]*accel.QuotaSnapshot),
		Zones:     make(map[string][]string),
		Errs:      make(map[string]error),
		FailOps:   make(map[string]string),
	}
}

// Mutations returns how many state-changing calls the fake has served.
func (f *Fake) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

func (f *Fake) ZoneCapability(_ context.Context, req accel.Request) (*accel.ZoneCapability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["zone-capability"]; err != nil {
		return nil, err
	}

	mt, ok := accel.LookupMachineType(req.MachineType)
	if !ok {
		return nil, NewError(KindInvalidRequest, "zone capability", req.MachineType,
			fmt.Errorf("unknown machine type %q", req.MachineType))
	}

	capability := &accel.ZoneCapability{
		Zone:            req.Zone,
		Kind:            req.Kind,
		AcceleratorType: mt.AcceleratorType,
	}
	for _, zone := range f.Zones[req.MachineType] {
		if zone == req.Zone {
			capability.Available = true
			return capability, nil
		}
	}
	for _, zone := range f.Zones[req.MachineType] {
		if len(capability.AlternativeZones) < maxAlternativeZones {
			capability.AlternativeZones = append(capability.AlternativeZones, zone)
		}
	}
	return capability, nil
}

func (f *Fake) Quota(_ context.Context, project, region, metric string) (*accel.QuotaSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["quota"]; err != nil {
		return nil, err
	}

	q, ok := f.Quotas[metric]
	if !ok {
		return nil, NewError(KindNotFound, "get region quota", metric,
			fmt.Errorf("metric %q not present in region %s", metric, region))
	}
	snap := *q
	snap.Project = project
	snap.Region = region
	snap.Metric = metric
	snap.FetchedAt = time.Now()
	return &snap, nil
}

func (f *Fake) GetCluster(_ context.Context, _, _, name string) (*ClusterInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["get-cluster"]; err != nil {
		return nil, err
	}
	c, ok := f.Clusters[name]
	if !ok {
		return nil, NewError(KindNotFound, "get cluster", name, fmt.Errorf("cluster %q not found", name))
	}
	copied := *c
	return &copied, nil
}

func (f *Fake) CreateCluster(_ context.Context, _, location string, spec ClusterSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["create-cluster"]; err != nil {
		return "", err
	}
	if _, exists := f.Clusters[spec.Name]; exists {
		return "", NewError(KindConflict, "create cluster", spec.Name, fmt.Errorf("cluster %q already exists", spec.Name))
	}

	f.mutations++
	f.Clusters[spec.Name] = &ClusterInfo{
		Name:     spec.Name,
		Location: location,
		Status:   "RUNNING",
		Endpoint: "203.0.113.10",
		CACert:   []byte("-----BEGIN CERTIFICATE-----\nfake\n-----END CERTIFICATE-----\n"),
	}
	return "op-create-cluster-" + spec.Name, nil
}

func (f *Fake) GetNodePool(_ context.Context, _, _, cluster, name string) (*NodePoolInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["get-node-pool"]; err != nil {
		return nil, err
	}
	p, ok := f.NodePools[cluster+"/"+name]
	if !ok {
		return nil, NewError(KindNotFound, "get node pool", name, fmt.Errorf("node pool %q not found", name))
	}
	copied := *p
	return &copied, nil
}

func (f *Fake) CreateNodePool(_ context.Context, _, _, cluster string, spec NodePoolSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errs["create-node-pool"]; err != nil {
		return "", err
	}
	key := cluster + "/" + spec.Name
	if _, exists := f.NodePools[key]; exists {
		return "", NewError(KindConflict, "create node pool", spec.Name, fmt.Errorf("node pool %q already exists", spec.Name))
	}

	f.mutations++
	f.NodePools[key] = &NodePoolInfo{
		Name:             spec.Name,
		Status:           "RUNNING",
		MachineType:      spec.MachineType,
		AcceleratorType:  spec.AcceleratorType,
		AcceleratorCount: spec.AcceleratorCount,
		TPUTopology:      spec.TPUTopology,
		NodeCount:        spec.NodeCount,
	}
	return "op-create-node-pool-" + spec.Name, nil
}

func (f *Fake) WaitOperation(ctx context.Context, _, _, opName string, _ time.Duration) error {
	f.mu.Lock()
	msg, failed := f.FailOps[opName]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NewError(KindTimeout, "wait operation", opName, err)
	}
	if failed {
		return NewError(KindConflict, "operation", opName, fmt.Errorf("%s", msg))
	}
	return nil
}
