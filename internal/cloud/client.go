// Package cloud wraps the managed-platform control-plane APIs behind small
// interfaces: read-only inventory queries (accelerator availability, quota)
// and cluster/node-pool lifecycle calls. All reads are live; nothing is
// cached across calls, since quota and capacity drift between preflight and
// provisioning.
package cloud

import (
	"context"
	"time"

	"github.com/accelctl/accelctl/internal/accel"
)

// Inventory is the read-only view of the platform used by preflight
// validation. Implementations must not mutate cloud state.
type Inventory interface {
	// ZoneCapability reports whether zone can host the requested machine
	// type, and ranks alternative zones when it cannot. A transient error
	// is distinguishable from a definitive not-found via the error Kind.
	ZoneCapability(ctx context.Context, req accel.Request) (*accel.ZoneCapability, error)

	// Quota fetches a fresh snapshot of one regional quota metric.
	Quota(ctx context.Context, project, region, metric string) (*accel.QuotaSnapshot, error)
}

// ClusterInfo is the subset of cluster state the orchestrator and verifier
// care about.
type ClusterInfo struct {
	Name     string
	Location string
	Status   string // PROVISIONING | RUNNING | ERROR | ...
	Endpoint string
	CACert   []byte // PEM, decoded from the control plane's base64 form
}

// Running reports whether the cluster has reached its steady state.
func (c *ClusterInfo) Running() bool {
	return c != nil && c.Status == "RUNNING"
}

// NodePoolInfo is the observed state of a node pool, compared against a
// NodePoolSpec during idempotency checks.
type NodePoolInfo struct {
	Name             string
	Status           string
	MachineType      string
	AcceleratorType  string
	AcceleratorCount int64
	TPUTopology      string
	NodeCount        int64
}

// ClusterSpec describes the cluster the orchestrator should converge on.
type ClusterSpec struct {
	Name             string
	Network          string
	Subnetwork       string
	ReleaseChannel   string
	InitialNodeCount int64
}

// NodePoolSpec describes an accelerator node pool. NodeCount is the host
// count derived from the requested topology and replicas.
type NodePoolSpec struct {
	Name             string
	MachineType      string
	AcceleratorType  string // empty for TPU slice machine types
	AcceleratorCount int64  // per-host GPU count, 0 for TPU
	TPUTopology      string
	NodeCount        int64
	Spot             bool
}

// ClusterManager issues the mutating control-plane calls. Creates return an
// operation name; callers block on WaitOperation, which is the only place
// long-running work is awaited.
type ClusterManager interface {
	GetCluster(ctx context.Context, project, location, name string) (*ClusterInfo, error)
	CreateCluster(ctx context.Context, project, location string, spec ClusterSpec) (string, error)

	GetNodePool(ctx context.Context, project, location, cluster, name string) (*NodePoolInfo, error)
	CreateNodePool(ctx context.Context, project, location, cluster string, spec NodePoolSpec) (string, error)

	// WaitOperation polls the named operation until it completes or ctx
	// expires. Poll cadence is implementation-defined but bounded.
	WaitOperation(ctx context.Context, project, location, opName string, pollInterval time.Duration) error
}

// Client bundles both halves of the control-plane surface.
type Client interface {
	Inventory
	ClusterManager
}
