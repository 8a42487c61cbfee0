package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/option"

	compute "google.golang.org/api/compute/v1"
)

// GCPClient implements Client against the live GCE and GKE control planes.
// It is bound to a single project; inventory listing calls (zones, machine
// types) run against that project.
type GCPClient struct {
	project   string
	compute   *compute.Service
	container *container.Service
	log       logr.Logger
}

var _ Client = (*GCPClient)(nil)

// NewGCPClient builds a client using application default credentials unless
// overridden through opts.
func NewGCPClient(ctx context.Context, project string, log logr.Logger, opts ...option.ClientOption) (*GCPClient, error) {
	computeSvc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}
	containerSvc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create container service: %w", err)
	}
	return &GCPClient{
		project:   project,
		compute:   computeSvc,
		container: containerSvc,
		log:       log.WithName("cloud"),
	}, nil
}

func clusterPath(project, location, name string) string {
	return fmt.Sprintf("projects/%s/locations/%s/clusters/%s", project, location, name)
}

func locationPath(project, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, location)
}

// GetCluster fetches live cluster state. Absence is reported as a
// KindNotFound error, not a nil result.
func (c *GCPClient) GetCluster(ctx context.Context, project, location, name string) (*ClusterInfo, error) {
	cluster, err := c.container.Projects.Locations.Clusters.Get(clusterPath(project, location, name)).Context(ctx).Do()
	if err != nil {
		return nil, Classify("get cluster", name, err)
	}

	caCert, err := base64.StdEncoding.DecodeString(cluster.MasterAuth.ClusterCaCertificate)
	if err != nil {
		return nil, NewError(KindInvalidRequest, "get cluster", name,
			fmt.Errorf("malformed cluster CA certificate: %w", err))
	}

	return &ClusterInfo{
		Name:     cluster.Name,
		Location: cluster.Location,
		Status:   cluster.Status,
		Endpoint: cluster.Endpoint,
		CACert:   caCert,
	}, nil
}

// CreateCluster starts cluster creation and returns the operation name.
func (c *GCPClient) CreateCluster(ctx context.Context, project, location string, spec ClusterSpec) (string, error) {
	req := &container.CreateClusterRequest{
		Cluster: &container.Cluster{
			Name:             spec.Name,
			InitialNodeCount: spec.InitialNodeCount,
			Network:          spec.Network,
			Subnetwork:       spec.Subnetwork,
		},
	}
	if spec.ReleaseChannel != "" {
		req.Cluster.ReleaseChannel = &container.ReleaseChannel{Channel: spec.ReleaseChannel}
	}

	c.log.V(1).Info("creating cluster", "project", project, "location", location, "cluster", spec.Name)
	op, err := c.container.Projects.Locations.Clusters.Create(locationPath(project, location), req).Context(ctx).Do()
	if err != nil {
		return "", Classify("create cluster", spec.Name, err)
	}
	return op.Name, nil
}

// GetNodePool fetches live node pool state for idempotency comparison.
func (c *GCPClient) GetNodePool(ctx context.Context, project, location, cluster, name string) (*NodePoolInfo, error) {
	path := clusterPath(project, location, cluster) + "/nodePools/" + name
	pool, err := c.container.Projects.Locations.Clusters.NodePools.Get(path).Context(ctx).Do()
	if err != nil {
		return nil, Classify("get node pool", name, err)
	}

	info := &NodePoolInfo{
		Name:      pool.Name,
		Status:    pool.Status,
		NodeCount: pool.InitialNodeCount,
	}
	if pool.Config != nil {
		info.MachineType = pool.Config.MachineType
		for _, acc := range pool.Config.Accelerators {
			info.AcceleratorType = acc.AcceleratorType
			info.AcceleratorCount += acc.AcceleratorCount
		}
	}
	if pool.PlacementPolicy != nil {
		info.TPUTopology = pool.PlacementPolicy.TpuTopology
	}
	return info, nil
}

// CreateNodePool starts node pool creation and returns the operation name.
func (c *GCPClient) CreateNodePool(ctx context.Context, project, location, cluster string, spec NodePoolSpec) (string, error) {
	pool := &container.NodePool{
		Name:             spec.Name,
		InitialNodeCount: spec.NodeCount,
		Config: &container.NodeConfig{
			MachineType: spec.MachineType,
			Spot:        spec.Spot,
		},
	}
	if spec.AcceleratorType != "" {
		pool.Config.Accelerators = []*container.AcceleratorConfig{{
			AcceleratorType:  spec.AcceleratorType,
			AcceleratorCount: spec.AcceleratorCount,
		}}
	}
	if spec.TPUTopology != "" {
		pool.PlacementPolicy = &container.PlacementPolicy{
			Type:        "COMPACT",
			TpuTopology: spec.TPUTopology,
		}
	}

	c.log.V(1).Info("creating node pool", "cluster", cluster, "pool", spec.Name, "machineType", spec.MachineType)
	op, err := c.container.Projects.Locations.Clusters.NodePools.Create(
		clusterPath(project, location, cluster),
		&container.CreateNodePoolRequest{NodePool: pool},
	).Context(ctx).Do()
	if err != nil {
		return "", Classify("create node pool", spec.Name, err)
	}
	return op.Name, nil
}

// WaitOperation polls the operation until DONE. The caller bounds the wait
// through ctx; expiry surfaces as a KindTimeout error.
func (c *GCPClient) WaitOperation(ctx context.Context, project, location, opName string, pollInterval time.Duration) error {
	path := locationPath(project, location) + "/operations/" + opName

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		op, err := c.container.Projects.Locations.Operations.Get(path).Context(ctx).Do()
		if err != nil {
			cerr := Classify("get operation", opName, err)
			if !IsTransient(cerr) {
				return cerr
			}
			c.log.V(1).Info("transient error polling operation, will retry", "operation", opName, "error", err.Error())
		} else if op.Status == "DONE" {
			if op.Error != nil {
				return NewError(KindConflict, "operation", opName, fmt.Errorf("%s", op.Error.Message))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return NewError(KindTimeout, "wait operation", opName, ctx.Err())
		case <-ticker.C:
		}
	}
}
