// Package provision plans and executes cluster and node-pool provisioning.
// Plans are ordered step sequences with idempotency keys; execution re-checks
// live state before every step so a plan can be re-run safely after an
// interruption, which matters because cluster creation runs for minutes.
package provision

import (
	"fmt"
	"time"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/cloud"
)

// Action names a provisioning step type.
type Action string

const (
	// ActionCreateCluster converges the target cluster into existence.
	ActionCreateCluster Action = "create-cluster"
	// ActionCreateNodePool attaches the accelerator node pool.
	ActionCreateNodePool Action = "create-node-pool"
	// ActionWriteCredentials wires a kubeconfig entry for the cluster.
	ActionWriteCredentials Action = "write-credentials"
)

// Status is a step's lifecycle state.
type Status string

const (
	// StatusPlanned is the initial state; also the terminal state of steps
	// never reached because an earlier step failed or ctx was cancelled.
	StatusPlanned Status = "Planned"
	// StatusExecuting marks the step currently issuing cloud calls.
	StatusExecuting Status = "Executing"
	// StatusSucceeded marks a completed mutation.
	StatusSucceeded Status = "Succeeded"
	// StatusFailed marks a step whose mutation or wait failed.
	StatusFailed Status = "Failed"
	// StatusSkippedAlreadySatisfied marks a step whose target already
	// exists in the desired state.
	StatusSkippedAlreadySatisfied Status = "SkippedAlreadySatisfied"
)

// Step is one planned provisioning action. IdempotencyKey is the resource
// name used for the live existence check before execution.
type Step struct {
	Action            Action        `json:"action"`
	Target            string        `json:"target"`
	IdempotencyKey    string        `json:"idempotencyKey"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
	BestEffort        bool          `json:"bestEffort,omitempty"`
}

// Plan is an ordered provisioning program plus the specs its steps converge
// on. Downstream consumers treat it as read-only.
type Plan struct {
	Project  string        `json:"project"`
	Location string        `json:"location"`
	Cluster  string        `json:"cluster"`
	Request  accel.Request `json:"request"`

	ClusterSpec  cloud.ClusterSpec  `json:"clusterSpec"`
	NodePoolSpec cloud.NodePoolSpec `json:"nodePoolSpec"`

	Steps []Step `json:"steps"`
}

// NodePoolName derives the pool name from the machine type and topology,
// e.g. "ct6e-standard-4t-2x2" or "a3-highgpu-8g".
func NodePoolName(req accel.Request) string {
	if req.Topology != "" {
		return req.MachineType + "-" + req.Topology
	}
	return req.MachineType
}

// BuildPlan derives the step sequence for a validated request. The request
// must already have passed preflight; BuildPlan still re-validates the
// catalog lookup because it needs the host count.
func BuildPlan(project, location, clusterName string, req accel.Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, cloud.NewError(cloud.KindInvalidRequest, "build plan", clusterName, err)
	}

	mt, _ := accel.LookupMachineType(req.MachineType)
	hostsPerReplica, err := mt.HostCount(req.AcceleratorCount)
	if err != nil {
		return nil, cloud.NewError(cloud.KindInvalidRequest, "build plan", clusterName, err)
	}

	poolName := NodePoolName(req)
	poolSpec := cloud.NodePoolSpec{
		Name:        poolName,
		MachineType: req.MachineType,
		TPUTopology: req.Topology,
		NodeCount:   hostsPerReplica * int64(req.Replicas),
	}
	if req.Kind == accel.KindGPU {
		poolSpec.AcceleratorType = mt.AcceleratorType
		poolSpec.AcceleratorCount = mt.ChipsPerHost
	}

	return &Plan{
		Project:  project,
		Location: location,
		Cluster:  clusterName,
		Request:  req,
		ClusterSpec: cloud.ClusterSpec{
			Name:             clusterName,
			ReleaseChannel:   "REGULAR",
			InitialNodeCount: 1,
		},
		NodePoolSpec: poolSpec,
		Steps: []Step{
			{
				Action:            ActionCreateCluster,
				Target:            clusterName,
				IdempotencyKey:    clusterName,
				EstimatedDuration: 7 * time.Minute,
			},
			{
				Action:            ActionCreateNodePool,
				Target:            fmt.Sprintf("%s/%s", clusterName, poolName),
				IdempotencyKey:    poolName,
				EstimatedDuration: 5 * time.Minute,
			},
			{
				Action:            ActionWriteCredentials,
				Target:            clusterName,
				IdempotencyKey:    fmt.Sprintf("gke_%s_%s_%s", project, location, clusterName),
				EstimatedDuration: 5 * time.Second,
			},
		},
	}, nil
}
