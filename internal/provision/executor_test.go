package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/cloud"
)

func testPlan(t *testing.T) *Plan {
	t.Helper()
	plan, err := BuildPlan("proj-1", "us-central1-b", "ml-serving", accel.Request{
		Kind:             accel.KindTPU,
		MachineType:      "ct6e-standard-4t",
		AcceleratorCount: 4,
		Topology:         "2x2",
		Zone:             "us-central1-b",
		Replicas:         1,
	})
	require.NoError(t, err)
	return plan
}

// memKubeconfig records writes and reports entries it has written.
type memKubeconfig struct {
	entries map[string]string // contextName -> endpoint
	writes  int
}

func newMemKubeconfig() *memKubeconfig {
	return &memKubeconfig{entries: make(map[string]string)}
}

func (m *memKubeconfig) HasEntry(contextName string, cluster *cloud.ClusterInfo) (bool, error) {
	return m.entries[contextName] == cluster.Endpoint, nil
}

func (m *memKubeconfig) WriteEntry(contextName string, cluster *cloud.ClusterInfo) error {
	m.entries[contextName] = cluster.Endpoint
	m.writes++
	return nil
}

// recorder captures observer events in order.
type recorder struct {
	started   []Action
	completed []Outcome
}

func (r *recorder) StepStarted(s Step)      { r.started = append(r.started, s.Action) }
func (r *recorder) StepCompleted(o Outcome) { r.completed = append(r.completed, o) }

func newTestExecutor(fake *cloud.Fake, kube KubeconfigWriter, obs Observer) *Executor {
	opts := []ExecutorOption{WithPollInterval(time.Millisecond)}
	if kube != nil {
		opts = append(opts, WithKubeconfigWriter(kube))
	}
	if obs != nil {
		opts = append(opts, WithObserver(obs))
	}
	return NewExecutor(fake, logr.Discard(), opts...)
}

func TestExecuteFreshRun(t *testing.T) {
	fake := cloud.NewFake()
	kube := newMemKubeconfig()
	rec := &recorder{}
	ex := newTestExecutor(fake, kube, rec)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for _, o := range outcomes {
		assert.Equal(t, StatusSucceeded, o.Status, "step %s", o.Step.Action)
	}
	assert.Equal(t, 2, fake.Mutations())
	assert.Equal(t, 1, kube.writes)
	assert.Contains(t, fake.NodePools, "ml-serving/ct6e-standard-4t-2x2")

	require.Len(t, rec.started, 3)
	assert.Equal(t, []Action{ActionCreateCluster, ActionCreateNodePool, ActionWriteCredentials}, rec.started)
}

func TestExecuteSecondRunSkipsEverything(t *testing.T) {
	fake := cloud.NewFake()
	kube := newMemKubeconfig()
	ex := newTestExecutor(fake, kube, nil)
	plan := testPlan(t)

	_, err := ex.Execute(context.Background(), plan, false)
	require.NoError(t, err)
	before := fake.Mutations()

	outcomes, err := ex.Execute(context.Background(), plan, false)
	require.NoError(t, err)

	for _, o := range outcomes {
		assert.Equal(t, StatusSkippedAlreadySatisfied, o.Status, "step %s", o.Step.Action)
	}
	assert.Equal(t, before, fake.Mutations(), "second run must not mutate anything")
	assert.Equal(t, 1, kube.writes)
}

func TestExecuteDryRunNeverMutates(t *testing.T) {
	fake := cloud.NewFake()
	kube := newMemKubeconfig()
	ex := newTestExecutor(fake, kube, nil)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), true)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for _, o := range outcomes {
		assert.Equal(t, StatusPlanned, o.Status, "step %s", o.Step.Action)
		assert.Contains(t, o.Message, "would")
	}
	assert.Zero(t, fake.Mutations())
	assert.Zero(t, kube.writes)
}

func TestExecuteDryRunReportsSatisfiedSteps(t *testing.T) {
	fake := cloud.NewFake()
	ex := newTestExecutor(fake, newMemKubeconfig(), nil)
	plan := testPlan(t)

	// Converge for real once, then preview again.
	_, err := ex.Execute(context.Background(), plan, false)
	require.NoError(t, err)
	before := fake.Mutations()

	outcomes, err := ex.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	for _, o := range outcomes {
		assert.Equal(t, StatusSkippedAlreadySatisfied, o.Status, "step %s", o.Step.Action)
	}
	assert.Equal(t, before, fake.Mutations())
}

func TestExecuteHaltsAfterFailure(t *testing.T) {
	fake := cloud.NewFake()
	fake.Errs["create-node-pool"] = cloud.NewError(cloud.KindAccessDenied, "create node pool", "",
		errors.New("permission denied"))
	kube := newMemKubeconfig()
	ex := newTestExecutor(fake, kube, nil)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.Error(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, StatusSucceeded, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Equal(t, StatusPlanned, outcomes[2].Status, "dependent step must not run after a failure")
	assert.Zero(t, kube.writes)
}

func TestExecuteFailedOperationSurfaces(t *testing.T) {
	fake := cloud.NewFake()
	fake.FailOps["op-create-cluster-ml-serving"] = "resource exhausted in zone"
	ex := newTestExecutor(fake, newMemKubeconfig(), nil)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Message, "resource exhausted")
}

func TestExecuteDivergentPoolIsConflict(t *testing.T) {
	fake := cloud.NewFake()
	fake.Clusters["ml-serving"] = &cloud.ClusterInfo{Name: "ml-serving", Status: "RUNNING", Endpoint: "203.0.113.10"}
	fake.NodePools["ml-serving/ct6e-standard-4t-2x2"] = &cloud.NodePoolInfo{
		Name:        "ct6e-standard-4t-2x2",
		MachineType: "ct5lp-hightpu-4t", // someone created the pool with a different machine type
		TPUTopology: "2x2",
		NodeCount:   1,
	}
	ex := newTestExecutor(fake, newMemKubeconfig(), nil)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.True(t, cloud.IsConflict(outcomes[1].Err))
	assert.Contains(t, outcomes[1].Message, "machine type")
}

func TestExecuteClusterInErrorStateRefused(t *testing.T) {
	fake := cloud.NewFake()
	fake.Clusters["ml-serving"] = &cloud.ClusterInfo{Name: "ml-serving", Status: "ERROR"}
	ex := newTestExecutor(fake, newMemKubeconfig(), nil)

	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.True(t, cloud.IsConflict(outcomes[0].Err))
}

func TestExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := cloud.NewFake()
	ex := newTestExecutor(fake, newMemKubeconfig(), nil)

	outcomes, err := ex.Execute(ctx, testPlan(t), false)
	require.Error(t, err)
	assert.True(t, cloud.IsKind(err, cloud.KindTimeout))
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, StatusPlanned, o.Status)
	}
	assert.Zero(t, fake.Mutations())
}

// racingManager simulates a concurrent creator: CreateNodePool reports a
// conflict but the pool exists on the recheck.
type racingManager struct {
	*cloud.Fake
	raced bool
}

func (r *racingManager) CreateNodePool(ctx context.Context, project, location, cluster string, spec cloud.NodePoolSpec) (string, error) {
	if !r.raced {
		r.raced = true
		r.Fake.NodePools[cluster+"/"+spec.Name] = &cloud.NodePoolInfo{
			Name:        spec.Name,
			MachineType: spec.MachineType,
			TPUTopology: spec.TPUTopology,
			NodeCount:   spec.NodeCount,
		}
		return "", cloud.NewError(cloud.KindConflict, "create node pool", spec.Name,
			errors.New("already exists"))
	}
	return r.Fake.CreateNodePool(ctx, project, location, cluster, spec)
}

func TestExecuteConcurrentCreatorWins(t *testing.T) {
	fake := cloud.NewFake()
	fake.Clusters["ml-serving"] = &cloud.ClusterInfo{Name: "ml-serving", Status: "RUNNING", Endpoint: "203.0.113.10"}
	mgr := &racingManager{Fake: fake}

	ex := NewExecutor(mgr, logr.Discard(),
		WithPollInterval(time.Millisecond), WithKubeconfigWriter(newMemKubeconfig()))
	outcomes, err := ex.Execute(context.Background(), testPlan(t), false)
	require.NoError(t, err)
	assert.Equal(t, StatusSkippedAlreadySatisfied, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Message, "concurrently")
}
