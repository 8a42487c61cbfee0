package handlers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accelctl/accelctl/internal/cloud"
	"github.com/accelctl/accelctl/internal/preflight"
	"github.com/accelctl/accelctl/internal/provision"
	"github.com/accelctl/accelctl/internal/verify"
)

// testEnv wires an Env around the in-memory cloud fake.
func testEnv(fake *cloud.Fake) (*Env, *bytes.Buffer) {
	var buf bytes.Buffer
	env := &Env{
		Out: &buf,
		Log: logr.Discard(),
		NewClient: func(context.Context, string, logr.Logger) (cloud.Client, error) {
			return fake, nil
		},
		NewSecretChecker: func(string) (preflight.SecretChecker, error) { return nil, nil },
		NewProbe: func(string) (verify.Probe, error) {
			return probeFunc(func(context.Context, verify.Component) (bool, string, error) {
				return true, "ready", nil
			}), nil
		},
		NewKubeconfigWriter: func(string) provision.KubeconfigWriter { return &noopKubeconfig{} },
	}
	return env, &buf
}

type probeFunc func(ctx context.Context, c verify.Component) (bool, string, error)

func (f probeFunc) Check(ctx context.Context, c verify.Component) (bool, string, error) {
	return f(ctx, c)
}

type noopKubeconfig struct{ writes int }

func (n *noopKubeconfig) HasEntry(string, *cloud.ClusterInfo) (bool, error) { return n.writes > 0, nil }
func (n *noopKubeconfig) WriteEntry(string, *cloud.ClusterInfo) error {
	n.writes++
	return nil
}

func writeRequestFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "request.yaml"), []byte(content), 0o600))
}

func tpuOpts() *RequestOptions {
	return &RequestOptions{
		Project:     "proj-1",
		Zone:        "us-central1-b",
		Cluster:     "ml-serving",
		Accelerator: "tpu",
		MachineType: "ct6e-standard-4t",
		Topology:    "2x2",
		Count:       4,
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitPass, ExitCode(nil))
	assert.Equal(t, ExitFail, ExitCode(failf("boom")))
	assert.Equal(t, ExitUsage, ExitCode(usagef("bad flag")))
	assert.Equal(t, ExitUnavailable, ExitCode(unavailablef("api down")))
	assert.Equal(t, ExitUsage, ExitCode(errors.New("cobra flag error")),
		"unclassified errors come from argument parsing")
}

func TestResolveFlagsOnly(t *testing.T) {
	cfg, err := tpuOpts().Resolve()
	require.NoError(t, err)
	assert.Equal(t, "us-central1", cfg.Region)
	assert.Equal(t, 1, cfg.Accelerator.Replicas, "defaults applied to flag-built config")
	assert.Equal(t, int64(4), cfg.Request().TotalChips())
}

func TestResolveRejectsIncomplete(t *testing.T) {
	opts := tpuOpts()
	opts.Cluster = ""
	_, err := opts.Resolve()
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestCheckNodePoolValid(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	require.NoError(t, CheckNodePool(context.Background(), env, tpuOpts()))
	assert.Contains(t, buf.String(), "4 chips per replica across 1 host(s)")
}

func TestCheckNodePoolInvalidListsTopologies(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	opts := tpuOpts()
	opts.Topology = "3x3"
	opts.Count = 9

	err := CheckNodePool(context.Background(), env, opts)
	require.Error(t, err)
	assert.Equal(t, ExitFail, ExitCode(err))
	assert.Contains(t, buf.String(), "valid topologies for ct6e-standard-4t")
	assert.Contains(t, buf.String(), "2x2")
}

func TestCheckZoneAvailable(t *testing.T) {
	fake := cloud.NewFake()
	fake.Zones["ct6e-standard-4t"] = []string{"us-central1-b"}
	env, buf := testEnv(fake)

	require.NoError(t, CheckZone(context.Background(), env, tpuOpts()))
	assert.Contains(t, buf.String(), "us-central1-b offers ct6e-standard-4t")
}

func TestCheckZoneUnavailableListsAlternatives(t *testing.T) {
	fake := cloud.NewFake()
	fake.Zones["ct6e-standard-4t"] = []string{"us-east5-a"}
	env, buf := testEnv(fake)

	err := CheckZone(context.Background(), env, tpuOpts())
	require.Error(t, err)
	assert.Equal(t, ExitFail, ExitCode(err))
	assert.Contains(t, buf.String(), "us-east5-a")
}

func TestCheckZoneTransientIsUnavailable(t *testing.T) {
	fake := cloud.NewFake()
	fake.Errs["zone-capability"] = cloud.NewError(cloud.KindTransient, "list zones", "",
		errors.New("503"))
	env, _ := testEnv(fake)

	err := CheckZone(context.Background(), env, tpuOpts())
	require.Error(t, err)
	assert.Equal(t, ExitUnavailable, ExitCode(err))
}

func TestCreateClusterDryRunDoesNotMutate(t *testing.T) {
	fake := cloud.NewFake()
	env, buf := testEnv(fake)
	opts := &CreateOptions{RequestOptions: *tpuOpts(), DryRun: true, SkipPreflight: true}

	require.NoError(t, CreateCluster(context.Background(), env, opts))
	assert.Zero(t, fake.Mutations())
	assert.Contains(t, buf.String(), "would create-cluster")
}

func TestCreateClusterProvisions(t *testing.T) {
	fake := cloud.NewFake()
	env, buf := testEnv(fake)
	opts := &CreateOptions{RequestOptions: *tpuOpts(), SkipPreflight: true}

	require.NoError(t, CreateCluster(context.Background(), env, opts))
	assert.Equal(t, 2, fake.Mutations())
	assert.Contains(t, fake.Clusters, "ml-serving")
	assert.Contains(t, buf.String(), "create-node-pool")
}

func TestCreateClusterFailureExitCode(t *testing.T) {
	fake := cloud.NewFake()
	fake.Errs["create-cluster"] = cloud.NewError(cloud.KindAccessDenied, "create cluster", "",
		errors.New("permission denied"))
	env, _ := testEnv(fake)
	opts := &CreateOptions{RequestOptions: *tpuOpts(), SkipPreflight: true}

	err := CreateCluster(context.Background(), env, opts)
	require.Error(t, err)
	assert.Equal(t, ExitFail, ExitCode(err))
}

func TestVerifyAllReady(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	opts := tpuOpts()

	dir := t.TempDir()
	writeRequestFile(t, dir, `
project: proj-1
zone: us-central1-b
cluster: ml-serving
accelerator:
  kind: tpu
  machineType: ct6e-standard-4t
  count: 4
  topology: 2x2
verify:
  interval: 5ms
  timeout: 1s
  components:
    - kind: deployment
      namespace: serving
      name: model-server
`)
	opts.ConfigPath = dir + "/request.yaml"

	require.NoError(t, Verify(context.Background(), env, opts))
	assert.Contains(t, buf.String(), "all components ready")
}

func TestVerifyTimeoutFails(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	env.NewProbe = func(string) (verify.Probe, error) {
		return probeFunc(func(context.Context, verify.Component) (bool, string, error) {
			return false, "still rolling out", nil
		}), nil
	}

	dir := t.TempDir()
	writeRequestFile(t, dir, `
project: proj-1
zone: us-central1-b
cluster: ml-serving
accelerator:
  kind: tpu
  machineType: ct6e-standard-4t
  count: 4
  topology: 2x2
verify:
  interval: 5ms
  timeout: 30ms
  components:
    - kind: pods
      namespace: serving
      selector: app=worker
`)
	opts := tpuOpts()
	opts.ConfigPath = dir + "/request.yaml"

	err := Verify(context.Background(), env, opts)
	require.Error(t, err)
	assert.Equal(t, ExitFail, ExitCode(err))
	assert.Contains(t, buf.String(), "verification incomplete")
}

func TestEstimateCost(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	opts := &CostOptions{RequestOptions: *tpuOpts()}

	require.NoError(t, EstimateCost(context.Background(), env, opts))
	assert.Contains(t, buf.String(), "Accelerator Cost Estimate")
	assert.Contains(t, buf.String(), "ct6e-standard-4t")
}

func TestEstimateCostCompare(t *testing.T) {
	env, buf := testEnv(cloud.NewFake())
	opts := &CostOptions{RequestOptions: *tpuOpts(), Compare: true}

	require.NoError(t, EstimateCost(context.Background(), env, opts))
	assert.Contains(t, buf.String(), "4x4", "comparison covers the other topologies")
}
