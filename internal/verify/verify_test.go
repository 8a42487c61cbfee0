package verify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProbe returns ok once a component has been checked readyAfter
// times. Components in errs always return a probe error.
type scriptedProbe struct {
	mu         sync.Mutex
	calls      map[string]int
	readyAfter map[string]int
	errs       map[string]error
}

func newScriptedProbe() *scriptedProbe {
	return &scriptedProbe{
		calls:      make(map[string]int),
		readyAfter: make(map[string]int),
		errs:       make(map[string]error),
	}
}

func (p *scriptedProbe) Check(_ context.Context, c Component) (bool, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := c.String()
	p.calls[key]++
	if err := p.errs[key]; err != nil {
		return false, "", err
	}
	if p.calls[key] >= p.readyAfter[key] {
		return true, "ready", nil
	}
	return false, "still rolling out", nil
}

func (p *scriptedProbe) callCount(c Component) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[c.String()]
}

func fastVerifier(p Probe, timeout time.Duration) *Verifier {
	return New(p, logr.Discard(), WithInterval(5*time.Millisecond), WithTimeout(timeout))
}

func TestWaitEmptySetReturnsImmediately(t *testing.T) {
	probe := newScriptedProbe()
	v := fastVerifier(probe, time.Hour)

	start := time.Now()
	result, err := v.Wait(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.AllReady)
	assert.Empty(t, result.Healths)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitAllReadyAfterRetries(t *testing.T) {
	dep := Component{Kind: KindDeployment, Namespace: "serving", Name: "model-server"}
	svc := Component{Kind: KindService, Namespace: "serving", Name: "model-lb"}

	probe := newScriptedProbe()
	probe.readyAfter[dep.String()] = 1
	probe.readyAfter[svc.String()] = 3

	v := fastVerifier(probe, time.Minute)
	result, err := v.Wait(context.Background(), []Component{dep, svc})
	require.NoError(t, err)

	assert.True(t, result.AllReady)
	for _, h := range result.Healths {
		assert.Equal(t, StateReady, h.State, "component %s", h.Component)
	}
	// Ready components leave the poll set: the deployment must not be
	// re-probed while the service catches up.
	assert.Equal(t, 1, probe.callCount(dep))
	assert.Equal(t, 3, probe.callCount(svc))
	assert.Equal(t, 2, result.Healths[1].Retries)
}

func TestWaitTimeoutKeepsPartialResults(t *testing.T) {
	ready := Component{Kind: KindDeployment, Namespace: "serving", Name: "model-server"}
	stuck := Component{Kind: KindPods, Namespace: "serving", Selector: "app=worker"}
	broken := Component{Kind: KindService, Namespace: "serving", Name: "model-lb"}

	probe := newScriptedProbe()
	probe.readyAfter[ready.String()] = 1
	probe.readyAfter[stuck.String()] = 1 << 30
	probe.errs[broken.String()] = errors.New("connection refused")

	v := fastVerifier(probe, 40*time.Millisecond)

	start := time.Now()
	result, err := v.Wait(context.Background(), []Component{ready, stuck, broken})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "retries must not extend the deadline")

	assert.False(t, result.AllReady)
	require.Len(t, result.Healths, 3)
	assert.Equal(t, StateReady, result.Healths[0].State)
	assert.Equal(t, StateDegraded, result.Healths[1].State)
	assert.Contains(t, result.Healths[1].Message, "deadline")
	assert.Equal(t, StateUnknown, result.Healths[2].State)
	assert.Contains(t, result.Healths[2].Message, "connection refused")
	assert.Greater(t, result.Healths[1].Retries, 0)
}

func TestWaitCancelledContext(t *testing.T) {
	stuck := Component{Kind: KindPods, Namespace: "serving", Selector: "app=worker"}
	probe := newScriptedProbe()
	probe.readyAfter[stuck.String()] = 1 << 30

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	v := fastVerifier(probe, time.Hour)
	result, err := v.Wait(ctx, []Component{stuck})
	require.Error(t, err)
	assert.False(t, result.AllReady)
	assert.Equal(t, StateDegraded, result.Healths[0].State)
	assert.Contains(t, result.Healths[0].Message, "cancelled")
}

func TestComponentString(t *testing.T) {
	assert.Equal(t, "pods serving [app=worker]",
		Component{Kind: KindPods, Namespace: "serving", Selector: "app=worker"}.String())
	assert.Equal(t, "deployment serving/model-server",
		Component{Kind: KindDeployment, Namespace: "serving", Name: "model-server"}.String())
}
