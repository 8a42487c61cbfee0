// Package verify polls deployed components until they are ready or a
// deadline passes. The deadline is absolute for the whole wait: probe
// retries never extend it, so a verification run has a known worst-case
// duration regardless of how the cluster behaves.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/accelctl/accelctl/internal/cloud"
)

// ComponentKind selects which readiness predicate applies to a component.
type ComponentKind string

const (
	// KindDeployment checks the Available condition and replica counts.
	KindDeployment ComponentKind = "deployment"
	// KindPods checks that all pods matching a label selector are Ready.
	KindPods ComponentKind = "pods"
	// KindService checks that the service has an assigned address.
	KindService ComponentKind = "service"
	// KindCustomResource checks a Ready condition on an arbitrary resource.
	KindCustomResource ComponentKind = "customresource"
)

// Component names one thing to verify. Selector applies to KindPods; the
// APIVersion/ResourceKind pair applies to KindCustomResource.
type Component struct {
	Kind      ComponentKind `json:"kind"`
	Namespace string        `json:"namespace"`
	Name      string        `json:"name,omitempty"`
	Selector  string        `json:"selector,omitempty"`

	APIVersion   string `json:"apiVersion,omitempty"`
	ResourceKind string `json:"resourceKind,omitempty"`
}

// String renders the component for log lines and health messages.
func (c Component) String() string {
	if c.Kind == KindPods {
		return fmt.Sprintf("pods %s [%s]", c.Namespace, c.Selector)
	}
	return fmt.Sprintf("%s %s/%s", c.Kind, c.Namespace, c.Name)
}

// State is a component's verification outcome.
type State string

const (
	// StatePending means the component has not yet reported ready.
	StatePending State = "Pending"
	// StateReady is terminal: once observed ready, a component stays ready
	// for the remainder of the run.
	StateReady State = "Ready"
	// StateDegraded means the deadline passed with the component observed
	// but not ready.
	StateDegraded State = "Degraded"
	// StateUnknown means the last probe itself failed, so no statement
	// about the component can be made.
	StateUnknown State = "Unknown"
)

// Health is the per-component record the verifier maintains and returns.
type Health struct {
	Component   Component `json:"component"`
	State       State     `json:"state"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
	Retries     int       `json:"retries"`
}

// Result is the full verification outcome, including partial per-component
// results when the run times out.
type Result struct {
	Healths  []Health      `json:"healths"`
	AllReady bool          `json:"allReady"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Probe answers a single readiness question. ok=false with a nil error is a
// definitive "not ready yet"; a non-nil error means the probe could not
// determine readiness at all.
type Probe interface {
	Check(ctx context.Context, c Component) (ok bool, msg string, err error)
}

// Verifier drives the poll loop.
type Verifier struct {
	probe    Probe
	log      logr.Logger
	interval time.Duration
	timeout  time.Duration
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.interval = d }
}

// WithTimeout sets the absolute wall-clock budget for the whole run.
func WithTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.timeout = d }
}

// New builds a verifier around a probe.
func New(probe Probe, log logr.Logger, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		probe:    probe,
		log:      log.WithName("verify"),
		interval: 10 * time.Second,
		timeout:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Wait polls every component until all are ready, the timeout passes, or ctx
// is cancelled. An empty component set returns immediately as all-ready.
// On timeout the result still carries every component's last observed state,
// and the returned error has kind Timeout.
func (v *Verifier) Wait(ctx context.Context, components []Component) (*Result, error) {
	start := time.Now()
	result := &Result{AllReady: true}
	if len(components) == 0 {
		return result, nil
	}

	result.AllReady = false
	result.Healths = make([]Health, len(components))
	for i, c := range components {
		result.Healths[i] = Health{Component: c, State: StatePending}
	}

	deadline := time.NewTimer(v.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		if v.probeAll(ctx, result) {
			result.AllReady = true
			result.Elapsed = time.Since(start)
			return result, nil
		}

		select {
		case <-ctx.Done():
			v.finalize(result, "verification cancelled")
			result.Elapsed = time.Since(start)
			return result, cloud.NewError(cloud.KindTimeout, "verify", "", ctx.Err())
		case <-deadline.C:
			v.finalize(result, "not ready before the deadline")
			result.Elapsed = time.Since(start)
			return result, cloud.NewError(cloud.KindTimeout, "verify", "",
				fmt.Errorf("%d of %d components not ready after %s",
					notReadyCount(result), len(components), v.timeout))
		case <-ticker.C:
		}
	}
}

// probeAll checks every non-ready component once and reports whether all
// components are now ready.
func (v *Verifier) probeAll(ctx context.Context, result *Result) bool {
	allReady := true
	for i := range result.Healths {
		h := &result.Healths[i]
		if h.State == StateReady {
			continue
		}
		if h.LastChecked != (time.Time{}) {
			h.Retries++
		}

		ok, msg, err := v.probe.Check(ctx, h.Component)
		h.LastChecked = time.Now()
		switch {
		case err != nil:
			h.State = StateUnknown
			h.Message = err.Error()
			allReady = false
		case ok:
			h.State = StateReady
			h.Message = msg
		default:
			h.State = StatePending
			h.Message = msg
			allReady = false
		}
		v.log.V(1).Info("probed component",
			"component", h.Component.String(), "state", string(h.State), "detail", h.Message)
	}
	return allReady
}

// finalize converts still-pending components to Degraded. Unknown stays
// Unknown: the probe never gave an observation to degrade from.
func (v *Verifier) finalize(result *Result, reason string) {
	for i := range result.Healths {
		h := &result.Healths[i]
		if h.State == StatePending {
			h.State = StateDegraded
			if h.Message != "" {
				h.Message = reason + ": " + h.Message
			} else {
				h.Message = reason
			}
		}
	}
}

func notReadyCount(result *Result) int {
	n := 0
	for _, h := range result.Healths {
		if h.State != StateReady {
			n++
		}
	}
	return n
}
