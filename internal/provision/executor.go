package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/accelctl/accelctl/internal/cloud"
)

// Observer receives step lifecycle events as execution progresses. The CLI
// plugs in a console renderer; tests plug in a recorder.
type Observer interface {
	StepStarted(step Step)
	StepCompleted(outcome Outcome)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) StepStarted(Step)      {}
func (NopObserver) StepCompleted(Outcome) {}

// KubeconfigWriter manages the local kubeconfig entry for a cluster.
type KubeconfigWriter interface {
	// HasEntry reports whether an up-to-date entry for the cluster exists.
	HasEntry(contextName string, cluster *cloud.ClusterInfo) (bool, error)
	// WriteEntry adds or replaces the cluster's entry.
	WriteEntry(contextName string, cluster *cloud.ClusterInfo) error
}

// Outcome records one step's terminal state. Err is omitted from JSON; the
// Message carries the operator-facing rendering.
type Outcome struct {
	Step     Step          `json:"step"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Executor walks a plan step by step against the cluster manager. It is
// stateless between runs; idempotency comes from the live existence check
// before each step, never from recorded history.
type Executor struct {
	cm      cloud.ClusterManager
	kube    KubeconfigWriter
	obs     Observer
	log     logr.Logger
	poll    time.Duration
	opGrace time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver attaches a progress observer.
func WithObserver(obs Observer) ExecutorOption {
	return func(e *Executor) { e.obs = obs }
}

// WithKubeconfigWriter enables the write-credentials step. Without one the
// step degrades to best-effort skip.
func WithKubeconfigWriter(w KubeconfigWriter) ExecutorOption {
	return func(e *Executor) { e.kube = w }
}

// WithPollInterval overrides the operation poll cadence, mainly for tests.
func WithPollInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.poll = d }
}

// WithOperationGrace bounds how long a single create operation may run
// beyond its step estimate before the wait is abandoned.
func WithOperationGrace(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.opGrace = d }
}

// NewExecutor builds an executor around a cluster manager.
func NewExecutor(cm cloud.ClusterManager, log logr.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		cm:      cm,
		obs:     NopObserver{},
		log:     log.WithName("provision"),
		poll:    10 * time.Second,
		opGrace: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the plan. In dry-run mode no mutating call is ever issued;
// each step is resolved to either SkippedAlreadySatisfied or left Planned
// with a "would create" message. In real mode a failed step halts execution
// and every unreached step stays Planned. The returned error is non-nil iff
// at least one step failed or the context expired mid-plan.
func (e *Executor) Execute(ctx context.Context, plan *Plan, dryRun bool) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(plan.Steps))
	var halted error

	for i, step := range plan.Steps {
		if halted != nil || ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{
				Step:    step,
				Status:  StatusPlanned,
				Message: "not executed: a prior step failed or the run was cancelled",
			})
			continue
		}

		e.obs.StepStarted(step)
		start := time.Now()
		outcome := e.runStep(ctx, plan, step, dryRun)
		outcome.Duration = time.Since(start)
		e.obs.StepCompleted(outcome)
		outcomes = append(outcomes, outcome)

		e.log.V(1).Info("step finished",
			"action", string(step.Action), "target", step.Target,
			"status", string(outcome.Status), "elapsed", outcome.Duration.String())

		if outcome.Status == StatusFailed && !step.BestEffort {
			halted = fmt.Errorf("step %d (%s %s): %w", i+1, step.Action, step.Target, outcome.Err)
		}
	}

	if halted != nil {
		return outcomes, halted
	}
	if err := ctx.Err(); err != nil {
		return outcomes, cloud.NewError(cloud.KindTimeout, "execute plan", plan.Cluster, err)
	}
	return outcomes, nil
}

func (e *Executor) runStep(ctx context.Context, plan *Plan, step Step, dryRun bool) Outcome {
	satisfied, conflict, err := e.checkStep(ctx, plan, step)
	switch {
	case err != nil:
		return Outcome{Step: step, Status: StatusFailed, Message: err.Error(), Err: err}
	case conflict != nil:
		return Outcome{Step: step, Status: StatusFailed, Message: conflict.Error(), Err: conflict}
	case satisfied:
		return Outcome{Step: step, Status: StatusSkippedAlreadySatisfied,
			Message: fmt.Sprintf("%s already in desired state", step.Target)}
	}

	if dryRun {
		return Outcome{Step: step, Status: StatusPlanned,
			Message: fmt.Sprintf("would %s %s (est. %s)", step.Action, step.Target, step.EstimatedDuration)}
	}

	if err := e.applyStep(ctx, plan, step); err != nil {
		// A concurrent creator winning the race is success for us: the
		// resource now exists. Anything else is a real failure.
		if cloud.IsConflict(err) {
			if ok, _, recheck := e.checkStep(ctx, plan, step); recheck == nil && ok {
				return Outcome{Step: step, Status: StatusSkippedAlreadySatisfied,
					Message: fmt.Sprintf("%s was created concurrently", step.Target)}
			}
		}
		return Outcome{Step: step, Status: StatusFailed, Message: err.Error(), Err: err}
	}
	return Outcome{Step: step, Status: StatusSucceeded,
		Message: fmt.Sprintf("%s created", step.Target)}
}

// checkStep probes live state. It returns satisfied=true when the target
// already matches the plan, a conflict error when the target exists but
// diverges, or a hard error when the probe itself failed definitively.
func (e *Executor) checkStep(ctx context.Context, plan *Plan, step Step) (satisfied bool, conflict, err error) {
	switch step.Action {
	case ActionCreateCluster:
		info, getErr := e.cm.GetCluster(ctx, plan.Project, plan.Location, plan.Cluster)
		if getErr != nil {
			if cloud.IsNotFound(getErr) {
				return false, nil, nil
			}
			return false, nil, getErr
		}
		if !info.Running() {
			return false, cloud.NewError(cloud.KindConflict, "check cluster", plan.Cluster,
				fmt.Errorf("cluster exists in state %s, refusing to adopt it", info.Status)), nil
		}
		return true, nil, nil

	case ActionCreateNodePool:
		info, getErr := e.cm.GetNodePool(ctx, plan.Project, plan.Location, plan.Cluster, plan.NodePoolSpec.Name)
		if getErr != nil {
			if cloud.IsNotFound(getErr) {
				return false, nil, nil
			}
			return false, nil, getErr
		}
		if mismatch := poolMismatch(info, plan.NodePoolSpec); mismatch != "" {
			return false, cloud.NewError(cloud.KindConflict, "check node pool", plan.NodePoolSpec.Name,
				fmt.Errorf("node pool exists with different %s", mismatch)), nil
		}
		return true, nil, nil

	case ActionWriteCredentials:
		if e.kube == nil {
			return true, nil, nil // nothing to write, nothing to do
		}
		info, getErr := e.cm.GetCluster(ctx, plan.Project, plan.Location, plan.Cluster)
		if getErr != nil {
			if cloud.IsNotFound(getErr) {
				return false, nil, nil // entry written after the cluster appears
			}
			return false, nil, getErr
		}
		has, hasErr := e.kube.HasEntry(step.IdempotencyKey, info)
		if hasErr != nil {
			return false, nil, hasErr
		}
		return has, nil, nil

	default:
		return false, nil, cloud.NewError(cloud.KindInvalidRequest, "check step", step.Target,
			fmt.Errorf("unknown action %q", step.Action))
	}
}

func (e *Executor) applyStep(ctx context.Context, plan *Plan, step Step) error {
	switch step.Action {
	case ActionCreateCluster:
		opName, err := e.cm.CreateCluster(ctx, plan.Project, plan.Location, plan.ClusterSpec)
		if err != nil {
			return err
		}
		return e.waitOp(ctx, plan, step, opName)

	case ActionCreateNodePool:
		opName, err := e.cm.CreateNodePool(ctx, plan.Project, plan.Location, plan.Cluster, plan.NodePoolSpec)
		if err != nil {
			return err
		}
		return e.waitOp(ctx, plan, step, opName)

	case ActionWriteCredentials:
		info, err := e.cm.GetCluster(ctx, plan.Project, plan.Location, plan.Cluster)
		if err != nil {
			return err
		}
		return e.kube.WriteEntry(step.IdempotencyKey, info)

	default:
		return cloud.NewError(cloud.KindInvalidRequest, "apply step", step.Target,
			fmt.Errorf("unknown action %q", step.Action))
	}
}

func (e *Executor) waitOp(ctx context.Context, plan *Plan, step Step, opName string) error {
	waitCtx, cancel := context.WithTimeout(ctx, step.EstimatedDuration+e.opGrace)
	defer cancel()
	return e.cm.WaitOperation(waitCtx, plan.Project, plan.Location, opName, e.poll)
}

// poolMismatch names the first field where observed state diverges from the
// spec, or "" when they agree.
func poolMismatch(info *cloud.NodePoolInfo, spec cloud.NodePoolSpec) string {
	switch {
	case info.MachineType != spec.MachineType:
		return fmt.Sprintf("machine type (%s vs requested %s)", info.MachineType, spec.MachineType)
	case info.TPUTopology != spec.TPUTopology:
		return fmt.Sprintf("topology (%s vs requested %s)", info.TPUTopology, spec.TPUTopology)
	case spec.AcceleratorType != "" && info.AcceleratorType != spec.AcceleratorType:
		return fmt.Sprintf("accelerator (%s vs requested %s)", info.AcceleratorType, spec.AcceleratorType)
	case info.NodeCount != spec.NodeCount:
		return fmt.Sprintf("node count (%d vs requested %d)", info.NodeCount, spec.NodeCount)
	default:
		return ""
	}
}
