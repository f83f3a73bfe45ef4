package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
)

// KeyChecker reports whether a configuration key has a usable value.
type KeyChecker func(key string) bool

// Options configures an Executor.
type Options struct {
	// Force re-runs every action in the selected set (requested actions
	// plus their transitive dependencies) even when a completion marker
	// exists. Actions outside the selected set are untouched.
	Force bool

	// RunID tags logs and markers for this pass. Generated when empty.
	RunID string

	// Keys reports configuration-key presence. When nil, every key is
	// treated as present.
	Keys KeyChecker

	Logger *logging.Logger
}

// Executor runs a plan derived from the registry, honoring completion
// markers so repeated invocations only do outstanding work.
type Executor struct {
	registry *Registry
	markers  *MarkerStore
	opts     Options
	log      *logging.Logger
}

// NewExecutor returns an executor over the given registry and marker store.
func NewExecutor(registry *Registry, markers *MarkerStore, opts Options) *Executor {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	return &Executor{
		registry: registry,
		markers:  markers,
		opts:     opts,
		log:      log.WithRun(opts.RunID),
	}
}

// Result reports the outcome of one executor pass.
type Result struct {
	// Order lists the planned action names in execution order.
	Order []string
	// Statuses maps each planned action to its status when the pass
	// ended; actions never reached after a failure stay StatusPending.
	Statuses map[string]Status
}

// Execute plans and runs the requested actions. Configuration keys for
// every action that would run are verified up front, before any side
// effect, so the operator sees all missing keys in a single failure.
//
// The pass halts at the first failing action: its dependents are
// reported as StatusBlocked, other unreached actions stay StatusPending,
// and completed actions keep their markers so a corrected rerun resumes
// where this one stopped.
func (e *Executor) Execute(ctx context.Context, requested []string) (*Result, error) {
	plan, err := e.registry.Plan(requested)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Order:    make([]string, len(plan)),
		Statuses: make(map[string]Status, len(plan)),
	}
	for i, a := range plan {
		res.Order[i] = a.Name
		res.Statuses[a.Name] = StatusPending
	}

	willRun := make(map[string]bool, len(plan))
	for _, a := range plan {
		if e.opts.Force {
			willRun[a.Name] = true
			continue
		}
		_, done, err := e.markers.Load(a.Name)
		if err != nil {
			return res, err
		}
		willRun[a.Name] = !done
	}

	if err := e.preflight(plan, willRun); err != nil {
		return res, err
	}

	for _, a := range plan {
		log := e.log.WithAction(a.Name)

		if !willRun[a.Name] {
			res.Statuses[a.Name] = StatusSkipped
			log.Debug("action already complete")
			continue
		}

		res.Statuses[a.Name] = StatusRunning
		log.Info("action started")
		start := time.Now()

		if err := a.Run(ctx); err != nil {
			res.Statuses[a.Name] = StatusFailed
			log.Error("action failed", "error", err.Error())
			e.blockDependents(plan, res.Statuses)
			return res, errors.Wrapf(errors.Join(errors.ErrActionFailed, err), "action %s", a.Name)
		}

		if err := e.markers.Write(Marker{
			Action:      a.Name,
			RunID:       e.opts.RunID,
			CompletedAt: time.Now().UTC(),
		}); err != nil {
			res.Statuses[a.Name] = StatusFailed
			e.blockDependents(plan, res.Statuses)
			return res, err
		}
		res.Statuses[a.Name] = StatusRan
		log.Info("action complete", "elapsed", time.Since(start).String())
	}

	return res, nil
}

// preflight verifies configuration keys for every action that will run.
func (e *Executor) preflight(plan []Action, willRun map[string]bool) error {
	if e.opts.Keys == nil {
		return nil
	}
	var errs []error
	for _, a := range plan {
		if !willRun[a.Name] {
			continue
		}
		var missing []string
		for _, key := range a.RequiredKeys {
			if !e.opts.Keys(key) {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, errors.NewMissingConfigurationError(a.Name, missing))
		}
	}
	return errors.Join(errs...)
}

// blockDependents marks every pending action downstream of a failed one
// as blocked. Plan order is topological, so one pass propagates through
// transitive dependents; unreached actions with no failed ancestry stay
// pending.
func (e *Executor) blockDependents(plan []Action, statuses map[string]Status) {
	for _, a := range plan {
		if statuses[a.Name] != StatusPending {
			continue
		}
		for _, dep := range a.DependsOn {
			if s := statuses[dep]; s == StatusFailed || s == StatusBlocked {
				statuses[a.Name] = StatusBlocked
				e.log.WithAction(a.Name).Warn("action blocked", "failed_dependency", dep)
				break
			}
		}
	}
}
