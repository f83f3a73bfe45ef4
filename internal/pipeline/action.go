// Package pipeline runs the ordered, resumable action graph behind a
// markusmoss invocation. Actions declare their dependencies and required
// configuration keys; the executor derives the run order, skips work that
// already completed in an earlier run, and records durable completion
// markers so a run can be interrupted and resumed.
package pipeline

import (
	"context"
)

// Action is one unit of pipeline work.
type Action struct {
	// Name is the stable identifier used on the command line, in markers,
	// and in dependency declarations.
	Name string

	// DependsOn lists the names of actions that must have completed (in
	// this run or a previous one) before this action may run.
	DependsOn []string

	// RequiredKeys lists the configuration keys this action needs. The
	// executor verifies them before any action runs so an operator sees
	// every missing key at once instead of one failure per run.
	RequiredKeys []string

	// Run performs the work. It is only called after all dependencies
	// completed and all required keys were verified present.
	Run func(ctx context.Context) error
}

// Status describes where an action ended up within one executor pass.
type Status string

const (
	// StatusPending means the action has not been considered yet.
	StatusPending Status = "pending"
	// StatusRunning means the action is currently executing.
	StatusRunning Status = "running"
	// StatusRan means the action executed and completed in this pass.
	StatusRan Status = "ran"
	// StatusSkipped means a durable marker showed the action already
	// completed in an earlier run.
	StatusSkipped Status = "skipped"
	// StatusFailed means the action executed and returned an error.
	StatusFailed Status = "failed"
	// StatusBlocked means the action never ran because a dependency
	// failed or was itself blocked.
	StatusBlocked Status = "blocked"
)

// IsTerminal reports whether the status is a final outcome.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRan, StatusSkipped, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// Satisfied reports whether the action's outputs can be relied on by a
// dependent action.
func (s Status) Satisfied() bool {
	return s == StatusRan || s == StatusSkipped
}
