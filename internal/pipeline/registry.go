package pipeline

import (
	"fmt"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// Registry holds the declared action graph. Construction validates the
// graph once, so callers never see dependency errors at run time.
type Registry struct {
	actions []Action
	byName  map[string]int
}

// NewRegistry builds a Registry from actions in declaration order. It
// rejects duplicate names, dependencies on undeclared actions, and
// dependency cycles.
func NewRegistry(actions ...Action) (*Registry, error) {
	r := &Registry{
		actions: actions,
		byName:  make(map[string]int, len(actions)),
	}
	for i, a := range actions {
		if a.Name == "" {
			return nil, errors.NewValidationError("action with empty name").WithField("name")
		}
		if _, dup := r.byName[a.Name]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("duplicate action %q", a.Name)).WithField("name").WithValue(a.Name)
		}
		r.byName[a.Name] = i
	}
	for _, a := range actions {
		for _, dep := range a.DependsOn {
			if _, ok := r.byName[dep]; !ok {
				return nil, errors.NewValidationError(
					fmt.Sprintf("action %q depends on undeclared action %q", a.Name, dep))
			}
		}
	}
	if cycle := r.findCycle(); cycle != nil {
		return nil, errors.NewCyclicDependencyError(cycle)
	}
	return r, nil
}

// Get returns the action with the given name.
func (r *Registry) Get(name string) (Action, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Action{}, false
	}
	return r.actions[i], true
}

// Names returns all action names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.actions))
	for i, a := range r.actions {
		out[i] = a.Name
	}
	return out
}

// Plan resolves the requested action names into an execution order: the
// transitive dependency closure of the request, topologically sorted with
// declaration order breaking ties. An empty request plans every action.
func (r *Registry) Plan(requested []string) ([]Action, error) {
	if len(requested) == 0 {
		requested = r.Names()
	}

	selected := make(map[string]bool)
	var visit func(name string) error
	visit = func(name string) error {
		if selected[name] {
			return nil
		}
		i, ok := r.byName[name]
		if !ok {
			return errors.NewNotFoundError("action", name)
		}
		selected[name] = true
		for _, dep := range r.actions[i].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range requested {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	// Kahn's algorithm over the selected subgraph. The ready set is
	// scanned in declaration order, which makes the plan deterministic.
	indegree := make(map[string]int, len(selected))
	for name := range selected {
		indegree[name] = 0
	}
	for name := range selected {
		a := r.actions[r.byName[name]]
		for _, dep := range a.DependsOn {
			if selected[dep] {
				indegree[name]++
			}
		}
	}

	plan := make([]Action, 0, len(selected))
	done := make(map[string]bool, len(selected))
	for len(plan) < len(selected) {
		advanced := false
		for _, a := range r.actions {
			if !selected[a.Name] || done[a.Name] || indegree[a.Name] != 0 {
				continue
			}
			plan = append(plan, a)
			done[a.Name] = true
			advanced = true
			for name := range selected {
				dep := r.actions[r.byName[name]]
				for _, d := range dep.DependsOn {
					if d == a.Name {
						indegree[name]--
					}
				}
			}
		}
		if !advanced {
			// Unreachable once NewRegistry has vetted the graph.
			return nil, errors.ErrDependencyCycle
		}
	}
	return plan, nil
}

// findCycle returns the action names along a dependency cycle, or nil.
func (r *Registry) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	state := make(map[string]int, len(r.actions))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = inStack
		stack = append(stack, name)
		for _, dep := range r.actions[r.byName[name]].DependsOn {
			switch state[dep] {
			case inStack:
				// Slice the stack from the first occurrence of dep to
				// close the cycle.
				for i, n := range stack {
					if n == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = finished
		return nil
	}

	for _, a := range r.actions {
		if state[a.Name] == unvisited {
			if cycle := visit(a.Name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
