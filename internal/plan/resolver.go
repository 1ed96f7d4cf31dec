package plan

import "fmt"

// ValidationError reports a structural problem found by Validate: an
// unknown dependency reference, a self-loop, or a cycle.
type ValidationError struct {
	SubtaskID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plan: subtask %s: %s", e.SubtaskID, e.Reason)
}

// DependencyResolver is a pure, stateless function set over an
// ExecutionPlan's subtask graph. It holds no state of its own; every method
// takes the plan it operates on.
type DependencyResolver struct{}

// NewDependencyResolver returns a DependencyResolver. It has no fields; the
// constructor exists so callers can inject it like any other collaborator.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// ReadySet returns the PENDING subtasks whose every dependency is DONE.
// RUNNING subtasks are never included.
func (DependencyResolver) ReadySet(p *ExecutionPlan) []*Subtask {
	done := make(map[string]bool, len(p.Subtasks))
	for _, s := range p.Subtasks {
		if s.Status == SubtaskDone {
			done[s.ID] = true
		}
	}

	var ready []*Subtask
	for _, s := range p.Subtasks {
		if s.Status != SubtaskPending {
			continue
		}
		allDone := true
		for _, dep := range s.Dependencies {
			if !done[dep] {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, s)
		}
	}
	return ready
}

// NextSubtask returns the single next subtask the engine should run, or nil
// if none is ready. The plan is strictly sequential: only the first ready
// subtask (in declaration order) is returned.
func (r DependencyResolver) NextSubtask(p *ExecutionPlan) *Subtask {
	ready := r.ReadySet(p)
	if len(ready) == 0 {
		return nil
	}
	return ready[0]
}

// Validate checks the subtask graph for unknown dependency references,
// self-loops, and cycles, returning every error found (not just the first).
func (DependencyResolver) Validate(p *ExecutionPlan) []error {
	var errs []error

	ids := make(map[string]bool, len(p.Subtasks))
	for _, s := range p.Subtasks {
		ids[s.ID] = true
	}

	for _, s := range p.Subtasks {
		for _, dep := range s.Dependencies {
			if dep == s.ID {
				errs = append(errs, &ValidationError{SubtaskID: s.ID, Reason: "depends on itself"})
				continue
			}
			if !ids[dep] {
				errs = append(errs, &ValidationError{SubtaskID: s.ID, Reason: fmt.Sprintf("references unknown subtask %q", dep)})
			}
		}
	}

	// Self-loops are reported above; search for longer cycles without them.
	noSelf := &ExecutionPlan{Subtasks: make([]*Subtask, 0, len(p.Subtasks))}
	for _, s := range p.Subtasks {
		c := *s
		c.Dependencies = nil
		for _, dep := range s.Dependencies {
			if dep != s.ID {
				c.Dependencies = append(c.Dependencies, dep)
			}
		}
		noSelf.Subtasks = append(noSelf.Subtasks, &c)
	}
	if cycle := findCycle(noSelf); cycle != nil {
		errs = append(errs, &ValidationError{
			SubtaskID: cycle[0],
			Reason:    fmt.Sprintf("participates in a dependency cycle: %v", cycle),
		})
	}

	return errs
}

// color tracks DFS visitation state for cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully explored
)

// findCycle runs DFS three-coloring over the dependency graph and returns
// the back-edge path if a cycle exists, or nil if the graph is acyclic.
func findCycle(p *ExecutionPlan) []string {
	colors := make(map[string]color, len(p.Subtasks))
	deps := make(map[string][]string, len(p.Subtasks))
	for _, s := range p.Subtasks {
		colors[s.ID] = white
		deps[s.ID] = s.Dependencies
	}

	var stack []string
	var cyclePath []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		stack = append(stack, id)

		for _, dep := range deps[id] {
			switch colors[dep] {
			case gray:
				// Found the back edge; record the path from dep to id.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				cyclePath = append([]string{}, stack[start:]...)
				cyclePath = append(cyclePath, dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = black
		return false
	}

	for _, s := range p.Subtasks {
		if colors[s.ID] == white {
			if visit(s.ID) {
				return cyclePath
			}
		}
	}
	return nil
}

// ExecutionLevels groups subtasks into topological layers: level 0 has no
// dependencies, level k depends only on subtasks at level < k. Returns an
// error if the graph is cyclic.
func (DependencyResolver) ExecutionLevels(p *ExecutionPlan) ([][]*Subtask, error) {
	if cycle := findCycle(p); cycle != nil {
		return nil, &ValidationError{SubtaskID: cycle[0], Reason: fmt.Sprintf("cannot level a cyclic graph: %v", cycle)}
	}

	byID := make(map[string]*Subtask, len(p.Subtasks))
	for _, s := range p.Subtasks {
		byID[s.ID] = s
	}

	level := make(map[string]int, len(p.Subtasks))
	var assign func(id string) int
	assign = func(id string) int {
		if lvl, ok := level[id]; ok {
			return lvl
		}
		s := byID[id]
		maxDep := -1
		for _, dep := range s.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue
			}
			if l := assign(dep); l > maxDep {
				maxDep = l
			}
		}
		lvl := maxDep + 1
		level[id] = lvl
		return lvl
	}

	maxLevel := -1
	for _, s := range p.Subtasks {
		if l := assign(s.ID); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]*Subtask, maxLevel+1)
	for _, s := range p.Subtasks {
		lvl := level[s.ID]
		levels[lvl] = append(levels[lvl], s)
	}
	return levels, nil
}
