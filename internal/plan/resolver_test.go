package plan

import "testing"

func mustPlan(t *testing.T, goal string) *ExecutionPlan {
	t.Helper()
	p, err := New("plan-1", "conv-1", goal)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestReadySet_NoDependencies(t *testing.T) {
	p := mustPlan(t, "build a widget")
	p.AddSubtask(NewSubtask("a", "step a", "coder", nil))
	p.AddSubtask(NewSubtask("b", "step b", "coder", nil))

	r := NewDependencyResolver()
	ready := r.ReadySet(p)
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready subtasks, got %d", len(ready))
	}
}

func TestReadySet_WaitsOnDependency(t *testing.T) {
	p := mustPlan(t, "build a widget")
	p.AddSubtask(NewSubtask("a", "step a", "coder", nil))
	p.AddSubtask(NewSubtask("b", "step b", "coder", []string{"a"}))

	r := NewDependencyResolver()
	ready := r.ReadySet(p)
	if len(ready) != 1 || ready[0].ID != "a" {
		t.Fatalf("expected only a ready, got %v", ready)
	}

	st, _ := p.Subtask("a")
	st.Start()
	st.Complete("done")

	ready = r.ReadySet(p)
	if len(ready) != 1 || ready[0].ID != "b" {
		t.Fatalf("expected only b ready after a completes, got %v", ready)
	}
}

func TestValidate_SelfDependencyRejected(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", []string{"a"}))

	errs := NewDependencyResolver().Validate(p)
	if len(errs) != 1 {
		t.Fatalf("expected 1 validation error, got %d: %v", len(errs), errs)
	}
}

func TestValidate_TwoNodeCycleRejected(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", []string{"b"}))
	p.AddSubtask(NewSubtask("b", "step b", "coder", []string{"a"}))

	errs := NewDependencyResolver().Validate(p)
	found := false
	for _, e := range errs {
		if ve, ok := e.(*ValidationError); ok && ve.Reason != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cycle validation error, got %v", errs)
	}
}

func TestValidate_UnknownDependency(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", []string{"ghost"}))

	errs := NewDependencyResolver().Validate(p)
	if len(errs) != 1 {
		t.Fatalf("expected 1 validation error, got %d", len(errs))
	}
}

func TestExecutionLevels(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", nil))
	p.AddSubtask(NewSubtask("b", "step b", "coder", nil))
	p.AddSubtask(NewSubtask("c", "step c", "coder", []string{"a", "b"}))

	levels, err := NewDependencyResolver().ExecutionLevels(p)
	if err != nil {
		t.Fatalf("ExecutionLevels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if len(levels[0]) != 2 || len(levels[1]) != 1 {
		t.Fatalf("unexpected level shape: %v", levels)
	}
}

func TestExecutionLevels_CycleErrors(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", []string{"b"}))
	p.AddSubtask(NewSubtask("b", "step b", "coder", []string{"a"}))

	if _, err := NewDependencyResolver().ExecutionLevels(p); err == nil {
		t.Fatal("expected error for cyclic graph")
	}
}

func TestPlan_CannotApproveEmpty(t *testing.T) {
	p := mustPlan(t, "goal")
	if err := p.Approve(); err == nil {
		t.Fatal("expected error approving empty plan")
	}
}

func TestPlan_ArchitectCannotBeAssigned(t *testing.T) {
	p := mustPlan(t, "goal")
	if err := p.AddSubtask(NewSubtask("a", "plan it", "architect", nil)); err == nil {
		t.Fatal("expected error assigning architect to a subtask")
	}
}

func TestPlan_CancelIsTerminal(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", nil))
	p.Approve()
	p.StartExecution()
	if err := p.Cancel("user requested"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !p.Status.IsTerminal() {
		t.Fatal("expected CANCELLED to be terminal")
	}
}

func TestPlan_CannotCancelCompleted(t *testing.T) {
	p := mustPlan(t, "goal")
	p.AddSubtask(NewSubtask("a", "step a", "coder", nil))
	p.Approve()
	p.StartExecution()
	st, _ := p.Subtask("a")
	st.Start()
	st.Complete("done")
	if err := p.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := p.Cancel("too late"); err == nil {
		t.Fatal("expected error cancelling a completed plan")
	}
}
