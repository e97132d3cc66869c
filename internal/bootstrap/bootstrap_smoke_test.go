package bootstrap

import (
	"context"
	"os"
	"testing"
)

// chdirTemp keeps init-step side effects (log dir, sqlite file, output dirs)
// inside the test's temp directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:open",
		"cache:init",
		"pipeline:init",
		"delivery:init",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	chdirTemp(t)

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.cache == nil {
		t.Fatal("conversion cache is nil after init")
	}
	if state.optimizer == nil {
		t.Fatal("optimizer is nil after init")
	}
	if state.generator == nil {
		t.Fatal("responsive generator is nil after init")
	}
	if state.selector == nil {
		t.Fatal("delivery selector is nil after init")
	}
	if state.repo == nil {
		t.Fatal("result repository is nil while storage is enabled by default")
	}
	state.logger.Close()
}

func TestExecuteInitStepsRejectsUnmetDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "pipeline:init",
			DependsOn: []string{"logging:init-provider"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected unmet dependency error")
	}
}
