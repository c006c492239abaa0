package merge

import (
	"os"
	"testing"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

func newTestMerger(t *testing.T) (*Merger, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return New(st), st
}

func writeCheckpoint(t *testing.T, st store.Store, runID string, generation int, items []string) {
	t.Helper()
	name := domain.ResultsCheckpointName(runID, generation)
	if _, err := st.WriteJSON(name, domain.WorkList{RunID: runID, Items: items}); err != nil {
		t.Fatalf("failed to write checkpoint: %v", err)
	}
}

func TestMergeUnionsInGenerationOrder(t *testing.T) {
	m, st := newTestMerger(t)
	writeCheckpoint(t, st, "run1", 0, []string{"a", "b"})
	writeCheckpoint(t, st, "run1", 1, []string{"b", "c"})
	writeCheckpoint(t, st, "run1", 2, []string{"c", "d"})

	union, finalPath, err := m.Merge("run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "b", "c", "d"}
	if len(union) != len(want) {
		t.Fatalf("expected %v, got %v", want, union)
	}
	for i := range want {
		if union[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, union)
		}
	}

	var final domain.WorkList
	if err := store.ReadJSONFile(finalPath, &final); err != nil {
		t.Fatalf("final output unreadable: %v", err)
	}
	if final.RunID != "run1" || len(final.Items) != 4 {
		t.Errorf("unexpected final output: %+v", final)
	}
}

func TestMergeDeletesConsumedCheckpoints(t *testing.T) {
	m, st := newTestMerger(t)
	writeCheckpoint(t, st, "run1", 0, []string{"a"})
	writeCheckpoint(t, st, "run1", 1, []string{"b"})

	if _, _, err := m.Merge("run1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	left, err := st.List(domain.ResultsCheckpointPattern("run1"))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("expected consumed checkpoints deleted, found %v", left)
	}
	if _, err := os.Stat(st.Path(domain.FinalName("run1"))); err != nil {
		t.Errorf("final output missing: %v", err)
	}
}

func TestMergeIgnoresOtherRuns(t *testing.T) {
	m, st := newTestMerger(t)
	writeCheckpoint(t, st, "run1", 0, []string{"a"})
	writeCheckpoint(t, st, "run2", 0, []string{"x"})

	union, _, err := m.Merge("run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(union) != 1 || union[0] != "a" {
		t.Errorf("expected [a], got %v", union)
	}

	left, _ := st.List(domain.ResultsCheckpointPattern("run2"))
	if len(left) != 1 {
		t.Errorf("another run's checkpoints must survive, found %v", left)
	}
}

func TestMergeEmptyRun(t *testing.T) {
	m, _ := newTestMerger(t)

	union, finalPath, err := m.Merge("run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(union) != 0 {
		t.Errorf("expected empty union, got %v", union)
	}

	var final domain.WorkList
	if err := store.ReadJSONFile(finalPath, &final); err != nil {
		t.Fatalf("final output must exist even for an empty run: %v", err)
	}
}
