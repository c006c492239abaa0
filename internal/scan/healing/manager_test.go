package healing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

type fakeStarter struct {
	paths []string
	err   error
}

func (s *fakeStarter) Start(statePath string) error {
	if s.err != nil {
		return s.err
	}
	s.paths = append(s.paths, statePath)
	return nil
}

func validIndexState() *domain.HealState {
	return &domain.HealState{
		StateID:    "state-1",
		RunID:      "run1",
		Generation: 1,
		Shape:      domain.ResumeShapeIndex,
		Phase:      domain.PhaseEscalating,
		CreatedAt:  time.Now().UTC(),
		Index: &domain.IndexResume{
			WorkFile: "/state/run1.work.001.json",
			Accepted: []string{"a"},
		},
	}
}

func newTestManager(t *testing.T, starter Starter) (*Manager, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return NewManager(st, starter), st
}

func TestHealWritesOneStateAndStartsOneWorker(t *testing.T) {
	starter := &fakeStarter{}
	m, st := newTestManager(t, starter)

	if err := m.Heal(context.Background(), validIndexState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(starter.paths) != 1 {
		t.Fatalf("expected exactly one worker start, got %d", len(starter.paths))
	}

	var persisted domain.HealState
	if err := store.ReadJSONFile(starter.paths[0], &persisted); err != nil {
		t.Fatalf("worker was pointed at an unreadable state file: %v", err)
	}
	if persisted.RunID != "run1" || persisted.Generation != 1 {
		t.Errorf("unexpected persisted state: %+v", persisted)
	}

	names, _ := st.List("run1.heal.*.json")
	if len(names) != 1 {
		t.Errorf("expected exactly one heal state on disk, got %v", names)
	}
}

func TestHealRejectsInvalidState(t *testing.T) {
	starter := &fakeStarter{}
	m, st := newTestManager(t, starter)

	state := validIndexState()
	state.Batch = &domain.BatchResume{} // shape tag says index

	if err := m.Heal(context.Background(), state); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if len(starter.paths) != 0 {
		t.Error("an invalid state must never start a worker")
	}
	names, _ := st.List("run1.heal.*.json")
	if len(names) != 0 {
		t.Errorf("an invalid state must never be persisted, got %v", names)
	}
}

func TestHealPropagatesStartFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("fork failed")}
	m, _ := newTestManager(t, starter)

	if err := m.Heal(context.Background(), validIndexState()); err == nil {
		t.Fatal("expected error when the worker cannot start")
	}
}
