package processor

import (
	"fmt"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

// accumulator owns one generation's accepted results and their checkpoint
// file. Membership only grows within a generation; every addition persists.
type accumulator struct {
	store    store.Store
	name     string
	runID    string
	accepted []string

	processed int
	skipped   int
	failed    int
}

func newAccumulator(st store.Store, runID, name string, carried []string) *accumulator {
	return &accumulator{
		store:    st,
		name:     name,
		runID:    runID,
		accepted: append([]string(nil), carried...),
	}
}

// add appends an accepted item and persists the checkpoint file.
func (a *accumulator) add(item string) error {
	a.accepted = append(a.accepted, item)
	return a.persist()
}

// persist writes the checkpoint file.
func (a *accumulator) persist() error {
	wl := domain.WorkList{RunID: a.runID, Items: a.accepted}
	if _, err := a.store.WriteJSON(a.name, wl); err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}
	return nil
}

// report snapshots the pass into a generation report.
func (a *accumulator) report(generation int) *domain.Report {
	return &domain.Report{
		RunID:      a.runID,
		Generation: generation,
		Processed:  a.processed,
		Accepted:   len(a.accepted),
		Skipped:    a.skipped,
		Failed:     a.failed,
		Results:    append([]string(nil), a.accepted...),
	}
}
