package merge

import (
	"fmt"
	"log/slog"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

// Merger unions all of a run's generation checkpoints into one final output
// file and deletes the consumed checkpoints. Only a generation-0 completion
// invokes it; a healed worker's checkpoints stay on disk until then.
type Merger struct {
	store store.Store
	log   *slog.Logger
}

// New creates a merger.
func New(st store.Store) *Merger {
	return &Merger{
		store: st,
		log:   slog.Default(),
	}
}

// Merge returns the deduplicated union and the final file path. Checkpoint
// names zero-pad the generation, so the sorted listing is generation order
// and the union is deterministic for an unchanged checkpoint set.
func (m *Merger) Merge(runID string) ([]string, string, error) {
	names, err := m.store.List(domain.ResultsCheckpointPattern(runID))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list checkpoints: %w", err)
	}

	seen := make(map[string]struct{})
	var union []string
	for _, name := range names {
		var snapshot domain.WorkList
		if err := m.store.ReadJSON(name, &snapshot); err != nil {
			return nil, "", fmt.Errorf("failed to load checkpoint %s: %w", name, err)
		}
		for _, item := range snapshot.Items {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			union = append(union, item)
		}
	}

	finalPath, err := m.store.WriteJSON(
		domain.FinalName(runID),
		domain.WorkList{RunID: runID, Items: union},
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write final output: %w", err)
	}

	for _, name := range names {
		if err := m.store.Delete(name); err != nil {
			return nil, "", fmt.Errorf("failed to delete consumed checkpoint: %w", err)
		}
	}

	m.log.Info("checkpoints merged",
		"run", runID,
		"checkpoints", len(names),
		"items", len(union),
	)
	return union, finalPath, nil
}
