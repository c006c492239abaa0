package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/sifter/internal/core/config"
	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/automation"
	"github.com/vietddude/sifter/internal/infra/store"
	"github.com/vietddude/sifter/internal/scan/processor"
)

// Worker is the entry point a spawned process runs after a healing handoff:
// load the resumption context, build a brand-new session and re-enter the
// processing loop. If this worker escalates too, the same handoff repeats
// with generation+1.
type Worker struct {
	scan   config.ScanConfig
	dialer automation.Dialer
	store  store.Store
	healer processor.Healer
	log    *slog.Logger
}

// New creates a worker.
func New(scan config.ScanConfig, dialer automation.Dialer, st store.Store, healer processor.Healer) *Worker {
	return &Worker{
		scan:   scan,
		dialer: dialer,
		store:  st,
		healer: healer,
		log:    slog.Default(),
	}
}

// Run resumes processing from a heal-state file. A resumed worker returns
// its generation report without merging; only a root generation merges.
func (w *Worker) Run(ctx context.Context, statePath string) (*domain.Report, error) {
	var state domain.HealState
	if err := store.ReadJSONFile(statePath, &state); err != nil {
		return nil, fmt.Errorf("failed to load heal state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}

	w.log.Info("resuming healed run",
		"run", state.RunID,
		"generation", state.Generation,
		"shape", state.Shape,
		"reason", state.Reason,
	)

	// The parent's session is gone; this worker owns a fresh one.
	session, err := w.dialer.Open(ctx, state.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	proc := processor.New(processor.Config{
		RunID:          state.RunID,
		Generation:     state.Generation,
		SkipMarker:     w.scan.SkipMarker,
		ErrorThreshold: w.scan.ErrorThreshold,
		RetryCooldown:  w.scan.RetryCooldown.Std(),
		BatchSize:      w.scan.BatchSize,
		MaxGenerations: w.scan.MaxGenerations,
		Credentials:    state.Credentials,
	}, session, w.store, w.healer)

	switch state.Shape {
	case domain.ResumeShapeIndex:
		var work domain.WorkList
		if err := store.ReadJSONFile(state.Index.WorkFile, &work); err != nil {
			return nil, fmt.Errorf("failed to load partial work file: %w", err)
		}
		items := domain.DedupeItems(work.Items)
		if c := state.Index.Cursor; c > 0 && c <= len(items) {
			items = items[c:]
		}
		return proc.Run(ctx, items, state.Index.Accepted)
	case domain.ResumeShapeBatch:
		return proc.RunBatches(ctx, state.Batch)
	default:
		// Validate rejects unknown shapes; kept for exhaustiveness.
		return nil, fmt.Errorf("unknown resume shape: %q", state.Shape)
	}
}
