package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
	"github.com/vietddude/sifter/internal/scan/metrics"
)

// RunBatches drives the batch-oriented pipeline: the master index file holds
// the full work list, sliced into batches of resume.BatchSize, completed in
// order. A fresh run passes a resume with no completed batches; a healed
// worker passes the deserialized BatchResume. Uses the same per-item state
// machine as Run, so skip, error-queue and retry semantics are identical.
func (p *Processor) RunBatches(ctx context.Context, resume *domain.BatchResume) (*domain.Report, error) {
	defer p.releaseSession()

	metrics.Generation.Set(float64(p.cfg.Generation))
	p.phase = domain.PhaseRunning

	var master domain.WorkList
	if err := store.ReadJSONFile(resume.MasterIndexFile, &master); err != nil {
		return nil, fmt.Errorf("failed to load master index: %w", err)
	}
	batches := SliceBatches(master.Items, resume.BatchSize)

	completed := make(map[int]bool, len(resume.CompletedBatches))
	for _, ordinal := range resume.CompletedBatches {
		completed[ordinal] = true
	}
	// Batches complete strictly in order, so the interrupted batch is the
	// first one not yet completed.
	current := len(resume.CompletedBatches)

	acc := newAccumulator(
		p.store,
		p.cfg.RunID,
		domain.ResultsCheckpointName(p.cfg.RunID, p.cfg.Generation),
		nil,
	)
	if err := acc.persist(); err != nil {
		return nil, err
	}

	completedOrdinals := append([]int(nil), resume.CompletedBatches...)
	for ordinal := current; ordinal < len(batches); ordinal++ {
		if completed[ordinal] {
			completedOrdinals = append(completedOrdinals, ordinal)
			continue
		}

		batch := batches[ordinal]
		if ordinal == current && len(resume.Batch) > 0 {
			batch = resume.Batch
		}
		start := 0
		if ordinal == current {
			start = resume.Index
		}
		if start > len(batch) {
			start = len(batch)
		}

		esc, err := p.walk(ctx, batch[start:], acc)
		if err != nil {
			return nil, err
		}
		if esc != nil {
			// walk's cursor is relative to the slice it was handed.
			esc.cursor += start
			return nil, p.escalateBatch(ctx, resume, batch, completedOrdinals, esc)
		}
		completedOrdinals = append(completedOrdinals, ordinal)
	}

	if err := acc.persist(); err != nil {
		return nil, err
	}
	p.phase = domain.PhaseCompleted
	p.log.Info("batch pipeline completed",
		"run", p.cfg.RunID,
		"generation", p.cfg.Generation,
		"batches", len(batches),
		"accepted", len(acc.accepted),
	)
	return acc.report(p.cfg.Generation), nil
}

// escalateBatch builds the batch-shaped healing handoff. The resumption
// index rolls back within the current batch; the first failed item's
// position lowers it further if the rollback would drop it.
func (p *Processor) escalateBatch(
	ctx context.Context,
	resume *domain.BatchResume,
	batch []string,
	completedOrdinals []int,
	esc *escalation,
) error {
	next := p.cfg.Generation + 1
	if p.cfg.MaxGenerations > 0 && next > p.cfg.MaxGenerations {
		return fmt.Errorf("%w: generation %d", ErrGenerationLimit, next)
	}
	metrics.Escalations.Inc()

	index := esc.cursor - p.cfg.BatchSize
	if index < 0 {
		index = 0
	}
	if len(esc.queued) > 0 {
		if pos := indexOfItem(batch, esc.queued[0]); pos >= 0 && pos < index {
			index = pos
		}
	}

	state := &domain.HealState{
		StateID:     uuid.New().String(),
		RunID:       p.cfg.RunID,
		Generation:  next,
		Shape:       domain.ResumeShapeBatch,
		Reason:      escalationReason(esc.queued),
		Phase:       domain.PhaseEscalating,
		CreatedAt:   time.Now().UTC(),
		Credentials: p.cfg.Credentials,
		Batch: &domain.BatchResume{
			Batch:            append([]string(nil), batch...),
			Index:            index,
			CompletedBatches: completedOrdinals,
			MasterIndexFile:  resume.MasterIndexFile,
			BatchSize:        resume.BatchSize,
		},
	}

	p.releaseSession()

	if err := p.healer.Heal(ctx, state); err != nil {
		return fmt.Errorf("healing handoff failed: %w", err)
	}

	p.phase = domain.PhaseHealed
	p.log.Warn("batch pipeline escalated to a fresh worker",
		"run", p.cfg.RunID,
		"generation", next,
		"batch_index", index,
	)
	return ErrHealingInProgress
}

// SliceBatches splits items into consecutive batches of size n.
func SliceBatches(items []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	var batches [][]string
	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

func indexOfItem(items []string, item string) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return -1
}
