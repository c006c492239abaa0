package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/automation"
	"github.com/vietddude/sifter/internal/infra/store"
	"github.com/vietddude/sifter/internal/scan/metrics"
)

var (
	// ErrHealingInProgress is the sentinel returned after a successful
	// handoff. The caller must not treat the run as failed or continue
	// processing; a fresh worker owns the remaining work.
	ErrHealingInProgress = errors.New("healing in progress")

	// ErrGenerationLimit is returned when escalation would exceed the
	// configured generation bound.
	ErrGenerationLimit = errors.New("healing generation limit reached")
)

// Healer hands the remaining work to a freshly started process.
type Healer interface {
	Heal(ctx context.Context, state *domain.HealState) error
}

// Config holds one generation's loop parameters.
type Config struct {
	RunID          string
	Generation     int
	SkipMarker     string
	ErrorThreshold int
	RetryCooldown  time.Duration
	BatchSize      int
	MaxGenerations int // 0 = unlimited
	Credentials    domain.Credentials
}

// Processor is the checkpointed batch-processing state machine. It walks a
// work list strictly in cursor order, absorbs transient classification
// failures into the ErrorQueue, and escalates to a healing handoff when a
// full retry pass fails. One Processor serves one generation; state is owned
// per invocation, never shared.
type Processor struct {
	cfg     Config
	session automation.Session
	store   store.Store
	healer  Healer
	log     *slog.Logger

	phase       domain.Phase
	releaseOnce sync.Once

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// New creates a processor for one generation.
func New(cfg Config, session automation.Session, st store.Store, healer Healer) *Processor {
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.ErrorThreshold
	}
	return &Processor{
		cfg:     cfg,
		session: session,
		store:   st,
		healer:  healer,
		log:     slog.Default(),
		phase:   domain.PhaseRunning,
		sleep:   time.Sleep,
	}
}

// Phase returns the loop's current phase.
func (p *Processor) Phase() domain.Phase {
	return p.phase
}

// Run walks the work list, carrying forward any accumulator from a previous
// generation. On a clean pass it returns the generation report; on a batch
// escalation it hands off and returns ErrHealingInProgress.
func (p *Processor) Run(ctx context.Context, items []string, carried []string) (*domain.Report, error) {
	defer p.releaseSession()

	metrics.Generation.Set(float64(p.cfg.Generation))
	p.phase = domain.PhaseRunning

	acc := newAccumulator(
		p.store,
		p.cfg.RunID,
		domain.ResultsCheckpointName(p.cfg.RunID, p.cfg.Generation),
		carried,
	)
	// Checkpoint file exists from loop start, even for an all-reject pass.
	if err := acc.persist(); err != nil {
		return nil, err
	}

	esc, err := p.walk(ctx, items, acc)
	if err != nil {
		return nil, err
	}
	if esc != nil {
		return nil, p.escalateIndex(ctx, items, esc, acc)
	}

	if err := acc.persist(); err != nil {
		return nil, err
	}
	p.phase = domain.PhaseCompleted
	p.log.Info("work list completed",
		"run", p.cfg.RunID,
		"generation", p.cfg.Generation,
		"processed", acc.processed,
		"accepted", len(acc.accepted),
	)
	return acc.report(p.cfg.Generation), nil
}

// escalation captures the fault context when all retries failed.
type escalation struct {
	cursor int      // index just past the last attempted item
	queued []string // ErrorQueue contents at fault time, in failure order
}

// walk is the per-item state machine shared by the index and batch runs.
// A nil escalation means the items were exhausted.
func (p *Processor) walk(ctx context.Context, items []string, acc *accumulator) (*escalation, error) {
	eq := NewErrorQueue(p.cfg.ErrorThreshold)

	cursor := 0
	for cursor < len(items) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := items[cursor]
		cursor++
		acc.processed++

		// Placeholder items bypass classification and the error queue.
		if p.cfg.SkipMarker != "" && strings.Contains(item, p.cfg.SkipMarker) {
			acc.skipped++
			metrics.ItemsProcessed.WithLabelValues("skipped").Inc()
			continue
		}

		match, err := p.classify(ctx, item)
		switch {
		case err != nil:
			eq.Push(item)
			acc.failed++
			metrics.ItemsProcessed.WithLabelValues("failed").Inc()
			p.log.Debug("classification failed", "item", item, "error", err)
		case match:
			if err := acc.add(item); err != nil {
				return nil, err
			}
			eq.Clear()
			metrics.ItemsProcessed.WithLabelValues("accepted").Inc()
		default:
			metrics.ItemsProcessed.WithLabelValues("rejected").Inc()
		}

		if !eq.Full() {
			continue
		}

		// Threshold reached: cool down, then exactly one retry pass over the
		// queued items in original order.
		p.phase = domain.PhaseRetryCooldown
		p.log.Warn("error threshold reached, cooling down",
			"run", p.cfg.RunID,
			"queued", eq.Items(),
			"cooldown", p.cfg.RetryCooldown,
		)
		p.sleep(p.cfg.RetryCooldown)

		recovered := false
		for _, queued := range eq.Items() {
			metrics.ItemsProcessed.WithLabelValues("retried").Inc()
			match, err := p.classify(ctx, queued)
			if err != nil {
				p.log.Debug("retry failed", "item", queued, "error", err)
				continue
			}
			// Any completed retry means the batch is not a total failure.
			recovered = true
			if match {
				if err := acc.add(queued); err != nil {
					return nil, err
				}
			}
		}

		if recovered {
			eq.Clear()
			p.phase = domain.PhaseRunning
			continue
		}

		p.phase = domain.PhaseEscalating
		return &escalation{cursor: cursor, queued: eq.Items()}, nil
	}

	return nil, nil
}

func (p *Processor) classify(ctx context.Context, item string) (bool, error) {
	start := time.Now()
	match, err := p.session.Classify(ctx, item)
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())
	return match, err
}

// escalateIndex turns a fault into an index-shaped healing handoff: write the
// partial work file, serialize the resumption context, release the session
// and start a fresh worker. Exactly one partial work file and one heal state
// per escalation.
func (p *Processor) escalateIndex(
	ctx context.Context,
	items []string,
	esc *escalation,
	acc *accumulator,
) error {
	next := p.cfg.Generation + 1
	if p.cfg.MaxGenerations > 0 && next > p.cfg.MaxGenerations {
		return fmt.Errorf("%w: generation %d", ErrGenerationLimit, next)
	}
	metrics.Escalations.Inc()

	resume := esc.cursor - p.cfg.BatchSize
	if resume < 0 {
		resume = 0
	}
	slice := items[resume:]
	// Re-prepend the first failed item if the slice would drop it.
	if len(esc.queued) > 0 && !containsItem(slice, esc.queued[0]) {
		slice = append([]string{esc.queued[0]}, slice...)
	}

	workName := domain.PartialWorkName(p.cfg.RunID, next)
	workPath, err := p.store.WriteJSON(workName, domain.WorkList{RunID: p.cfg.RunID, Items: slice})
	if err != nil {
		return fmt.Errorf("failed to write partial work file: %w", err)
	}

	state := &domain.HealState{
		StateID:     uuid.New().String(),
		RunID:       p.cfg.RunID,
		Generation:  next,
		Shape:       domain.ResumeShapeIndex,
		Reason:      escalationReason(esc.queued),
		Phase:       domain.PhaseEscalating,
		CreatedAt:   time.Now().UTC(),
		Credentials: p.cfg.Credentials,
		Index: &domain.IndexResume{
			WorkFile: workPath,
			Cursor:   0,
			Accepted: append([]string(nil), acc.accepted...),
		},
	}

	// The session must be gone before the handoff; the worker builds its own.
	p.releaseSession()

	if err := p.healer.Heal(ctx, state); err != nil {
		return fmt.Errorf("healing handoff failed: %w", err)
	}

	p.phase = domain.PhaseHealed
	p.log.Warn("escalated to a fresh worker",
		"run", p.cfg.RunID,
		"generation", next,
		"remaining", len(slice),
	)
	return ErrHealingInProgress
}

// releaseSession closes the session exactly once, on whichever exit path
// comes first.
func (p *Processor) releaseSession() {
	p.releaseOnce.Do(func() {
		if p.session == nil {
			return
		}
		if err := p.session.Close(); err != nil {
			p.log.Warn("failed to release session", "run", p.cfg.RunID, "error", err)
		}
	})
}

func escalationReason(queued []string) string {
	return fmt.Sprintf("all %d retries failed after cooldown: %s",
		len(queued), strings.Join(queued, ", "))
}

func containsItem(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
