package healing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

// Starter launches a detached worker process pointed at a state file. There
// is no return channel; the parent's lifetime must not gate the child's.
type Starter interface {
	Start(statePath string) error
}

// Manager serializes a resumption context and hands the remaining work to a
// freshly started, independent process. Exactly one state file and one
// process start per call; the call is terminal for the caller.
type Manager struct {
	store   store.Store
	starter Starter
	log     *slog.Logger
}

// NewManager creates a healing manager.
func NewManager(st store.Store, starter Starter) *Manager {
	return &Manager{
		store:   st,
		starter: starter,
		log:     slog.Default(),
	}
}

// Heal validates the tagged resumption shape, writes the state file and
// starts the worker.
func (m *Manager) Heal(ctx context.Context, state *domain.HealState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid heal state: %w", err)
	}

	name := domain.HealStateName(state.RunID, state.StateID)
	path, err := m.store.WriteJSON(name, state)
	if err != nil {
		return fmt.Errorf("failed to write heal state: %w", err)
	}

	if err := m.starter.Start(path); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	m.log.Info("healing handoff complete",
		"run", state.RunID,
		"generation", state.Generation,
		"shape", state.Shape,
		"state", path,
	)
	return nil
}
