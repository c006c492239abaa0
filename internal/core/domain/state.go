package domain

import (
	"errors"
	"fmt"
	"time"
)

// ResumeShape tags which resumption payload a HealState carries. The shape is
// explicit so a worker dispatches on the tag, never on which fields happen to
// be set.
type ResumeShape string

const (
	ResumeShapeIndex ResumeShape = "index"
	ResumeShapeBatch ResumeShape = "batch"
)

// Phase describes where in the processing loop a generation is.
type Phase string

const (
	PhaseRunning       Phase = "RUNNING"
	PhaseRetryCooldown Phase = "RETRY_COOLDOWN"
	PhaseEscalating    Phase = "ESCALATING"
	PhaseHealed        Phase = "HEALED"
	PhaseCompleted     Phase = "COMPLETED"
)

// Credentials identify the upstream automation session so a spawned worker
// can reconstruct one of its own.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IndexResume resumes an index-driven scan: the partial work file is walked
// from cursor 0 with the accumulator carried forward.
type IndexResume struct {
	WorkFile string   `json:"work_file"`
	Cursor   int      `json:"cursor"`
	Accepted []string `json:"accepted"`
}

// BatchResume resumes the batch-oriented pipeline: the master index file
// holds the full work list, sliced into batches of BatchSize; Batch/Index
// point at the interrupted position and CompletedBatches lists batch ordinals
// already done.
type BatchResume struct {
	Batch            []string `json:"batch"`
	Index            int      `json:"index"`
	CompletedBatches []int    `json:"completed_batches"`
	MasterIndexFile  string   `json:"master_index_file"`
	BatchSize        int      `json:"batch_size"`
}

// HealState is the full resumption context written at escalation and read by
// the spawned worker. Exactly one is produced per escalation event.
type HealState struct {
	StateID     string       `json:"state_id"`
	RunID       string       `json:"run_id"`
	Generation  int          `json:"generation"`
	Shape       ResumeShape  `json:"shape"`
	Reason      string       `json:"reason"`
	Phase       Phase        `json:"phase"`
	CreatedAt   time.Time    `json:"created_at"`
	Credentials Credentials  `json:"credentials"`
	Index       *IndexResume `json:"index,omitempty"`
	Batch       *BatchResume `json:"batch,omitempty"`
}

var (
	// ErrMissingRunID is returned when a heal state has no run identifier.
	ErrMissingRunID = errors.New("heal state missing run id")

	// ErrShapeMismatch is returned when the shape tag disagrees with the
	// payload actually present.
	ErrShapeMismatch = errors.New("heal state shape does not match payload")
)

// Validate checks the tagged shape against the payload present.
func (s *HealState) Validate() error {
	if s.RunID == "" {
		return ErrMissingRunID
	}
	if s.Generation < 1 {
		return fmt.Errorf("heal state generation must be >= 1, got %d", s.Generation)
	}
	switch s.Shape {
	case ResumeShapeIndex:
		if s.Index == nil || s.Batch != nil {
			return ErrShapeMismatch
		}
		if s.Index.WorkFile == "" {
			return errors.New("index resume missing work file")
		}
	case ResumeShapeBatch:
		if s.Batch == nil || s.Index != nil {
			return ErrShapeMismatch
		}
		if s.Batch.MasterIndexFile == "" {
			return errors.New("batch resume missing master index file")
		}
		if s.Batch.BatchSize <= 0 {
			return errors.New("batch resume missing batch size")
		}
	default:
		return fmt.Errorf("unknown resume shape: %q", s.Shape)
	}
	return nil
}
