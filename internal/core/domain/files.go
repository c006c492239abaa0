package domain

import "fmt"

// State-directory naming conventions. Generations are zero-padded so the
// lexicographic order of a directory listing is also generation order.

// ResultsCheckpointName is the per-generation snapshot of accepted items.
func ResultsCheckpointName(runID string, generation int) string {
	return fmt.Sprintf("%s.results.%03d.json", runID, generation)
}

// ResultsCheckpointPattern matches every generation's checkpoint for a run.
func ResultsCheckpointPattern(runID string) string {
	return runID + ".results.*.json"
}

// PartialWorkName is the unprocessed work-queue suffix written at escalation.
func PartialWorkName(runID string, generation int) string {
	return fmt.Sprintf("%s.work.%03d.json", runID, generation)
}

// QueueCheckpointName is the collector's recovery snapshot of the running
// work list, distinct from result checkpoints.
func QueueCheckpointName(runID string) string {
	return runID + ".queue.json"
}

// MasterIndexName is the batch pipeline's full work list.
func MasterIndexName(runID string) string {
	return runID + ".index.json"
}

// HealStateName is the serialized resumption context for one escalation.
func HealStateName(runID, stateID string) string {
	return fmt.Sprintf("%s.heal.%s.json", runID, stateID)
}

// FinalName is the merged output of a completed run.
func FinalName(runID string) string {
	return runID + ".final.json"
}
