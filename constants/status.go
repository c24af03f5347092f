package constants

// RunPhase is the canonical phase for a pipeline run.
type RunPhase string

// Stable values (these exact strings appear in API responses and events).
const (
	PhaseIdle        RunPhase = "IDLE"        // no run active
	PhaseValidating  RunPhase = "VALIDATING"  // upload checks in progress
	PhaseRecognizing RunPhase = "RECOGNIZING" // text recognition in progress
	PhaseExtracting  RunPhase = "EXTRACTING"  // field heuristics running
	PhaseCompleted   RunPhase = "COMPLETED"   // terminal success
	PhaseFailed      RunPhase = "FAILED"      // terminal failure
)

// Terminal reports whether a phase is an end state for a run.
func (p RunPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}
