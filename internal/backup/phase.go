package backup

// Phase is the position of a run in the dump workflow.
//
//	idle -> triggered -> polling -> completed -> downloading -> [mirroring ->] done
//	idle -> reused -> completed
//	polling -> timed_out
//	completed -> artifact_unavailable
//
// Any other error ends in failed. Runs never go back to idle.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseTriggered           Phase = "triggered"
	PhasePolling             Phase = "polling"
	PhaseReused              Phase = "reused"
	PhaseCompleted           Phase = "completed"
	PhaseDownloading         Phase = "downloading"
	PhaseMirroring           Phase = "mirroring"
	PhaseDone                Phase = "done"
	PhaseTimedOut            Phase = "timed_out"
	PhaseArtifactUnavailable Phase = "artifact_unavailable"
	PhaseFailed              Phase = "failed"
)

// Failed reports whether p is a terminal failure.
func (p Phase) Failed() bool {
	switch p {
	case PhaseTimedOut, PhaseArtifactUnavailable, PhaseFailed:
		return true
	}
	return false
}

// Terminal reports whether the run is over.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p.Failed()
}
