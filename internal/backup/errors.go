package backup

import "errors"

var (
	// ErrEmptyBackupSet is returned when the database has no dump yet, so a new
	// one could not be told apart from the existing set.
	ErrEmptyBackupSet = errors.New("no existing dump to compare against")

	// ErrBackupTimeout is returned when no new dump appears within the retry budget.
	ErrBackupTimeout = errors.New("dump was not completed in time")

	// ErrArtifactUnavailable is returned when the dump record exists but its URL
	// does not answer with 200 OK.
	ErrArtifactUnavailable = errors.New("dump artifact is not available")
)

// outcome maps a run error to the status label used in metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBackupTimeout):
		return "timeout"
	case errors.Is(err, ErrArtifactUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEmptyBackupSet):
		return "empty"
	default:
		return "failure"
	}
}
