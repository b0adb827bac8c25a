package syncjob

import (
	"context"
	"fmt"

	"github.com/zachetka/backend/core/results"
)

type (
	// Participant is one registered contestant on the external platform.
	// ID is the author id submissions carry; Login is the platform login.
	Participant struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}

	// ContestClient is the external contest platform surface the
	// orchestrator drives. Implementations retry transient failures
	// internally and wrap what remains in *TransientFetchError.
	ContestClient interface {
		// FetchSubmissions returns submissions with run id strictly greater
		// than afterRunID, in ascending run id order.
		FetchSubmissions(ctx context.Context, yandexContestID, afterRunID int64) ([]results.SubmissionRecord, error)
		// SubmissionVerdict re-fetches a single submission's current state.
		SubmissionVerdict(ctx context.Context, yandexContestID, runID int64) (results.SubmissionRecord, error)
		Participants(ctx context.Context, yandexContestID int64) ([]Participant, error)
		RegisterParticipant(ctx context.Context, yandexContestID int64, login string) (int64, error)
	}
)

// TransientFetchError wraps a platform call that failed after retries.
// The affected contest is skipped for this run and retried on the next;
// nothing already reconciled is touched.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("contest platform: %s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }
