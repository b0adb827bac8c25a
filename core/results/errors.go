package results

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// UnresolvedAuthorError marks a submission whose external author id does
// not map to any enrolled student. The submission is skipped and reported;
// the batch continues.
type UnresolvedAuthorError struct {
	AuthorID  int64
	ContestID int64
}

func (e *UnresolvedAuthorError) Error() string {
	return fmt.Sprintf("author %d is not registered in contest %d", e.AuthorID, e.ContestID)
}

// ConsistencyError is raised by the full-recompute pass when stored
// aggregates disagree with the live contest set. It is fatal for that
// course's run: the data needs manual intervention, and nothing is
// silently overwritten.
type ConsistencyError struct {
	CourseID int64
	Msg      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("course %d results inconsistent: %s", e.CourseID, e.Msg)
}
