package syncjob

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
)

// Orchestrator walks every active course each run, pulls new submissions
// per contest and feeds them through the results pipeline. Failure scope
// is deliberately narrow: a bad submission skips that submission, a failed
// contest skips that contest, a failed course skips that course. Every
// skip is logged and pushed to the operator channel.
type Orchestrator struct {
	courses  course.Repository
	resvc    *results.Service
	client   ContestClient
	log      core.Logger
	notifier core.Notifier
}

func NewOrchestrator(
	courses course.Repository,
	resvc *results.Service,
	client ContestClient,
	log core.Logger,
	notifier core.Notifier,
) *Orchestrator {
	return &Orchestrator{courses: courses, resvc: resvc, client: client, log: log, notifier: notifier}
}

// RunOnce performs one full sync pass over all active courses. Each pass
// gets a run id so its log lines can be correlated.
func (o *Orchestrator) RunOnce(ctx context.Context) {
	runID := uuid.NewString()

	active, err := o.courses.QueryCourses(ctx, true)
	if err != nil {
		o.report(ctx, "listing active courses", err)
		return
	}
	o.log.Info(fmt.Sprintf("sync run %s: %d active course(s)", runID, len(active)))

	for _, crs := range active {
		crs := crs
		o.runIsolated(ctx, fmt.Sprintf("course %q", crs.ShortName), func() error {
			return o.SyncCourse(ctx, crs)
		})
	}
	o.log.Info(fmt.Sprintf("sync run %s finished", runID))
}

// SyncCourse syncs every contest of one course in lecture order, then runs
// the full-recompute pass. A drifted aggregate raises an alarm but does
// not fail the run; stored values are left for manual intervention.
func (o *Orchestrator) SyncCourse(ctx context.Context, crs course.Course) error {
	contests, err := o.courses.CourseContests(ctx, crs.ID)
	if err != nil {
		return err
	}
	for _, cnt := range contests {
		cnt := cnt
		o.runIsolated(ctx, fmt.Sprintf("course %q contest %d", crs.ShortName, cnt.YandexContestID), func() error {
			return o.syncContest(ctx, crs, cnt)
		})
	}

	if err = o.resvc.UpdateCourseResults(ctx, crs); err != nil {
		var cerr *results.ConsistencyError
		if errors.As(err, &cerr) {
			o.report(ctx, fmt.Sprintf("recomputing course %q", crs.ShortName), err)
			return nil
		}
		return err
	}
	return nil
}

func (o *Orchestrator) syncContest(ctx context.Context, crs course.Course, cnt course.Contest) error {
	if err := o.resolveAuthors(ctx, crs, cnt); err != nil {
		return err
	}
	if err := o.recheckNoReports(ctx, crs, cnt); err != nil {
		return err
	}

	store := o.resvc.Store()
	watermark, err := store.LastRunID(ctx, cnt.ID)
	if err != nil {
		return err
	}
	recs, err := o.client.FetchSubmissions(ctx, cnt.YandexContestID, watermark)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		rec := rec
		o.runIsolated(ctx, fmt.Sprintf("contest %d run %d", cnt.YandexContestID, rec.RunID), func() error {
			return o.processOne(ctx, crs, cnt, rec)
		})
	}
	return nil
}

// processOne reconciles a single submission in its own transaction, so one
// poisoned record cannot roll back its neighbours.
func (o *Orchestrator) processOne(ctx context.Context, crs course.Course, cnt course.Contest, rec results.SubmissionRecord) error {
	sess, err := o.resvc.Store().Begin(ctx)
	if err != nil {
		return err
	}
	if _, err = o.resvc.ProcessSubmission(ctx, sess, crs, cnt, rec); err != nil {
		sess.Rollback() //nolint:errcheck
		return err
	}
	return sess.Commit()
}

// resolveAuthors maps enrolled students onto platform author ids. Students
// whose contest login is not yet registered in the contest get registered
// on the fly when the course allows it.
func (o *Orchestrator) resolveAuthors(ctx context.Context, crs course.Course, cnt course.Contest) error {
	store := o.resvc.Store()
	students, err := store.CourseStudents(ctx, crs.ID)
	if err != nil {
		return err
	}

	// fetched lazily, only when at least one student needs resolution
	var participants map[string]int64
	for _, std := range students {
		if std.ContestLogin == "" {
			continue
		}
		sc, err := store.GetOrCreateStudentContest(ctx, std.ID, cnt.ID, crs.ID)
		if err != nil {
			return err
		}
		if sc.AuthorID.Valid {
			continue
		}

		if participants == nil {
			list, err := o.client.Participants(ctx, cnt.YandexContestID)
			if err != nil {
				return err
			}
			participants = make(map[string]int64, len(list))
			for _, p := range list {
				participants[strings.ToLower(p.Login)] = p.ID
			}
		}

		authorID, ok := participants[strings.ToLower(std.ContestLogin)]
		if !ok {
			authorID, err = o.client.RegisterParticipant(ctx, cnt.YandexContestID, std.ContestLogin)
			if err != nil {
				o.report(ctx, fmt.Sprintf("registering %q in contest %d", std.ContestLogin, cnt.YandexContestID), err)
				continue
			}
			participants[strings.ToLower(std.ContestLogin)] = authorID
		}
		if err = store.SetStudentContestAuthor(ctx, sc.ID, authorID); err != nil {
			return err
		}
	}
	return nil
}

// recheckNoReports re-fetches submissions the platform had not judged yet.
// A verdict change takes the normal update path through the pipeline.
func (o *Orchestrator) recheckNoReports(ctx context.Context, crs course.Course, cnt course.Contest) error {
	pending, err := o.resvc.Store().SubmissionsByVerdict(ctx, cnt.ID, results.VerdictNoReport)
	if err != nil {
		return err
	}
	for _, sub := range pending {
		rec, err := o.client.SubmissionVerdict(ctx, cnt.YandexContestID, sub.RunID)
		if err != nil {
			return err
		}
		if rec.Verdict == results.VerdictNoReport {
			continue
		}
		sub := sub
		o.runIsolated(ctx, fmt.Sprintf("contest %d run %d recheck", cnt.YandexContestID, sub.RunID), func() error {
			return o.processOne(ctx, crs, cnt, rec)
		})
	}
	return nil
}

// runIsolated runs fn, converting errors and panics into reports so the
// caller's loop keeps going.
func (o *Orchestrator) runIsolated(ctx context.Context, scope string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			o.report(ctx, scope, errors.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		o.report(ctx, scope, err)
	}
}

func (o *Orchestrator) report(ctx context.Context, scope string, err error) {
	o.log.Error("sync: "+scope, err)
	o.notifier.Notify(ctx, core.NotifyError, fmt.Sprintf("sync: %s: %v", scope, err))
}
