package course

import (
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/zachetka/backend/core"
)

// OKMethod selects the quantity a threshold policy looks at.
const (
	// course scope: count of necessary contests marked ok
	OKMethodContestsOK = "CONTESTS_OK"
	// contest scope: count of tasks done
	OKMethodTasksCount = "TASKS_COUNT"
	// either scope: score sum
	OKMethodScoreSum = "SCORE_SUM"
)

// CountMethod selects how the threshold is compared.
const (
	CountMethodPercent  = "PERCENT"
	CountMethodAbsolute = "ABSOLUTE"
)

// Contest tags
const (
	TagNecessary = "NECESSARY"
	TagFinal     = "FINAL"
	TagUsual     = "USUAL"
	TagEarlyExam = "EARLY_EXAM"
)

// Legacy level names still configured on older contests. The named pair
// predates the levels table: "Зачет" gates the pre-deadline ok flag,
// "Допуск к зачету" the no-deadline one.
const (
	LevelNameCredit          = "Зачет"
	LevelNameCreditAdmission = "Допуск к зачету"
)

// DefaultFinalScoreFormula is the formula a course starts with: the final
// score is whatever was earned before the deadline.
const DefaultFinalScoreFormula = "{best_score_before_finish}"

type (
	Course struct {
		ID                 int64     `db:"id" json:"id"`
		Name               string    `db:"name" json:"name"`
		ShortName          string    `db:"short_name" json:"short_name"`
		ScoreMax           float64   `db:"score_max" json:"score_max"`
		ContestCount       int       `db:"contest_count" json:"contest_count"`
		OKMethod           string    `db:"ok_method" json:"ok_method"`
		OKThresholdPercent float64   `db:"ok_threshold_percent" json:"ok_threshold_percent"`
		IsActive           bool      `db:"is_active" json:"is_active"`
		IsOpenRegistration bool      `db:"is_open_registration" json:"is_open_registration"`
		DefaultFormula     string    `db:"default_formula" json:"default_formula"`
		CreatedAt          time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt          time.Time `db:"updated_at" json:"updated_at"` // UTC
	}

	// Contest mirrors one contest hosted on the external platform.
	// YandexContestID is the platform's identifier and is unique across
	// courses; LectureNumber fixes the processing order within a course.
	Contest struct {
		ID              int64          `db:"id" json:"id"`
		CourseID        int64          `db:"course_id" json:"course_id"`
		YandexContestID int64          `db:"yandex_contest_id" json:"yandex_contest_id"`
		LectureNumber   int            `db:"lecture" json:"lecture"`
		TasksCount      int            `db:"tasks_count" json:"tasks_count"`
		ScoreMax        float64        `db:"score_max" json:"score_max"`
		Deadline        null.Time      `db:"deadline" json:"deadline,omitempty"`
		Tags            pq.StringArray `db:"tags" json:"tags"`
		DefaultFormula  string         `db:"default_formula" json:"default_formula"`
		NameFormat      string         `db:"name_format" json:"name_format"`
		CreatedAt       time.Time      `db:"created_at" json:"created_at"` // UTC
		UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"` // UTC
	}

	Task struct {
		ID             int64     `db:"id" json:"id"`
		ContestID      int64     `db:"contest_id" json:"contest_id"`
		ExternalTaskID string    `db:"external_task_id" json:"external_task_id"`
		Alias          string    `db:"alias" json:"alias"`
		IsZeroOK       bool      `db:"is_zero_ok" json:"is_zero_ok"`
		ScoreMax       float64   `db:"score_max" json:"score_max"`
		Formula        string    `db:"formula" json:"formula"`
		CreatedAt      time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt      time.Time `db:"updated_at" json:"updated_at"` // UTC
	}

	// CourseLevel is a named threshold policy scoped to a course,
	// producing an independent boolean ok outcome per student.
	CourseLevel struct {
		ID          int64     `db:"id" json:"id"`
		CourseID    int64     `db:"course_id" json:"course_id"`
		Name        string    `db:"name" json:"name"`
		OKMethod    string    `db:"ok_method" json:"ok_method"`
		CountMethod string    `db:"count_method" json:"count_method"`
		OKThreshold float64   `db:"ok_threshold" json:"ok_threshold"`
		CreatedAt   time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt   time.Time `db:"updated_at" json:"updated_at"` // UTC
	}

	// ContestLevel is the contest-scoped variant; IncludeAfterDeadline
	// switches it onto the no-deadline score lane.
	ContestLevel struct {
		ID                   int64     `db:"id" json:"id"`
		ContestID            int64     `db:"contest_id" json:"contest_id"`
		Name                 string    `db:"name" json:"name"`
		OKMethod             string    `db:"ok_method" json:"ok_method"`
		CountMethod          string    `db:"count_method" json:"count_method"`
		OKThreshold          float64   `db:"ok_threshold" json:"ok_threshold"`
		IncludeAfterDeadline bool      `db:"include_after_deadline" json:"include_after_deadline"`
		CreatedAt            time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt            time.Time `db:"updated_at" json:"updated_at"` // UTC
	}
)

func (c Contest) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FormulaFor resolves the effective formula for a task: its own, else the
// contest default, else the course default, else the package default.
func FormulaFor(task Task, contest Contest, crs Course) string {
	if task.Formula != "" {
		return task.Formula
	}
	if contest.DefaultFormula != "" {
		return contest.DefaultFormula
	}
	if crs.DefaultFormula != "" {
		return crs.DefaultFormula
	}
	return DefaultFinalScoreFormula
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name               string  `json:"name" validate:"required"`
	ShortName          string  `json:"short_name" validate:"required,alphanum_"`
	OKMethod           string  `json:"ok_method" validate:"required,oneof=CONTESTS_OK SCORE_SUM"`
	OKThresholdPercent float64 `json:"ok_threshold_percent" validate:"gte=0,lte=100"`
	IsOpenRegistration bool    `json:"is_open_registration"`
	DefaultFormula     string  `json:"default_formula"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.ShortName = core.CleanString(nc.ShortName, true /* lower */)
	return core.Validate.Struct(nc)
}

// NewContest contains information needed to attach a contest to a course.
type NewContest struct {
	CourseShortName string    `json:"course" validate:"required"`
	YandexContestID int64     `json:"yandex_contest_id" validate:"required"`
	LectureNumber   int       `json:"lecture" validate:"gte=0"`
	Deadline        null.Time `json:"deadline"`
	Tags            []string  `json:"tags" validate:"dive,oneof=NECESSARY FINAL USUAL EARLY_EXAM"`
	DefaultFormula  string    `json:"default_formula"`
	NameFormat      string    `json:"name_format"`
}

func (nc *NewContest) Validate() error {
	nc.CourseShortName = core.CleanString(nc.CourseShortName, true /* lower */)
	return core.Validate.Struct(nc)
}

// NewTask contains information needed to attach a task to a contest.
type NewTask struct {
	ContestID      int64   `json:"contest_id" validate:"required"`
	ExternalTaskID string  `json:"external_task_id" validate:"required"`
	Alias          string  `json:"alias" validate:"required"`
	IsZeroOK       bool    `json:"is_zero_ok"`
	ScoreMax       float64 `json:"score_max" validate:"gte=0"`
	Formula        string  `json:"formula"`
}

func (nt *NewTask) Validate() error {
	nt.Alias = core.CleanString(nt.Alias)
	nt.ExternalTaskID = core.CleanString(nt.ExternalTaskID)
	return core.Validate.Struct(nt)
}
