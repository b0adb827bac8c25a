package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/zachetka/backend/apps/api/echo"
	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
	"github.com/zachetka/backend/core/syncjob"
	notifysvc "github.com/zachetka/backend/services/notify"
	dummydb "github.com/zachetka/backend/storage/database/dummy"
)

const testAdminPassword = "open sesame"

var validatorsOnce sync.Once

func initTestValidators() {
	validatorsOnce.Do(func() {
		_en := en.New()
		uni := ut.New(_en, _en)
		translator, _ := uni.GetTranslator("en")
		core.InitValidators(validator.New(), translator)
	})
}

type apiLogger struct{}

func (apiLogger) Enable(bool)                  {}
func (apiLogger) Debug(string, ...interface{}) {}
func (apiLogger) Info(string, ...interface{})  {}
func (apiLogger) Warn(string, ...interface{})  {}
func (apiLogger) Error(string, ...interface{}) {}
func (apiLogger) Fatal(string, ...interface{}) {}

// idleClient satisfies the platform surface for endpoints that never reach it.
type idleClient struct{}

func (idleClient) FetchSubmissions(context.Context, int64, int64) ([]results.SubmissionRecord, error) {
	return nil, nil
}
func (idleClient) SubmissionVerdict(context.Context, int64, int64) (results.SubmissionRecord, error) {
	return results.SubmissionRecord{}, nil
}
func (idleClient) Participants(context.Context, int64) ([]syncjob.Participant, error) {
	return nil, nil
}
func (idleClient) RegisterParticipant(context.Context, int64, string) (int64, error) {
	return 0, nil
}

type apiEnv struct {
	app        echoapi.Server
	conf       *core.Config
	studentSvc *student.Service
	courseSvc  *course.Service
	resultsSvc *results.Service
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	initTestValidators()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	conf := &core.Config{
		AppName:           "Zachetka",
		Env:               "TEST",
		TestMode:          true,
		SecretKey:         "test-secret-key",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		Server:            core.ServerConfig{JWTExpiration: time.Hour},
	}

	db := dummydb.Open()
	store := dummydb.NewResultsStore(db)
	courseRepo := dummydb.NewCourseRepository(db)
	logger := apiLogger{}

	env := &apiEnv{
		conf:       conf,
		studentSvc: student.NewService(dummydb.NewStudentRepository(db), store),
		courseSvc:  course.NewService(courseRepo),
		resultsSvc: results.NewService(store, logger),
	}
	orch := syncjob.NewOrchestrator(courseRepo, env.resultsSvc, idleClient{}, logger, notifysvc.NewRecordingNotifier())

	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		StudentSvc:     env.studentSvc,
		CourseSvc:      env.courseSvc,
		ResultsSvc:     env.resultsSvc,
		Orchestrator:   orch,
		DisableReqLogs: true,
	})
	return env
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *apiEnv) login(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (env *apiEnv) seedStudent(t *testing.T, login string) student.Student {
	t.Helper()
	std, err := env.studentSvc.Create(context.Background(), student.NewStudent{
		Login:        login,
		FullName:     "Test Student",
		ContestLogin: login,
	})
	require.NoError(t, err)
	return std
}

func (env *apiEnv) seedCourse(t *testing.T, shortName string, openRegistration bool) course.Course {
	t.Helper()
	crs, err := env.courseSvc.Create(context.Background(), course.NewCourse{
		Name:               "Course " + shortName,
		ShortName:          shortName,
		OKMethod:           course.OKMethodScoreSum,
		OKThresholdPercent: 60,
		IsOpenRegistration: openRegistration,
	})
	require.NoError(t, err)
	return crs
}

func Test_home(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Zachetka API!", rec.Body.String())
}

func Test_auth_login(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing password fails validation")

	env.login(t)
}

func Test_admin_requiresToken(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/admin/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/admin/students", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_admin_createStudent(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/admin/students", token, map[string]string{
		"login":         "alice",
		"full_name":     "Alice Liddell",
		"contest_login": "alice01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var std student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &std))
	assert.Equal(t, "alice", std.Login)
	assert.NotZero(t, std.ID)

	// duplicate login is a validation error
	rec = env.do(t, http.MethodPost, "/v1/admin/students", token, map[string]string{
		"login":         "alice",
		"full_name":     "Another Alice",
		"contest_login": "alice02",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing required fields
	rec = env.do(t, http.MethodPost, "/v1/admin/students", token, map[string]string{"login": "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_admin_courseSetup(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/admin/courses", token, map[string]interface{}{
		"name":                 "Algorithms",
		"short_name":           "algo",
		"ok_method":            course.OKMethodScoreSum,
		"ok_threshold_percent": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/admin/courses/algo/contests", token, map[string]interface{}{
		"yandex_contest_id": 777,
		"lecture":           1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cnt course.Contest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cnt))

	rec = env.do(t, http.MethodPost, "/v1/admin/contests/"+strconv.FormatInt(cnt.ID, 10)+"/tasks", token, map[string]interface{}{
		"external_task_id": "t1",
		"alias":            "A",
		"score_max":        10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// course aggregates follow the attached structure
	crs, err := env.courseSvc.GetByShortName(context.Background(), "algo")
	require.NoError(t, err)
	assert.Equal(t, 1, crs.ContestCount)
	assert.Equal(t, 10.0, crs.ScoreMax)
}

func Test_course_register(t *testing.T) {
	env := newAPIEnv(t)
	env.seedStudent(t, "alice")
	env.seedCourse(t, "algo", true)
	env.seedCourse(t, "closed", false)

	rec := env.do(t, http.MethodPost, "/v1/courses/algo/register", "", map[string]string{"login": "alice"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// repeat registration is a no-op, not an error
	rec = env.do(t, http.MethodPost, "/v1/courses/algo/register", "", map[string]string{"login": "alice"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/courses/closed/register", "", map[string]string{"login": "alice"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/courses/algo/register", "", map[string]string{"login": "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/courses/missing/register", "", map[string]string{"login": "alice"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_course_results(t *testing.T) {
	env := newAPIEnv(t)
	std := env.seedStudent(t, "alice")
	env.seedStudent(t, "carol")
	crs := env.seedCourse(t, "algo", true)
	require.NoError(t, env.resultsSvc.Enroll(context.Background(), std.ID, crs))

	rec := env.do(t, http.MethodGet, "/v1/courses/algo/results?login=alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res results.CourseResults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, std.ID, res.Summary.StudentID)

	rec = env.do(t, http.MethodGet, "/v1/courses/algo/results", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "login is required")

	rec = env.do(t, http.MethodGet, "/v1/courses/algo/results?login=carol", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "carol is not enrolled")

	rec = env.do(t, http.MethodGet, "/v1/courses/algo/results?login=nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_course_query(t *testing.T) {
	env := newAPIEnv(t)
	env.seedCourse(t, "algo", true)

	rec := env.do(t, http.MethodGet, "/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var courses []course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, "algo", courses[0].ShortName)

	rec = env.do(t, http.MethodGet, "/v1/courses/algo", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/courses/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_student_retrieve(t *testing.T) {
	env := newAPIEnv(t)
	env.seedStudent(t, "alice")

	rec := env.do(t, http.MethodGet, "/v1/students/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var std student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &std))
	assert.Equal(t, "alice", std.Login)

	rec = env.do(t, http.MethodGet, "/v1/students/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_admin_migrateLoginEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)
	env.seedStudent(t, "alice")

	rec := env.do(t, http.MethodPost, "/v1/admin/students/login-migration", token, map[string]string{
		"login":             "alice",
		"new_contest_login": "alice_new",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var std student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &std))
	assert.Equal(t, "alice_new", std.ContestLogin)

	rec = env.do(t, http.MethodPost, "/v1/admin/students/login-migration", token, map[string]string{
		"login":             "nobody",
		"new_contest_login": "x",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_admin_recompute(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)
	env.seedCourse(t, "algo", true)

	rec := env.do(t, http.MethodPost, "/v1/admin/courses/algo/recompute", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
