package student

import (
	"context"
	"errors"
	"time"

	"github.com/zachetka/backend/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrStudentExists = errors.New("a student with this login already exists")
)

type (
	Repository interface {
		CheckLoginUniqueness(ctx context.Context, login, contestLogin string, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudentByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Student, error)
		GetStudentByLogin(ctx context.Context, login string, exec ...core.DBExecutor) (Student, error)
		GetStudentByContestLogin(ctx context.Context, contestLogin string, exec ...core.DBExecutor) (Student, error)
		// FilterStudents does a case-insensitive match on Login, FullName or ContestLogin.
		FilterStudents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudentContestLogin(ctx context.Context, id int64, contestLogin string, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int, error)
	}

	// AuthorResetter clears the platform author ids resolved for a
	// student, forcing the next sync run to re-resolve them.
	AuthorResetter interface {
		ClearAuthors(ctx context.Context, studentID int64) error
	}

	Service struct {
		repo     Repository
		resetter AuthorResetter
	}
)

func NewService(repo Repository, resetter AuthorResetter) *Service {
	return &Service{repo: repo, resetter: resetter}
}

func (svc *Service) CheckUniqueness(login, contestLogin string) error {
	if err := svc.repo.CheckLoginUniqueness(context.Background(), login, contestLogin); err != nil {
		if err == ErrStudentExists {
			return core.NewValidationError(err, core.FieldError{Field: "login", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		Login:        ns.Login,
		FullName:     ns.FullName,
		ContestLogin: ns.ContestLogin,
		TelegramID:   ns.TelegramID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByLogin(ctx context.Context, login string) (Student, error) {
	return svc.repo.GetStudentByLogin(ctx, core.CleanString(login, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter)
}

// MigrateContestLogin points an existing Student at a new contest platform
// account. Accumulated results are untouched; resolved author ids are
// cleared so the next sync run maps the new account.
func (svc *Service) MigrateContestLogin(ctx context.Context, ml MigrateLogin) (Student, error) {
	std, err := svc.repo.GetStudentByLogin(ctx, ml.Login)
	if err != nil {
		return Student{}, err
	}
	std, err = svc.repo.UpdateStudentContestLogin(ctx, std.ID, ml.NewContestLogin)
	if err != nil {
		return Student{}, err
	}
	if svc.resetter != nil {
		if err = svc.resetter.ClearAuthors(ctx, std.ID); err != nil {
			return Student{}, err
		}
	}
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...int64) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids)
	return err
}
