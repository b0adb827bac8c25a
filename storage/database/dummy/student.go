package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckLoginUniqueness(ctx context.Context, login, contestLogin string, exec ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, std := range repo.db.students {
		if std.Login == login || std.ContestLogin == contestLogin {
			return student.ErrStudentExists
		}
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	std.ID = repo.db.nextID()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int64, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo studentRepository) GetStudentByLogin(ctx context.Context, login string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, std := range repo.db.students {
		if std.Login == login {
			return *std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo studentRepository) GetStudentByContestLogin(ctx context.Context, contestLogin string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, std := range repo.db.students {
		if strings.EqualFold(std.ContestLogin, contestLogin) {
			return *std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	match := func(std *student.Student) bool {
		if filter.Search == "" {
			return true
		}
		s := strings.ToLower(filter.Search)
		return strings.Contains(strings.ToLower(std.Login), s) ||
			strings.Contains(strings.ToLower(std.FullName), s) ||
			strings.Contains(strings.ToLower(std.ContestLogin), s)
	}
	students := make([]student.Student, 0)
	for _, std := range repo.db.students {
		if match(std) {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Login < students[j].Login })
	return students, nil
}

func (repo studentRepository) UpdateStudentContestLogin(ctx context.Context, id int64, contestLogin string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	std, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.ContestLogin = contestLogin
	return *std, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	var n int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			delete(repo.db.students, id)
			n++
		}
	}
	return n, nil
}
