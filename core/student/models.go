package student

import (
	"time"

	"github.com/zachetka/backend/core"
)

// Student identifies one enrolled person across the three systems we talk
// to: our own login, the external contest platform login and the messaging
// identity used by the notification bot.
//
// A Student is immutable once created; the only sanctioned change is a
// login migration (a student renames their platform account and the old
// contest login stops resolving).
type Student struct {
	ID           int64     `db:"id" json:"id"`
	Login        string    `db:"login" json:"login"`
	FullName     string    `db:"full_name" json:"full_name"`
	ContestLogin string    `db:"contest_login" json:"contest_login"`
	TelegramID   string    `db:"telegram_id" json:"telegram_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Login        string `json:"login" validate:"required,min=2,alphanum_"`
	FullName     string `json:"full_name" validate:"required"`
	ContestLogin string `json:"contest_login" validate:"required"`
	TelegramID   string `json:"telegram_id"`
}

func (ns *NewStudent) Validate(svc *Service) error {
	ns.Login = core.CleanString(ns.Login, true /* lower */)
	ns.FullName = core.CleanString(ns.FullName)
	ns.ContestLogin = core.CleanString(ns.ContestLogin, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Login, ns.ContestLogin)
}

// MigrateLogin defines the login-migration edge case: the student changed
// their account on the contest platform and submissions now arrive under a
// new contest login.
type MigrateLogin struct {
	Login           string `json:"login" validate:"required"`
	NewContestLogin string `json:"new_contest_login" validate:"required"`
}

func (ml *MigrateLogin) Validate() error {
	ml.Login = core.CleanString(ml.Login, true /* lower */)
	ml.NewContestLogin = core.CleanString(ml.NewContestLogin, true /* lower */)
	return core.Validate.Struct(ml)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
