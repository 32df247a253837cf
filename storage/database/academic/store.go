// Package academic is the Postgres implementation of the academic-records
// store: users, the course catalog, goals, the school calendar and named
// dates.
package academic

import (
	"context"
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/core/user"
	"github.com/d2718/camp-demo/storage/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements registry.AcademicStore over Postgres.
type Store struct {
	db  *sqlx.DB
	cfg *core.Config
	log core.Logger
}

var _ registry.AcademicStore = (*Store)(nil)

func NewStore(db *sqlx.DB, cfg *core.Config, log core.Logger) *Store {
	return &Store{db: db, cfg: cfg, log: log}
}

// Open connects to the academic database and waits for it to respond.
func Open(cfg *core.Config, log core.Logger) (*Store, error) {
	db, err := database.Open(cfg.AcademicDB)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(db); err != nil {
		return nil, err
	}
	return NewStore(db, cfg, log), nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate brings the academic schema up to date.
func (s *Store) Migrate() error {
	return database.Migrate(s.db, migrations)
}

func (s *Store) Begin(ctx context.Context) (registry.AcademicTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning academic transaction")
	}
	return &Tx{tx: tx, cfg: s.cfg}, nil
}

// userRow is the single-table projection of all four user types.
type userRow struct {
	Uname              string      `db:"uname"`
	Role               string      `db:"role"`
	Salt               string      `db:"salt"`
	Email              string      `db:"email"`
	Name               string      `db:"name"`
	Last               string      `db:"last"`
	Rest               string      `db:"rest"`
	Teacher            string      `db:"teacher"`
	Parent             string      `db:"parent"`
	FallExam           null.String `db:"fall_exam"`
	SpringExam         null.String `db:"spring_exam"`
	FallExamFraction   float64     `db:"fall_exam_fraction"`
	SpringExamFraction float64     `db:"spring_exam_fraction"`
	FallNotices        int16       `db:"fall_notices"`
	SpringNotices      int16       `db:"spring_notices"`
}

func (r userRow) toUser() (user.User, error) {
	base := user.BaseUser{
		Uname: r.Uname,
		Role:  user.Role(r.Role),
		Salt:  r.Salt,
		Email: r.Email,
	}
	switch base.Role {
	case user.RoleAdmin:
		return &user.Admin{BaseUser: base}, nil
	case user.RoleBoss:
		return &user.Boss{BaseUser: base}, nil
	case user.RoleTeacher:
		return &user.Teacher{BaseUser: base, Name: r.Name}, nil
	case user.RoleStudent:
		return &user.Student{
			BaseUser:           base,
			Last:               r.Last,
			Rest:               r.Rest,
			Teacher:            r.Teacher,
			Parent:             r.Parent,
			FallExam:           r.FallExam.Ptr(),
			SpringExam:         r.SpringExam.Ptr(),
			FallExamFraction:   r.FallExamFraction,
			SpringExamFraction: r.SpringExamFraction,
			FallNotices:        r.FallNotices,
			SpringNotices:      r.SpringNotices,
		}, nil
	}
	return nil, errors.Errorf("user %q has unknown role %q", r.Uname, r.Role)
}

const selectUsers = `SELECT uname, role, salt, email, name, last, rest, teacher, parent,
	fall_exam, spring_exam, fall_exam_fraction, spring_exam_fraction,
	fall_notices, spring_notices FROM users`

func (s *Store) GetUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, selectUsers); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		u, err := r.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) GetUserByUname(ctx context.Context, uname string) (user.User, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, selectUsers+" WHERE uname = $1", uname)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting user %q", uname)
	}
	return r.toUser()
}
