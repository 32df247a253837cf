package academic

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/core/user"
)

// Tx stages user writes that must pair with a credentials-store write.
type Tx struct {
	tx  *sqlx.Tx
	cfg *core.Config
}

var _ registry.AcademicTx = (*Tx)(nil)

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

const insertUser = `INSERT INTO users
	(uname, role, salt, email, name, last, rest, teacher, parent,
	 fall_exam, spring_exam, fall_exam_fraction, spring_exam_fraction,
	 fall_notices, spring_notices)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (t *Tx) insertBase(ctx context.Context, uname string, role user.Role, email, name string) (string, error) {
	var taken bool
	err := t.tx.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM users WHERE uname = $1)`, uname)
	if err != nil {
		return "", errors.Wrap(err, "checking uname")
	}
	if taken {
		return "", core.NewValidationError(errors.Errorf("the uname %q is already in use", uname))
	}

	salt, err := core.RandomString(t.cfg.SaltLength)
	if err != nil {
		return "", errors.Wrap(err, "generating salt")
	}
	_, err = t.tx.ExecContext(ctx, insertUser,
		uname, role, salt, email, name, "", "", "", "",
		nil, nil, user.DefaultExamFraction, user.DefaultExamFraction, 0, 0)
	if err != nil {
		return "", errors.Wrapf(err, "inserting %s %q", strings.ToLower(string(role)), uname)
	}
	return salt, nil
}

func (t *Tx) InsertAdmin(ctx context.Context, uname, email string) (string, error) {
	return t.insertBase(ctx, uname, user.RoleAdmin, email, "")
}

func (t *Tx) InsertBoss(ctx context.Context, uname, email string) (string, error) {
	return t.insertBase(ctx, uname, user.RoleBoss, email, "")
}

func (t *Tx) InsertTeacher(ctx context.Context, uname, email, name string) (string, error) {
	return t.insertBase(ctx, uname, user.RoleTeacher, email, name)
}

// InsertStudents inserts the batch, filling in each student's generated
// salt. Any uname already present rejects the whole batch with a listing of
// every collision.
func (t *Tx) InsertStudents(ctx context.Context, students []*user.Student) (int, error) {
	unames := make([]string, len(students))
	for i, s := range students {
		unames[i] = s.Uname
	}
	var taken []string
	err := t.tx.SelectContext(ctx, &taken,
		`SELECT uname FROM users WHERE uname = ANY ($1) ORDER BY uname`, pq.Array(unames))
	if err != nil {
		return 0, errors.Wrap(err, "checking unames")
	}
	if len(taken) > 0 {
		return 0, core.NewValidationError(errors.Errorf(
			"the following unames are already in use: %s", strings.Join(taken, ", ")))
	}

	for _, s := range students {
		if s.Salt, err = core.RandomString(t.cfg.SaltLength); err != nil {
			return 0, errors.Wrap(err, "generating salt")
		}
		_, err = t.tx.ExecContext(ctx, insertUser,
			s.Uname, user.RoleStudent, s.Salt, s.Email, "", s.Last, s.Rest, s.Teacher, s.Parent,
			null.StringFromPtr(s.FallExam), null.StringFromPtr(s.SpringExam),
			s.FallExamFraction, s.SpringExamFraction, s.FallNotices, s.SpringNotices)
		if err != nil {
			return 0, errors.Wrapf(err, "inserting student %q", s.Uname)
		}
	}
	return len(students), nil
}

func (t *Tx) updateBase(ctx context.Context, uname string, role user.Role, email, name string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET email = $3, name = $4 WHERE uname = $1 AND role = $2`,
		uname, role, email, name)
	if err != nil {
		return errors.Wrapf(err, "updating %s %q", strings.ToLower(string(role)), uname)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no %s with uname %q", strings.ToLower(string(role)), uname)
	}
	return nil
}

func (t *Tx) UpdateAdmin(ctx context.Context, uname, email string) error {
	return t.updateBase(ctx, uname, user.RoleAdmin, email, "")
}

func (t *Tx) UpdateBoss(ctx context.Context, uname, email string) error {
	return t.updateBase(ctx, uname, user.RoleBoss, email, "")
}

func (t *Tx) UpdateTeacher(ctx context.Context, uname, email, name string) error {
	return t.updateBase(ctx, uname, user.RoleTeacher, email, name)
}

func (t *Tx) UpdateStudent(ctx context.Context, s *user.Student) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET email = $2, last = $3, rest = $4, teacher = $5, parent = $6,
		 fall_exam = $7, spring_exam = $8, fall_exam_fraction = $9, spring_exam_fraction = $10,
		 fall_notices = $11, spring_notices = $12
		 WHERE uname = $1 AND role = 'Student'`,
		s.Uname, s.Email, s.Last, s.Rest, s.Teacher, s.Parent,
		null.StringFromPtr(s.FallExam), null.StringFromPtr(s.SpringExam),
		s.FallExamFraction, s.SpringExamFraction, s.FallNotices, s.SpringNotices)
	if err != nil {
		return errors.Wrapf(err, "updating student %q", s.Uname)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no student with uname %q", s.Uname)
	}
	return nil
}

// DeleteUser removes a user and, for students, their goals.
func (t *Tx) DeleteUser(ctx context.Context, uname string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM goals WHERE uname = $1`, uname); err != nil {
		return errors.Wrapf(err, "deleting goals of %q", uname)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE uname = $1`, uname)
	if err != nil {
		return errors.Wrapf(err, "deleting user %q", uname)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no user with uname %q", uname)
	}
	return nil
}

// DeleteAllStudents clears the student body between academic years,
// returning the removed unames.
func (t *Tx) DeleteAllStudents(ctx context.Context) ([]string, error) {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM goals WHERE uname IN (SELECT uname FROM users WHERE role = 'Student')`); err != nil {
		return nil, errors.Wrap(err, "deleting student goals")
	}
	var unames []string
	err := t.tx.SelectContext(ctx, &unames,
		`DELETE FROM users WHERE role = 'Student' RETURNING uname`)
	if err != nil {
		return nil, errors.Wrap(err, "deleting students")
	}
	return unames, nil
}
