package registry

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/user"
)

// InsertUser creates a user of any role in both stores. The academic store
// stages the row and generates the salt; the credentials store then gets the
// uname, a random starting password and that salt; the academic transaction
// commits last.
func (r *Registry) InsertUser(ctx context.Context, u user.User) error {
	if err := user.Validate(u); err != nil {
		return err
	}
	uname := u.Base().Uname

	password, err := core.RandomString(r.cfg.PasswordLength)
	if err != nil {
		return errors.Wrap(err, "generating starting password")
	}

	out := r.dualWrite(ctx, "insert user", []string{uname}, func(atx AcademicTx) (func(context.Context, CredentialsTx) error, error) {
		var salt string
		var err error
		switch u := u.(type) {
		case *user.Admin:
			salt, err = atx.InsertAdmin(ctx, uname, u.Email)
		case *user.Boss:
			salt, err = atx.InsertBoss(ctx, uname, u.Email)
		case *user.Teacher:
			salt, err = atx.InsertTeacher(ctx, uname, u.Email, u.Name)
		case *user.Student:
			if _, err = atx.InsertStudents(ctx, []*user.Student{u}); err == nil {
				salt = u.Salt
			}
		default:
			err = errors.Errorf("unhandled user type %T", u)
		}
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx CredentialsTx) error {
			return tx.AddUsers(ctx, []Credential{{Uname: uname, Password: password, Salt: salt}})
		}, nil
	})
	return out.Resolve()
}

// UploadStudents bulk-creates students from CSV data. The whole batch is
// validated first (field rules, teacher assignment); inside the academic
// transaction the store checks every uname for collisions and rejects the
// entire batch, listing all of them, before anything is written.
func (r *Registry) UploadStudents(ctx context.Context, csvData string) error {
	students, err := user.StudentsFromCSV(strings.NewReader(csvData))
	if err != nil {
		return core.NewValidationError(err)
	}
	if len(students) == 0 {
		return core.NewValidationError(errors.New("no student rows in CSV data"))
	}

	var notTeachers []string
	for _, s := range students {
		if err := user.Validate(s); err != nil {
			return errors.Wrapf(err, "student %q", s.Uname)
		}
		if _, ok := r.TeacherByUname(s.Teacher); !ok {
			notTeachers = append(notTeachers,
				s.Teacher+" (assigned to "+s.Last+", "+s.Rest+")")
		}
	}
	if len(notTeachers) > 0 {
		return core.NewValidationError(errors.Errorf(
			"students are assigned to unames which are not teachers:\n%s",
			strings.Join(notTeachers, "\n")))
	}

	unames := make([]string, len(students))
	passwords := make([]string, len(students))
	for i, s := range students {
		unames[i] = s.Uname
		if passwords[i], err = core.RandomString(r.cfg.PasswordLength); err != nil {
			return errors.Wrap(err, "generating starting passwords")
		}
	}

	out := r.dualWrite(ctx, "upload students", unames, func(atx AcademicTx) (func(context.Context, CredentialsTx) error, error) {
		n, err := atx.InsertStudents(ctx, students)
		if err != nil {
			return nil, err
		}
		r.log.Debug("staged students in academic store", n)
		return func(ctx context.Context, tx CredentialsTx) error {
			creds := make([]Credential, len(students))
			for i, s := range students {
				creds[i] = Credential{Uname: s.Uname, Password: passwords[i], Salt: s.Salt}
			}
			return tx.AddUsers(ctx, creds)
		}, nil
	})
	return out.Resolve()
}

// UpdateUser rewrites the academic record for u.Base().Uname. Only the
// academic store is touched, so this is a single-transaction operation.
//
// A student's exam and notice fields are preserved from the cached record:
// the administrative surface that submits updates has no access to them.
func (r *Registry) UpdateUser(ctx context.Context, u user.User) error {
	if err := user.Validate(u); err != nil {
		return err
	}

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	atx, err := r.academic.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning academic transaction")
	}

	switch u := u.(type) {
	case *user.Admin:
		err = atx.UpdateAdmin(ctx, u.Uname, u.Email)
	case *user.Boss:
		err = atx.UpdateBoss(ctx, u.Uname, u.Email)
	case *user.Teacher:
		err = atx.UpdateTeacher(ctx, u.Uname, u.Email, u.Name)
	case *user.Student:
		old, ok := r.StudentByUname(u.Uname)
		if !ok {
			err = core.NewValidationError(errors.Errorf("%q is not a student in the database", u.Uname))
			break
		}
		s := *u
		s.FallExam = old.FallExam
		s.SpringExam = old.SpringExam
		s.FallExamFraction = old.FallExamFraction
		s.SpringExamFraction = old.SpringExamFraction
		s.FallNotices = old.FallNotices
		s.SpringNotices = old.SpringNotices
		err = atx.UpdateStudent(ctx, &s)
	default:
		err = errors.Errorf("unhandled user type %T", u)
	}
	if err != nil {
		_ = atx.Rollback()
		return err
	}
	return atx.Commit()
}

// SetStudentMarks writes a student's exam and notice fields, the one part of
// the record the administrative update path cannot touch.
func (r *Registry) SetStudentMarks(ctx context.Context, uname string, fallExam, springExam *string, fallNotices, springNotices int16) error {
	old, ok := r.StudentByUname(uname)
	if !ok {
		return core.NewValidationError(errors.Errorf("%q is not a student in the database", uname))
	}
	s := *old
	s.FallExam = fallExam
	s.SpringExam = springExam
	s.FallNotices = fallNotices
	s.SpringNotices = springNotices

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	atx, err := r.academic.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning academic transaction")
	}
	if err := atx.UpdateStudent(ctx, &s); err != nil {
		_ = atx.Rollback()
		return err
	}
	return atx.Commit()
}

// DeleteUser removes all record of uname from both stores. Deleting a
// teacher who still has students assigned is rejected with a listing of
// those students.
func (r *Registry) DeleteUser(ctx context.Context, uname string) error {
	u, ok := r.UserByUname(uname)
	if !ok {
		return core.NewValidationError(errors.Errorf("no user %q", uname))
	}
	if _, isTeacher := u.(*user.Teacher); isTeacher {
		if studs := r.StudentsByTeacher(uname); len(studs) > 0 {
			names := make([]string, len(studs))
			for i, s := range studs {
				names[i] = s.Uname
			}
			return core.NewValidationError(errors.Errorf(
				"the following students are still assigned to teacher %q:\n%s",
				uname, strings.Join(names, "\n")))
		}
	}

	out := r.dualWrite(ctx, "delete user", []string{uname}, func(atx AcademicTx) (func(context.Context, CredentialsTx) error, error) {
		if err := atx.DeleteUser(ctx, uname); err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx CredentialsTx) error {
			_, err := tx.DeleteUsers(ctx, []string{uname})
			return err
		}, nil
	})
	return out.Resolve()
}

// YearlyPurge deletes all students and their goals from both stores, the
// once-a-year reset between academic years.
//
// Unlike the insert path, the academic transaction commits first here: the
// set of unames to remove from the credentials store is only authoritative
// once the academic delete is final. A credentials commit failure after that
// is the hazard case.
func (r *Registry) YearlyPurge(ctx context.Context) error {
	out := r.purge(ctx)
	if out.State == StateCommitted {
		if err := r.RefreshUsers(ctx); err != nil {
			r.log.Error("refreshing users after yearly purge", err)
		}
	}
	return out.Resolve()
}

func (r *Registry) purge(ctx context.Context) Outcome {
	const op = "yearly purge"

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	atx, err := r.academic.Begin(ctx)
	if err != nil {
		return Outcome{StateRejected, errors.Wrapf(err, "%s: beginning academic transaction", op)}
	}
	unames, err := atx.DeleteAllStudents(ctx)
	if err != nil {
		_ = atx.Rollback()
		return Outcome{StateRejected, errors.Wrapf(err, "%s: academic store", op)}
	}

	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()

	credTx, err := r.credentials.Begin(ctx)
	if err != nil {
		_ = atx.Rollback()
		return Outcome{StateRejected, errors.Wrapf(err, "%s: beginning credentials transaction", op)}
	}
	if _, err := credTx.DeleteUsers(ctx, unames); err != nil {
		_ = credTx.Rollback()
		_ = atx.Rollback()
		return Outcome{StateRejected, errors.Wrapf(err, "%s: credentials store", op)}
	}

	if err := atx.Commit(); err != nil {
		_ = credTx.Rollback()
		return Outcome{StateRejected, errors.Wrapf(err, "%s: committing academic transaction", op)}
	}
	if err := credTx.Commit(); err != nil {
		serr := &SyncError{Op: op, Idents: unames, cause: err}
		r.alert.Error(serr.Error(), serr)
		return Outcome{StateInconsistent, serr}
	}
	return Outcome{StateCommitted, nil}
}

// UpdatePassword sets uname's password in the credentials store. Single-store.
func (r *Registry) UpdatePassword(ctx context.Context, uname, newPassword string) error {
	u, ok := r.UserByUname(uname)
	if !ok {
		return core.NewValidationError(errors.Errorf("no user %q", uname))
	}

	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()
	return r.credentials.SetPassword(ctx, uname, newPassword, u.Base().Salt)
}

// Authenticate checks a password against the credentials store and, on
// success, issues a fresh session key.
func (r *Registry) Authenticate(ctx context.Context, uname, password string) (AuthResult, string, error) {
	u, ok := r.UserByUname(uname)
	if !ok {
		return AuthNoSuchUser, "", nil
	}

	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()

	res, err := r.credentials.CheckPassword(ctx, uname, password, u.Base().Salt)
	if err != nil || res != AuthOK {
		return res, "", err
	}
	key, err := r.credentials.IssueKey(ctx, uname)
	return AuthOK, key, err
}

// CheckKey reports whether a session key is live for uname.
func (r *Registry) CheckKey(ctx context.Context, uname, key string) (bool, error) {
	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()
	return r.credentials.CheckKey(ctx, uname, key)
}

// CullOldKeys drops session keys idle past the configured TTL.
func (r *Registry) CullOldKeys(ctx context.Context) (int, error) {
	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()
	return r.credentials.CullOldKeys(ctx)
}

// EnsureDefaultAdmin makes sure the configured administrator exists in both
// stores. Called once at startup so a fresh deployment can be logged into.
func (r *Registry) EnsureDefaultAdmin(ctx context.Context) error {
	r.academicMu.RLock()
	existing, err := r.academic.GetUserByUname(ctx, r.cfg.DefaultAdminUname)
	r.academicMu.RUnlock()
	if err == nil && existing != nil {
		return nil
	}

	uname := r.cfg.DefaultAdminUname
	out := r.dualWrite(ctx, "ensure default admin", []string{uname}, func(atx AcademicTx) (func(context.Context, CredentialsTx) error, error) {
		salt, err := atx.InsertAdmin(ctx, uname, r.cfg.DefaultAdminEmail)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx CredentialsTx) error {
			return tx.AddUsers(ctx, []Credential{{
				Uname:    uname,
				Password: r.cfg.DefaultAdminPassword,
				Salt:     salt,
			}})
		}, nil
	})
	if out.State == StateCommitted {
		r.log.Info("created default admin", uname)
	}
	return out.Resolve()
}
