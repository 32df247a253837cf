package registry

import (
	"context"
	"time"

	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/pace"
	"github.com/d2718/camp-demo/core/user"
)

type (
	// AcademicStore is the academic-records side of the system: users,
	// courses, goals and the academic calendar. Mutations that must pair
	// with a credentials write happen inside an AcademicTx; everything else
	// manages its own transaction.
	AcademicStore interface {
		Begin(ctx context.Context) (AcademicTx, error)

		GetUsers(ctx context.Context) ([]user.User, error)
		GetUserByUname(ctx context.Context, uname string) (user.User, error)

		GetCourses(ctx context.Context) ([]*course.Course, error)
		InsertCourses(ctx context.Context, courses []*course.Course) error
		// DeleteCourse removes a course and its chapters, returning the
		// counts of rows removed.
		DeleteCourse(ctx context.Context, sym string) (nCourses, nChapters int, err error)
		DeleteChapter(ctx context.Context, sym string, seq int16) error
		// StudentsWithGoalsIn lists unames of students holding goals that
		// reference the given course, optionally narrowed to one chapter
		// (seq < 0 means the whole course).
		StudentsWithGoalsIn(ctx context.Context, sym string, seq int16) ([]string, error)

		GetCalendar(ctx context.Context) ([]time.Time, error)
		SetCalendar(ctx context.Context, days []time.Time) error
		GetDates(ctx context.Context) (map[string]time.Time, error)
		SetDate(ctx context.Context, name string, d time.Time) error

		GetGoalsByStudent(ctx context.Context, uname string) ([]*pace.Goal, error)
		GetGoalsByTeacher(ctx context.Context, tuname string) ([]*pace.Goal, error)
		InsertGoals(ctx context.Context, goals []*pace.Goal) (int, error)
		UpdateGoal(ctx context.Context, g *pace.Goal) error
		// UpdateDueDates persists (only) the due dates of the given goals,
		// the step that follows a successful autopace.
		UpdateDueDates(ctx context.Context, goals []*pace.Goal) error
		DeleteGoal(ctx context.Context, id int64) error
	}

	// AcademicTx stages user writes in the academic store. Insert methods
	// return the per-user salt the store generates; the credentials store
	// needs it before this transaction commits.
	AcademicTx interface {
		InsertAdmin(ctx context.Context, uname, email string) (salt string, err error)
		InsertBoss(ctx context.Context, uname, email string) (salt string, err error)
		InsertTeacher(ctx context.Context, uname, email, name string) (salt string, err error)
		// InsertStudents inserts the whole batch, filling in each student's
		// generated salt. A uname collision rejects the entire batch with
		// an error listing every collision.
		InsertStudents(ctx context.Context, students []*user.Student) (int, error)

		UpdateAdmin(ctx context.Context, uname, email string) error
		UpdateBoss(ctx context.Context, uname, email string) error
		UpdateTeacher(ctx context.Context, uname, email, name string) error
		UpdateStudent(ctx context.Context, s *user.Student) error

		DeleteUser(ctx context.Context, uname string) error
		// DeleteAllStudents clears the student body between academic years,
		// returning the removed unames.
		DeleteAllStudents(ctx context.Context) ([]string, error)

		Commit() error
		Rollback() error
	}

	// CredentialsStore is the authentication side: password hashes keyed by
	// uname+salt, and opaque session keys.
	CredentialsStore interface {
		Begin(ctx context.Context) (CredentialsTx, error)

		CheckPassword(ctx context.Context, uname, password, salt string) (AuthResult, error)
		SetPassword(ctx context.Context, uname, password, salt string) error
		// IssueKey mints a session key without a password check, for
		// key-by-email password reset flows.
		IssueKey(ctx context.Context, uname string) (string, error)
		// CheckKey reports whether the key is live for the uname and, on
		// success, refreshes its last-used time.
		CheckKey(ctx context.Context, uname, key string) (bool, error)
		CullOldKeys(ctx context.Context) (int, error)
	}

	CredentialsTx interface {
		AddUsers(ctx context.Context, creds []Credential) error
		DeleteUsers(ctx context.Context, unames []string) (int, error)

		Commit() error
		Rollback() error
	}

	// Credential is one user's login material as handed to the credentials
	// store: the salt comes from the academic store's insert.
	Credential struct {
		Uname    string
		Password string
		Salt     string
	}
)

// AuthResult is the outcome of a credentials check.
type AuthResult int

const (
	AuthOK AuthResult = iota
	AuthBadPassword
	AuthNoSuchUser
)

func (r AuthResult) String() string {
	switch r {
	case AuthOK:
		return "ok"
	case AuthBadPassword:
		return "bad password"
	default:
		return "no such user"
	}
}
