package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/pace"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/core/user"
	"github.com/d2718/camp-demo/storage/database/inmem"
)

func testConfig() *core.Config {
	return &core.Config{
		Env:                  "TEST",
		AppName:              "Camp",
		DefaultAdminUname:    "root",
		DefaultAdminPassword: "toot",
		DefaultAdminEmail:    "root@camp.test",
		SaltLength:           8,
		PasswordLength:       12,
		KeyTTL:               20 * time.Minute,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func seedCourses() []*course.Course {
	alg := course.New(1, "alg", "Introductory Algebra", "Algebra I", 1.0)
	chs := make([]course.Chapter, 0, 6)
	for i := int16(1); i <= 6; i++ {
		chs = append(chs, course.Chapter{CourseID: 1, Seq: i, Weight: 1.0})
	}
	alg.WithChapters(chs)
	return []*course.Course{alg}
}

// newTestRegistry builds a registry over the in-memory stores, seeded with a
// teacher, two of her students and their credentials, one course, a short
// calendar and the term-boundary dates.
func newTestRegistry(t *testing.T) (*registry.Registry, *inmem.AcademicStore, *inmem.CredentialsStore) {
	t.Helper()
	ctx := context.Background()

	academic := inmem.NewAcademicStore()
	credentials := inmem.NewCredentialsStore(20 * time.Minute)

	academic.Users["jenny"] = &user.Teacher{
		BaseUser: user.BaseUser{Uname: "jenny", Role: user.RoleTeacher, Salt: "saltjenny", Email: "jenny@camp.test"},
		Name:     "Jenny Jones",
	}
	for _, uname := range []string{"jsmith", "mjones"} {
		academic.Users[uname] = &user.Student{
			BaseUser:           user.BaseUser{Uname: uname, Role: user.RoleStudent, Salt: "salt" + uname},
			Last:               "Last",
			Rest:               "First",
			Teacher:            "jenny",
			Parent:             uname + ".parent@example.com",
			FallExamFraction:   0.2,
			SpringExamFraction: 0.2,
		}
	}
	for _, uname := range []string{"jenny", "jsmith", "mjones"} {
		credentials.Creds[uname] = registry.Credential{Uname: uname, Password: "pw-" + uname, Salt: "salt" + uname}
	}
	for _, c := range seedCourses() {
		academic.Courses[c.Sym] = c
	}
	d := date(2023, 9, 1)
	for i := 0; i < 10; i++ {
		academic.Days = append(academic.Days, d)
		d = d.AddDate(0, 0, 1)
	}
	academic.Dates["end-fall"] = date(2024, 1, 15)
	academic.Dates["end-spring"] = date(2024, 5, 30)

	reg := registry.New(testConfig(), core.NewNopLogger(), nil, academic, credentials)
	require.NoError(t, reg.Refresh(ctx))
	return reg, academic, credentials
}

func TestInsertUserBothStores(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	te := &user.Teacher{
		BaseUser: user.BaseUser{Uname: "walter", Role: user.RoleTeacher, Email: "walter@camp.test"},
		Name:     "Walter White",
	}
	require.NoError(t, reg.InsertUser(ctx, te))

	stored, ok := academic.Users["walter"].(*user.Teacher)
	require.True(t, ok)
	assert.NotEmpty(t, stored.Salt)

	cred, ok := credentials.Creds["walter"]
	require.True(t, ok)
	assert.Equal(t, stored.Salt, cred.Salt, "both stores must hold the same salt")
	assert.Len(t, cred.Password, 12)
}

func TestInsertUserValidation(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	te := &user.Teacher{
		BaseUser: user.BaseUser{Uname: "walter", Role: user.RoleTeacher},
		Name:     "Walter <White>",
	}
	err := reg.InsertUser(ctx, te)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	_, inAcademic := academic.Users["walter"]
	_, inCredentials := credentials.Creds["walter"]
	assert.False(t, inAcademic)
	assert.False(t, inCredentials)
}

func TestInsertUserDuplicateUname(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	te := &user.Teacher{
		BaseUser: user.BaseUser{Uname: "jenny", Role: user.RoleTeacher, Email: "jenny2@camp.test"},
		Name:     "The Other Jenny",
	}
	err := reg.InsertUser(ctx, te)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.Contains(t, err.Error(), `"jenny"`)

	// The original records are untouched.
	stored := academic.Users["jenny"].(*user.Teacher)
	assert.Equal(t, "Jenny Jones", stored.Name)
	assert.Equal(t, "pw-jenny", credentials.Creds["jenny"].Password)
}

const uploadCSV = `#uname, last, rest, email, parent, teacher
alice, Apple, Alice, , mom.apple@example.com, jenny
bob, Banana, Bob, , , jenny
`

func TestUploadStudents(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.UploadStudents(ctx, uploadCSV))

	for _, uname := range []string{"alice", "bob"} {
		s, ok := academic.Users[uname].(*user.Student)
		require.True(t, ok, uname)
		assert.NotEmpty(t, s.Salt)
		cred, ok := credentials.Creds[uname]
		require.True(t, ok, uname)
		assert.Equal(t, s.Salt, cred.Salt)
	}
}

func TestUploadStudentsCollisionRejectsWholeBatch(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	data := uploadCSV +
		"jsmith, Smith, John, , , jenny\n" +
		"mjones, Jones, Mary, , , jenny\n"
	err := reg.UploadStudents(ctx, data)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	// Every collision is listed, not just the first.
	assert.Contains(t, err.Error(), "jsmith")
	assert.Contains(t, err.Error(), "mjones")

	// Nothing from the batch landed in either store.
	_, inAcademic := academic.Users["alice"]
	_, inCredentials := credentials.Creds["alice"]
	assert.False(t, inAcademic)
	assert.False(t, inCredentials)
}

func TestUploadStudentsUnknownTeacher(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	err := reg.UploadStudents(ctx, "carol, Cherry, Carol, , , nobody\n")
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.Contains(t, err.Error(), "nobody")
}

func TestUploadStudentsCredentialsFailureRollsBack(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	credentials.FailAddUsers = true
	err := reg.UploadStudents(ctx, uploadCSV)
	require.Error(t, err)

	var serr *registry.SyncError
	assert.False(t, errors.As(err, &serr), "a pre-commit failure is a clean rejection")
	_, inAcademic := academic.Users["alice"]
	assert.False(t, inAcademic, "academic transaction must have rolled back")
}

func TestInsertUserAcademicCommitFailureIsSyncError(t *testing.T) {
	reg, academic, _ := newTestRegistry(t)
	ctx := context.Background()

	academic.FailCommit = true
	te := &user.Teacher{
		BaseUser: user.BaseUser{Uname: "walter", Role: user.RoleTeacher, Email: "walter@camp.test"},
		Name:     "Walter White",
	}
	err := reg.InsertUser(ctx, te)
	require.Error(t, err)

	var serr *registry.SyncError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, []string{"walter"}, serr.Idents)
	assert.Contains(t, err.Error(), "out of sync")
}

func TestDeleteUser(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.DeleteUser(ctx, "mjones"))
	_, inAcademic := academic.Users["mjones"]
	_, inCredentials := credentials.Creds["mjones"]
	assert.False(t, inAcademic)
	assert.False(t, inCredentials)
}

func TestDeleteTeacherWithStudentsRejected(t *testing.T) {
	reg, academic, _ := newTestRegistry(t)
	ctx := context.Background()

	err := reg.DeleteUser(ctx, "jenny")
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.Contains(t, err.Error(), "jsmith")
	assert.Contains(t, err.Error(), "mjones")
	_, still := academic.Users["jenny"]
	assert.True(t, still)
}

func TestYearlyPurge(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	academic.Goals[1] = &pace.Goal{ID: 1, Uname: "jsmith", Source: &pace.BookCh{Sym: "alg", Seq: 1}}

	require.NoError(t, reg.YearlyPurge(ctx))

	for _, uname := range []string{"jsmith", "mjones"} {
		_, inAcademic := academic.Users[uname]
		_, inCredentials := credentials.Creds[uname]
		assert.False(t, inAcademic, uname)
		assert.False(t, inCredentials, uname)
	}
	assert.Empty(t, academic.Goals)

	// Staff survive the purge, and the cache reflects the new state.
	_, still := academic.Users["jenny"]
	assert.True(t, still)
	_, cached := reg.StudentByUname("jsmith")
	assert.False(t, cached)
}

func TestYearlyPurgeCredentialsCommitFailure(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	credentials.FailCommit = true
	err := reg.YearlyPurge(ctx)
	require.Error(t, err)

	var serr *registry.SyncError
	require.True(t, errors.As(err, &serr))
	assert.ElementsMatch(t, []string{"jsmith", "mjones"}, serr.Idents)

	// The academic delete is durable; the credential rows linger for the
	// operator to reconcile.
	_, inAcademic := academic.Users["jsmith"]
	_, inCredentials := credentials.Creds["jsmith"]
	assert.False(t, inAcademic)
	assert.True(t, inCredentials)
}

func TestUpdateUserPreservesStudentMarks(t *testing.T) {
	reg, academic, _ := newTestRegistry(t)
	ctx := context.Background()

	exam := "88"
	js := academic.Users["jsmith"].(*user.Student)
	js.FallExam = &exam
	js.FallNotices = 2
	require.NoError(t, reg.RefreshUsers(ctx))

	upd := *js
	upd.Last = "Smythe"
	upd.FallExam = nil
	upd.FallNotices = 0
	require.NoError(t, reg.UpdateUser(ctx, &upd))

	stored := academic.Users["jsmith"].(*user.Student)
	assert.Equal(t, "Smythe", stored.Last)
	require.NotNil(t, stored.FallExam, "marks are not writable through UpdateUser")
	assert.Equal(t, exam, *stored.FallExam)
	assert.Equal(t, int16(2), stored.FallNotices)
}

func TestSetStudentMarks(t *testing.T) {
	reg, academic, _ := newTestRegistry(t)
	ctx := context.Background()

	exam := "9/10"
	require.NoError(t, reg.SetStudentMarks(ctx, "jsmith", &exam, nil, 1, 0))

	stored := academic.Users["jsmith"].(*user.Student)
	require.NotNil(t, stored.FallExam)
	assert.Equal(t, exam, *stored.FallExam)
	assert.Equal(t, int16(1), stored.FallNotices)
}

func TestAuthenticateAndKeys(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	res, key, err := reg.Authenticate(ctx, "jsmith", "pw-jsmith")
	require.NoError(t, err)
	assert.Equal(t, registry.AuthOK, res)
	require.NotEmpty(t, key)

	ok, err := reg.CheckKey(ctx, "jsmith", key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.CheckKey(ctx, "mjones", key)
	require.NoError(t, err)
	assert.False(t, ok, "keys are bound to their uname")

	res, key, err = reg.Authenticate(ctx, "jsmith", "wrong")
	require.NoError(t, err)
	assert.Equal(t, registry.AuthBadPassword, res)
	assert.Empty(t, key)

	res, _, err = reg.Authenticate(ctx, "nobody", "pw")
	require.NoError(t, err)
	assert.Equal(t, registry.AuthNoSuchUser, res)
}

func TestUpdatePassword(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.UpdatePassword(ctx, "jsmith", "brand-new"))
	res, _, err := reg.Authenticate(ctx, "jsmith", "brand-new")
	require.NoError(t, err)
	assert.Equal(t, registry.AuthOK, res)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	reg, academic, credentials := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.EnsureDefaultAdmin(ctx))
	admin, ok := academic.Users["root"].(*user.Admin)
	require.True(t, ok)
	cred, ok := credentials.Creds["root"]
	require.True(t, ok)
	assert.Equal(t, "toot", cred.Password)
	assert.Equal(t, admin.Salt, cred.Salt)

	// A second call is a no-op, not a collision.
	require.NoError(t, reg.EnsureDefaultAdmin(ctx))
}
