package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentsFromCSV(t *testing.T) {
	data := `#uname, last,  rest, email,                  parent,              teacher
jsmith, Smith, John, lil.j.smithy@gmail.com, js.senior@gmail.com, jenny

mjones, Jones, Mary, , mom.jones@example.com, jenny
`
	students, err := StudentsFromCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, students, 2)

	js := students[0]
	assert.Equal(t, "jsmith", js.Uname)
	assert.Equal(t, RoleStudent, js.Role)
	assert.Equal(t, "Smith", js.Last)
	assert.Equal(t, "John", js.Rest)
	assert.Equal(t, "John Smith", js.FullName())
	assert.Equal(t, "lil.j.smithy@gmail.com", js.Email)
	assert.Equal(t, "js.senior@gmail.com", js.Parent)
	assert.Equal(t, "jenny", js.Teacher)
	assert.Equal(t, DefaultExamFraction, js.FallExamFraction)
	assert.Equal(t, DefaultExamFraction, js.SpringExamFraction)
	assert.Zero(t, js.FallNotices)
	assert.Nil(t, js.FallExam)

	assert.Empty(t, students[1].Email, "email is optional")
}

func TestStudentsFromCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{name: "short record", data: "jsmith, Smith, John\n", wantMsg: "expected 6 fields"},
		{name: "no uname", data: ", Smith, John, , , jenny\n", wantMsg: "no uname"},
		{name: "no last name", data: "jsmith, , John, , , jenny\n", wantMsg: "no last name"},
		{name: "no teacher", data: "jsmith, Smith, John, , ,\n", wantMsg: "no teacher uname"},
		{
			name:    "error reports line number",
			data:    "jsmith, Smith, John, , , jenny\nmjones, , Mary, , , jenny\n",
			wantMsg: "line 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StudentsFromCSV(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate(t *testing.T) {
	good := func() *Student {
		return &Student{
			BaseUser: BaseUser{Uname: "jsmith", Role: RoleStudent, Email: "j@test.test"},
			Last:     "Smith",
			Rest:     "John",
			Teacher:  "jenny",
			Parent:   "parent@test.test",
		}
	}

	tests := []struct {
		name    string
		mangle  func(*Student)
		wantErr bool
	}{
		{name: "valid", mangle: func(*Student) {}},
		{name: "empty uname", mangle: func(s *Student) { s.Uname = "" }, wantErr: true},
		{name: "uname with markup", mangle: func(s *Student) { s.Uname = "j<smith>" }, wantErr: true},
		{name: "uname with space", mangle: func(s *Student) { s.Uname = "j smith" }, wantErr: true},
		{name: "name with ampersand", mangle: func(s *Student) { s.Last = "Smith & Sons" }, wantErr: true},
		{name: "name with quote", mangle: func(s *Student) { s.Rest = `J"ohn` }, wantErr: true},
		{name: "accented name is fine", mangle: func(s *Student) { s.Last = "Ibañez" }},
		{name: "bad email", mangle: func(s *Student) { s.Email = "not-an-address" }, wantErr: true},
		{name: "empty email is fine", mangle: func(s *Student) { s.Email = "" }},
		{name: "bad parent email", mangle: func(s *Student) { s.Parent = "mom at example" }, wantErr: true},
		{name: "teacher ref with markup", mangle: func(s *Student) { s.Teacher = "je'nny" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good()
			tt.mangle(s)
			err := Validate(s)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTeacher(t *testing.T) {
	te := &Teacher{
		BaseUser: BaseUser{Uname: "jenny", Role: RoleTeacher, Email: "jenny@test.test"},
		Name:     "Jenny Jones",
	}
	assert.NoError(t, Validate(te))

	te.Name = "Jenny <Jones>"
	assert.Error(t, Validate(te))
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"Admin", "Boss", "Teacher", "Student"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), r)
	}
	_, err := ParseRole("Janitor")
	assert.Error(t, err)
}
