package pace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2718/camp-demo/core/user"
)

// mapRoster is a trivial Roster over maps.
type mapRoster struct {
	students map[string]*user.Student
	teachers map[string]*user.Teacher
}

func (m mapRoster) StudentByUname(uname string) (*user.Student, bool) {
	s, ok := m.students[uname]
	return s, ok
}

func (m mapRoster) TeacherByUname(uname string) (*user.Teacher, bool) {
	t, ok := m.teachers[uname]
	return t, ok
}

func testRoster() mapRoster {
	jsmith := testStudent()
	mjones := user.Student{
		BaseUser: user.BaseUser{Uname: "mjones", Role: user.RoleStudent},
		Last:     "Jones", Rest: "Mary", Teacher: "jenny",
	}
	jenny := testTeacher()
	return mapRoster{
		students: map[string]*user.Student{"jsmith": &jsmith, "mjones": &mjones},
		teachers: map[string]*user.Teacher{"jenny": &jenny},
	}
}

func TestPacesFromCSV(t *testing.T) {
	data := `#uname, sym, seq,    y,  m,  d, rev, inc
jsmith, alg,  1, 2023,  9, 15,   ,
      ,    ,  2,     , 10,   ,  x,
      ,    ,  3,     ,   , 28,   ,  x
mjones, geo,  1, 2023,  9, 20,   ,
`
	paces, err := PacesFromCSV(strings.NewReader(data), testRoster(), testCatalog())
	require.NoError(t, err)
	require.Len(t, paces, 2)

	// Result is sorted by student uname.
	assert.Equal(t, "jsmith", paces[0].Student.Uname)
	assert.Equal(t, "mjones", paces[1].Student.Uname)

	js := paces[0]
	require.Len(t, js.Goals, 3)

	// Blank uname, sym, year and month carry forward from the prior row;
	// the second row keeps September's day 15, the third October's 28.
	g2 := js.Goals[1]
	bch, err := g2.Book()
	require.NoError(t, err)
	assert.Equal(t, "alg", bch.Sym)
	assert.Equal(t, int16(2), bch.Seq)
	require.NotNil(t, g2.Due)
	assert.Equal(t, date(2023, 10, 15), *g2.Due)
	assert.True(t, g2.Review)
	assert.False(t, g2.Incomplete)

	g3 := js.Goals[2]
	require.NotNil(t, g3.Due)
	assert.Equal(t, date(2023, 10, 28), *g3.Due)
	assert.True(t, g3.Incomplete)

	mj := paces[1]
	require.Len(t, mj.Goals, 1)
	assert.InDelta(t, 0.25, mj.Goals[0].Weight, 1e-9)
}

func TestPacesFromCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{
			name:    "first row needs a uname",
			data:    ", alg, 1, 2023, 9, 15,,\n",
			wantMsg: "no uname",
		},
		{
			name:    "unknown student",
			data:    "nobody, alg, 1, 2023, 9, 15,,\n",
			wantMsg: `"nobody" is not a student uname`,
		},
		{
			name:    "unknown course",
			data:    "jsmith, trig, 1, 2023, 9, 15,,\n",
			wantMsg: "unknown course",
		},
		{
			name:    "missing chapter number",
			data:    "jsmith, alg, , 2023, 9, 15,,\n",
			wantMsg: "no chapter number",
		},
		{
			name:    "invalid month",
			data:    "jsmith, alg, 1, 2023, 13, 15,,\n",
			wantMsg: "not a valid month",
		},
		{
			name:    "impossible date",
			data:    "jsmith, alg, 1, 2023, 2, 30,,\n",
			wantMsg: "not a valid date",
		},
		{
			name:    "error reports line number",
			data:    "jsmith, alg, 1, 2023, 9, 15,,\njsmith, alg, 99, , , ,,\n",
			wantMsg: "line 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PacesFromCSV(strings.NewReader(tt.data), testRoster(), testCatalog())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
