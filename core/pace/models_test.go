package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/user"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func strPtr(s string) *string { return &s }

// testCatalog is a two-course fixture: "alg" (level 1, six unit-weight
// chapters) and "geo" (level 2, four chapters of weight 2).
func testCatalog() course.MapCatalog {
	alg := course.New(1, "alg", "Introductory Algebra", "Algebra I", 1.0)
	algCh := make([]course.Chapter, 0, 6)
	for i := int16(1); i <= 6; i++ {
		algCh = append(algCh, course.Chapter{CourseID: 1, Seq: i, Weight: 1.0})
	}
	alg.WithChapters(algCh)

	geo := course.New(2, "geo", "Planar Geometry", "Geometry", 2.0)
	geoCh := make([]course.Chapter, 0, 4)
	for i := int16(1); i <= 4; i++ {
		geoCh = append(geoCh, course.Chapter{CourseID: 2, Seq: i, Weight: 2.0})
	}
	geo.WithChapters(geoCh)

	return course.MapCatalog{"alg": alg, "geo": geo}
}

func testStudent() user.Student {
	return user.Student{
		BaseUser:           user.BaseUser{Uname: "jsmith", Role: user.RoleStudent},
		Last:               "Smith",
		Rest:               "John",
		Teacher:            "jenny",
		FallExamFraction:   0.2,
		SpringExamFraction: 0.2,
	}
}

func testTeacher() user.Teacher {
	return user.Teacher{
		BaseUser: user.BaseUser{Uname: "jenny", Role: user.RoleTeacher, Email: "jenny@school.test"},
		Name:     "Jenny Jones",
	}
}

func TestGoalOrdering(t *testing.T) {
	goals := []*Goal{
		{ID: 1, Source: &BookCh{Sym: "alg", Seq: 3, Level: 1}},
		{ID: 2, Source: &BookCh{Sym: "alg", Seq: 1, Level: 1}, Due: datePtr(2024, 1, 20)},
		{ID: 3, Source: &BookCh{Sym: "geo", Seq: 1, Level: 2}, Due: datePtr(2024, 1, 10)},
		{ID: 4, Source: &BookCh{Sym: "alg", Seq: 2, Level: 1}, Due: datePtr(2024, 1, 10)},
		{ID: 5, Source: &BookCh{Sym: "alg", Seq: 1, Level: 1}},
	}
	Sort(goals)

	ids := make([]int64, len(goals))
	for i, g := range goals {
		ids[i] = g.ID
	}
	// Dated goals first in date order; equal dates break on level then seq;
	// undated goals trail in level/seq order.
	assert.Equal(t, []int64{4, 3, 2, 5, 1}, ids)
}

func TestGoalOrderingDoneTieBreak(t *testing.T) {
	a := &Goal{Due: datePtr(2024, 1, 10), Done: datePtr(2024, 1, 8)}
	b := &Goal{Due: datePtr(2024, 1, 10), Done: nil}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestNewPaceWeights(t *testing.T) {
	NowFunc = func() time.Time { return date(2024, 2, 1) }
	defer func() { NowFunc = func() time.Time { return core.Date(time.Now()) } }()

	goals := []*Goal{
		{ID: 1, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 1}, Due: datePtr(2023, 9, 15), Done: datePtr(2023, 9, 14)},
		{ID: 2, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 2}, Due: datePtr(2024, 3, 15)},
		{ID: 3, Uname: "jsmith", Source: &BookCh{Sym: "geo", Seq: 1}, Done: datePtr(2023, 10, 1)},
	}
	p, err := NewPace(testStudent(), testTeacher(), goals, testCatalog())
	require.NoError(t, err)

	// alg chapters weigh 1/6 each; the dateless geo chapter (2/8) counts
	// toward done weight but not the scheduled total.
	assert.InDelta(t, 2.0/6.0, p.TotalWeight, 1e-9)
	assert.InDelta(t, 1.0/6.0, p.DueWeight, 1e-9)
	assert.InDelta(t, 1.0/6.0+0.25, p.DoneWeight, 1e-9)

	// Resolution fills in levels for ordering.
	bch, err := p.Goals[0].Book()
	require.NoError(t, err)
	assert.Equal(t, 1.0, bch.Level)
}

func TestNewPaceAtomicFailure(t *testing.T) {
	tests := []struct {
		name  string
		goals []*Goal
	}{
		{name: "unknown course", goals: []*Goal{
			{ID: 1, Source: &BookCh{Sym: "alg", Seq: 1}},
			{ID: 2, Source: &BookCh{Sym: "trig", Seq: 1}},
		}},
		{name: "unknown chapter", goals: []*Goal{
			{ID: 1, Source: &BookCh{Sym: "alg", Seq: 99}},
		}},
		{name: "custom material", goals: []*Goal{
			{ID: 1, Source: &CustomCh{ID: 7}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPace(testStudent(), testTeacher(), tt.goals, testCatalog())
			assert.Error(t, err)
		})
	}
}

func TestNewPaceUnsetCourseWeight(t *testing.T) {
	crs := course.New(1, "alg", "Introductory Algebra", "Algebra I", 1.0).
		WithChapters([]course.Chapter{{CourseID: 1, Seq: 1, Weight: 1.0}})
	crs.Weight = nil
	catalog := course.MapCatalog{"alg": crs}
	goals := []*Goal{{ID: 1, Source: &BookCh{Sym: "alg", Seq: 1}}}
	_, err := NewPace(testStudent(), testTeacher(), goals, catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}
