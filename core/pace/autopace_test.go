package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schoolDays(n int) []time.Time {
	days := make([]time.Time, n)
	d := date(2023, 9, 1)
	for i := range days {
		days[i] = d
		d = d.AddDate(0, 0, 1)
	}
	return days
}

func autopaceFixture(t *testing.T) *Pace {
	t.Helper()
	goals := []*Goal{
		{ID: 1, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 1}, Due: datePtr(2023, 9, 1)},
		{ID: 2, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 2}, Due: datePtr(2023, 9, 2)},
		{ID: 3, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 3}, Due: datePtr(2023, 9, 3)},
		{ID: 4, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 4}, Due: datePtr(2023, 9, 4)},
	}
	p, err := NewPace(testStudent(), testTeacher(), goals, testCatalog())
	require.NoError(t, err)
	return p
}

func TestAutopaceEvenWeights(t *testing.T) {
	p := autopaceFixture(t)
	days := schoolDays(8)
	require.NoError(t, p.Autopace(days))

	// Four equal-weight goals over eight days land on every other day.
	for i, wantIdx := range []int{1, 3, 5, 7} {
		require.NotNil(t, p.Goals[i].Due)
		assert.Equal(t, days[wantIdx], *p.Goals[i].Due, "goal %d", i)
	}
}

func TestAutopaceLastGoalOnLastDay(t *testing.T) {
	p := autopaceFixture(t)
	days := schoolDays(7)
	require.NoError(t, p.Autopace(days))

	last := p.Goals[len(p.Goals)-1]
	require.NotNil(t, last.Due)
	assert.Equal(t, days[len(days)-1], *last.Due)

	for i := 1; i < len(p.Goals); i++ {
		assert.False(t, p.Goals[i].Due.Before(*p.Goals[i-1].Due), "due dates must not decrease")
	}
}

func TestAutopaceSkipsDatelessGoals(t *testing.T) {
	goals := []*Goal{
		{ID: 1, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 1}, Due: datePtr(2023, 9, 1)},
		{ID: 2, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 2}, Due: datePtr(2023, 9, 2)},
		{ID: 3, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 3}},
	}
	p, err := NewPace(testStudent(), testTeacher(), goals, testCatalog())
	require.NoError(t, err)

	require.NoError(t, p.Autopace(schoolDays(10)))
	for _, g := range p.Goals {
		bch, err := g.Book()
		require.NoError(t, err)
		if bch.Seq == 3 {
			assert.Nil(t, g.Due)
		} else {
			assert.NotNil(t, g.Due)
		}
	}
}

func TestAutopacePreconditions(t *testing.T) {
	t.Run("no instructional days", func(t *testing.T) {
		p := autopaceFixture(t)
		assert.Error(t, p.Autopace(nil))
	})

	t.Run("fewer than two dated goals", func(t *testing.T) {
		goals := []*Goal{
			{ID: 1, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 1}, Due: datePtr(2023, 9, 1)},
			{ID: 2, Uname: "jsmith", Source: &BookCh{Sym: "alg", Seq: 2}},
		}
		p, err := NewPace(testStudent(), testTeacher(), goals, testCatalog())
		require.NoError(t, err)

		before := *p.Goals[0].Due
		require.Error(t, p.Autopace(schoolDays(10)))
		// A failed call must leave the due dates untouched.
		assert.Equal(t, before, *p.Goals[0].Due)
	})

	t.Run("negligible total weight", func(t *testing.T) {
		p := autopaceFixture(t)
		p.TotalWeight = 0
		assert.Error(t, p.Autopace(schoolDays(10)))
	})
}
