package emailsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2718/camp-demo/core/pace"
	"github.com/d2718/camp-demo/core/user"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func progressStudent() *user.Student {
	return &user.Student{
		BaseUser: user.BaseUser{Uname: "jsmith", Role: user.RoleStudent},
		Last:     "Smith",
		Rest:     "John",
		Teacher:  "jenny",
		Parent:   "js.senior@example.com",
	}
}

func progressDisplay() *pace.PaceDisplay {
	last := 0
	return &pace.PaceDisplay{
		Uname:             "jsmith",
		Teacher:           "Jenny Jones",
		TEmail:            "jenny@school.test",
		NDue:              3,
		NDone:             2,
		NScheduled:        5,
		LastCompletedGoal: &last,
		Rows: []pace.Row{
			{Goal: &pace.GoalDisplay{
				ID:   7,
				Due:  dayPtr(2024, 1, 30),
				Done: dayPtr(2024, 1, 29),
			}},
		},
	}
}

func TestComposeProgress(t *testing.T) {
	msg, err := ComposeProgress(progressStudent(), progressDisplay(),
		"https://camp.school.test/", day(2024, 2, 1))
	require.NoError(t, err)

	require.Len(t, msg.To, 1)
	assert.Equal(t, "js.senior@example.com", msg.To[0].Address)
	assert.Equal(t, "Parent or Guardian of John Smith", msg.To[0].Name)
	assert.Equal(t, "Progress report for John Smith", msg.Subject)

	assert.Contains(t, msg.TextContent, "Dear Parent or Guardian of John Smith,")
	assert.Contains(t, msg.TextContent, "as of Thursday, 1 February 2024")
	assert.Contains(t, msg.TextContent, "has completed 2 of the\n5 goals")
	assert.Contains(t, msg.TextContent, "has 3 goals whose due dates have passed")
	assert.Contains(t, msg.TextContent,
		"last completed a goal 3 days ago, on Monday, 29 January 2024 (one day early).")
	assert.Contains(t, msg.TextContent, "logging in to https://camp.school.test/")
	assert.Contains(t, msg.TextContent, "their teacher, Jenny Jones, at jenny@school.test")
}

func TestComposeProgressSingularDue(t *testing.T) {
	pd := progressDisplay()
	pd.NDue = 1
	msg, err := ComposeProgress(progressStudent(), pd, "https://camp.school.test/", day(2024, 2, 1))
	require.NoError(t, err)
	assert.Contains(t, msg.TextContent, "has 1 goal whose due date has passed")
}

func TestComposeProgressNoCompletedGoals(t *testing.T) {
	pd := progressDisplay()
	pd.LastCompletedGoal = nil
	pd.NDone = 0
	msg, err := ComposeProgress(progressStudent(), pd, "https://camp.school.test/", day(2024, 2, 1))
	require.NoError(t, err)
	assert.NotContains(t, msg.TextContent, "last completed a goal")
}

func TestComposeProgressNoParent(t *testing.T) {
	s := progressStudent()
	s.Parent = ""
	_, err := ComposeProgress(s, progressDisplay(), "https://camp.school.test/", day(2024, 2, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parent email")
}

func TestSinceTodayPhrasing(t *testing.T) {
	today := day(2024, 2, 1)
	cases := []struct {
		d    time.Time
		want string
	}{
		{day(2024, 2, 5), "in 4 days"},
		{day(2024, 2, 2), "tomorrow"},
		{day(2024, 2, 1), "today"},
		{day(2024, 1, 31), "yesterday"},
		{day(2024, 1, 28), "4 days ago"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sinceToday(c.d, today))
	}
}

func TestPromptnessPhrasing(t *testing.T) {
	done := day(2024, 2, 1)
	cases := []struct {
		due  *time.Time
		want string
	}{
		{dayPtr(2024, 2, 5), "4 days early"},
		{dayPtr(2024, 2, 2), "one day early"},
		{dayPtr(2024, 2, 1), "on time"},
		{dayPtr(2024, 1, 31), "one day late"},
		{dayPtr(2024, 1, 28), "4 days late"},
		{nil, "unscheduled"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, promptness(c.due, done))
	}
}
