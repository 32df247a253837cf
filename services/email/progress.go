package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/pace"
	"github.com/d2718/camp-demo/core/user"
)

const progressDateFmt = "Monday, 2 January 2006"

var progressTmpl = template.Must(template.New("progress").Parse(
	`Dear Parent or Guardian of {{.FullName}},

This is an automatically-generated summary of your student's progress
through their math course as of {{.Date}}.

So far this academic year, {{.FullName}} has completed {{.NDone}} of the
{{.NScheduled}} goals on their pace, and has {{.NDueStr}} passed.
{{.LastDoneStatement}}
You can see a full, current summary of your student's progress at any time
by logging in to {{.ServiceURI}} with their credentials.

If you have any questions or concerns about your student's progress, please
contact their teacher, {{.Teacher}}, at {{.TEmail}}.
`))

type progressData struct {
	FullName          string
	Date              string
	NDone             int
	NScheduled        int
	NDueStr           string
	LastDoneStatement string
	ServiceURI        string
	Teacher           string
	TEmail            string
}

// wholeDays is the day count from a to b, negative when b precedes a.
func wholeDays(a, b time.Time) int {
	return int(core.Date(b).Sub(core.Date(a)).Hours() / 24)
}

func sinceToday(d, today time.Time) string {
	switch n := wholeDays(today, d); {
	case n >= 2:
		return fmt.Sprintf("in %d days", n)
	case n == 1:
		return "tomorrow"
	case n == 0:
		return "today"
	case n == -1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", -n)
	}
}

func promptness(due *time.Time, done time.Time) string {
	if due == nil {
		return "unscheduled"
	}
	switch n := wholeDays(done, *due); {
	case n >= 2:
		return fmt.Sprintf("%d days early", n)
	case n == 1:
		return "one day early"
	case n == 0:
		return "on time"
	case n == -1:
		return "one day late"
	default:
		return fmt.Sprintf("%d days late", -n)
	}
}

// lastDoneStatement narrates the most recently completed goal, or returns ""
// when nothing has been completed yet.
func lastDoneStatement(pd *pace.PaceDisplay, today time.Time) (string, error) {
	if pd.LastCompletedGoal == nil {
		return "", nil
	}
	n := *pd.LastCompletedGoal
	if n < 0 || n >= len(pd.Rows) || pd.Rows[n].Goal == nil {
		return "", errors.Errorf("last-completed index %d does not reference a goal row", n)
	}
	g := pd.Rows[n].Goal
	if g.Done == nil {
		return "", errors.Errorf("goal %d counted completed but has no done date", g.ID)
	}
	return fmt.Sprintf("\nYour student last completed a goal %s, on %s (%s).\n",
		sinceToday(*g.Done, today), g.Done.Format(progressDateFmt), promptness(g.Due, *g.Done)), nil
}

// ComposeProgress builds the parent progress-report message for one student
// from their computed pace display.
func ComposeProgress(s *user.Student, pd *pace.PaceDisplay, serviceURI string, today time.Time) (*core.EmailMessage, error) {
	if s.Parent == "" {
		return nil, core.NewValidationError(errors.Errorf("student %q has no parent email on record", s.Uname))
	}

	nDueStr := fmt.Sprintf("%d goals whose due dates have", pd.NDue)
	if pd.NDue == 1 {
		nDueStr = "1 goal whose due date has"
	}
	lastDone, err := lastDoneStatement(pd, today)
	if err != nil {
		return nil, err
	}

	body := new(strings.Builder)
	err = progressTmpl.Execute(body, progressData{
		FullName:          s.FullName(),
		Date:              today.Format(progressDateFmt),
		NDone:             pd.NDone,
		NScheduled:        pd.NScheduled,
		NDueStr:           nDueStr,
		LastDoneStatement: lastDone,
		ServiceURI:        serviceURI,
		Teacher:           pd.Teacher,
		TEmail:            pd.TEmail,
	})
	if err != nil {
		return nil, errors.Wrap(err, "rendering progress email")
	}

	return &core.EmailMessage{
		To:          []mail.Address{{Name: "Parent or Guardian of " + s.FullName(), Address: s.Parent}},
		Subject:     "Progress report for " + s.FullName(),
		TextContent: body.String(),
	}, nil
}
