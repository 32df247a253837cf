package pace

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core/course"
)

// GoalStatus is the state of a Goal on the current day.
type GoalStatus int

const (
	// StatusDone: completed by the due date (or with no due date at all).
	StatusDone GoalStatus = iota
	// StatusLate: completed after the due date.
	StatusLate
	// StatusOverdue: the due date has passed with the goal uncompleted.
	StatusOverdue
	// StatusYet: uncompleted, with the due date still in the future or unset.
	StatusYet
)

func (s GoalStatus) String() string {
	switch s {
	case StatusDone:
		return "Done"
	case StatusLate:
		return "Late"
	case StatusOverdue:
		return "Overdue"
	default:
		return "Yet"
	}
}

// Classify determines a Goal's status as of the given day.
func (g *Goal) Classify(today time.Time) GoalStatus {
	if g.Due != nil {
		if g.Done != nil {
			if g.Done.After(*g.Due) {
				return StatusLate
			}
			return StatusDone
		}
		if today.After(*g.Due) {
			return StatusOverdue
		}
		return StatusYet
	}
	if g.Done != nil {
		return StatusDone
	}
	return StatusYet
}

// LetterGrade maps a 0-100 percentage to a letter. Percentages below the C-
// cutoff get the incomplete marker rather than a failing letter.
func LetterGrade(pct float64) string {
	switch {
	case pct >= 97:
		return "A+"
	case pct >= 93:
		return "A"
	case pct >= 90:
		return "A-"
	case pct >= 87:
		return "B+"
	case pct >= 83:
		return "B"
	case pct >= 80:
		return "B-"
	case pct >= 77:
		return "C+"
	case pct >= 73:
		return "C"
	case pct >= 70:
		return "C-"
	default:
		return "I"
	}
}

// DisplayEnv is the external context a PaceDisplay is computed against.
type DisplayEnv struct {
	Catalog course.Catalog
	// Administrator-configured term boundaries.
	EndFall   time.Time
	EndSpring time.Time
	Today     time.Time
}

// GoalDisplay is everything needed to render one Goal and its status.
type GoalDisplay struct {
	ID      int64
	Course  string
	Book    string
	Title   string
	Subject *string
	Rev     bool
	Inc     bool
	Due     *time.Time
	Done    *time.Time
	Tries   *int16
	// Mark is the teacher's verbatim score string; Score is its parsed value.
	Mark   string
	Score  *float64
	Status GoalStatus
}

// SummaryLine is one line of a semester summary.
type SummaryLine struct {
	Label string
	Value string
}

// Row is a single display row: either goal data or a semester summary line.
type Row struct {
	Goal    *GoalDisplay
	Summary *SummaryLine
}

// PaceDisplay is the fully-computed projection of a Pace for rendering, with
// no further lookups required. Recomputable byte-for-byte from the Pace, the
// two term boundaries and the student's exam and notice fields.
type PaceDisplay struct {
	Uname   string
	Email   string
	Last    string
	Rest    string
	TUname  string
	Teacher string
	TEmail  string

	PreviouslyInc         bool
	FallInc               bool
	SpringInc             bool
	HasReviewChapters     bool
	HasIncompleteChapters bool

	WeightDue       float64
	WeightDone      float64
	WeightScheduled float64
	NDue            int
	NDone           int
	NScheduled      int
	FallDue         int
	FallDone        int
	SpringDue       int
	SpringDone      int

	FallNotices     int16
	SpringNotices   int16
	FallTests       float64
	SpringTests     float64
	FallExamFrac    float64
	SpringExamFrac  float64
	FallExam        *float64
	SpringExam      *float64
	FallTotal       *float64
	SpringTotal     *float64
	FallGrade       string
	SpringGrade     string
	// Index in Rows of the most recently completed goal, if any.
	LastCompletedGoal *int

	Rows []Row
}

func displayGoal(g *Goal, catalog course.Catalog, today time.Time) (*GoalDisplay, error) {
	bch, err := g.Book()
	if err != nil {
		return nil, err
	}
	crs, ok := catalog.CourseBySym(bch.Sym)
	if !ok {
		return nil, errors.Errorf("goal %d: no course with symbol %q", g.ID, bch.Sym)
	}
	chp, ok := crs.Chapter(bch.Seq)
	if !ok {
		return nil, errors.Errorf("goal %d: course %q has no chapter %d", g.ID, bch.Sym, bch.Seq)
	}

	score, err := ParseScoreOpt(g.Score)
	if err != nil {
		return nil, errors.Wrapf(err, "goal %d", g.ID)
	}
	var mark string
	if g.Score != nil {
		mark = *g.Score
	}

	return &GoalDisplay{
		ID:      g.ID,
		Course:  crs.Title,
		Book:    crs.Book,
		Title:   chp.Title,
		Subject: chp.Subject,
		Rev:     g.Review,
		Inc:     g.Incomplete,
		Due:     g.Due,
		Done:    g.Done,
		Tries:   g.Tries,
		Mark:    mark,
		Score:   score,
		Status:  g.Classify(today),
	}, nil
}

// termSummary renders the 1-4 summary lines shown after a semester's last
// completed goal.
func termSummary(term string, tests float64, notices int16, examFrac float64, exam *float64, inc bool) []SummaryLine {
	lines := make([]SummaryLine, 0, 4)
	lines = append(lines, SummaryLine{
		Label: term + " Test Average",
		Value: fmt.Sprintf("%d", roundPct(tests)),
	})
	if exam == nil {
		return lines
	}

	lines = append(lines, SummaryLine{
		Label: "Exam Score",
		Value: fmt.Sprintf("%d", roundPct(*exam)),
	})

	pct := 100.0 * (examFrac**exam + (1.0-examFrac)*tests)
	if notices > 0 {
		lines = append(lines, SummaryLine{
			Label: "Notices",
			Value: fmt.Sprintf("-%d", notices),
		})
		pct -= float64(notices)
	}

	letter := LetterGrade(pct)
	if inc {
		letter = "I"
	}
	lines = append(lines, SummaryLine{
		Label: term + " Semester Grade",
		Value: fmt.Sprintf("%d (%s)", int(math.Round(pct)), letter),
	})
	return lines
}

func roundPct(frac float64) int {
	return int(math.Round(100.0 * frac))
}

// NewPaceDisplay runs all the calculations and catalog lookups needed to
// render a Pace in any format.
func NewPaceDisplay(p *Pace, env DisplayEnv) (*PaceDisplay, error) {
	today := env.Today
	if today.IsZero() {
		today = NowFunc()
	}
	if env.EndFall.IsZero() {
		return nil, errors.New(`date "end-fall" not set by admin`)
	}
	if env.EndSpring.IsZero() {
		return nil, errors.New(`date "end-spring" not set by admin`)
	}

	d := &PaceDisplay{
		Uname:          p.Student.Uname,
		Email:          p.Student.Email,
		Last:           p.Student.Last,
		Rest:           p.Student.Rest,
		TUname:         p.Teacher.Uname,
		Teacher:        p.Teacher.Name,
		TEmail:         p.Teacher.Email,
		FallNotices:    p.Student.FallNotices,
		SpringNotices:  p.Student.SpringNotices,
		FallExamFrac:   p.Student.FallExamFraction,
		SpringExamFrac: p.Student.SpringExamFraction,
	}

	var (
		fallScoreSum, springScoreSum float64
		fallScored, springScored     int
		fallLastID, springLastID     *int64
	)

	for _, g := range p.Goals {
		if g.Due != nil {
			if g.Due.Before(today) {
				d.NDue++
				d.WeightDue += g.Weight
			}
			if g.Done == nil {
				if g.Due.Before(env.EndFall) {
					d.FallInc = true
				} else {
					d.SpringInc = true
				}
			}
			d.NScheduled++
			d.WeightScheduled += g.Weight

			if g.Due.Before(env.EndFall) {
				d.FallDue++
				if g.Done != nil {
					d.FallDone++
				}
			} else if g.Due.Before(env.EndSpring) {
				d.SpringDue++
				if g.Done != nil {
					d.SpringDone++
				}
			}
		}

		if g.Done != nil {
			// A completed goal with no parseable score is a data-integrity
			// problem, not something to skip quietly.
			score, err := ParseScoreOpt(g.Score)
			if err != nil {
				return nil, errors.Wrapf(err, "goal %d: parsing stored score", g.ID)
			}
			if score == nil {
				return nil, errors.Errorf("goal %d has a done date but no score", g.ID)
			}

			id := g.ID
			if g.Done.Before(env.EndFall) {
				fallScoreSum += *score
				fallScored++
				fallLastID = &id
			} else if g.Done.Before(env.EndSpring) {
				springScoreSum += *score
				springScored++
				springLastID = &id
			}

			d.NDone++
			d.WeightDone += g.Weight
		} else if g.Incomplete {
			d.PreviouslyInc = true
		}

		if g.Review {
			d.HasReviewChapters = true
		}
		if g.Incomplete {
			d.HasIncompleteChapters = true
		}
	}

	// With no completed goals in a term the test average is 0, not an error.
	if fallScored > 0 {
		d.FallTests = fallScoreSum / float64(fallScored)
	}
	if springScored > 0 {
		d.SpringTests = springScoreSum / float64(springScored)
	}

	var err error
	if d.FallExam, err = ParseScoreOpt(p.Student.FallExam); err != nil {
		return nil, errors.Wrap(err, "parsing fall exam score")
	}
	if d.SpringExam, err = ParseScoreOpt(p.Student.SpringExam); err != nil {
		return nil, errors.Wrap(err, "parsing spring exam score")
	}

	if d.FallExam != nil {
		total := *d.FallExam*d.FallExamFrac +
			d.FallTests*(1.0-d.FallExamFrac) -
			float64(d.FallNotices)*0.01
		d.FallTotal = &total
	}
	if d.SpringExam != nil {
		total := *d.SpringExam*d.SpringExamFrac +
			d.SpringTests*(1.0-d.SpringExamFrac) -
			float64(d.SpringNotices)*0.01
		d.SpringTotal = &total
	}

	d.FallGrade = termGrade(d.FallTotal, d.FallInc)
	d.SpringGrade = termGrade(d.SpringTotal, d.SpringInc)

	var fallSummary, springSummary []SummaryLine
	if fallLastID != nil && fallScored > 0 {
		fallSummary = termSummary("Fall", d.FallTests, d.FallNotices, d.FallExamFrac, d.FallExam, d.FallInc)
	}
	if springLastID != nil && springScored > 0 {
		springSummary = termSummary("Spring", d.SpringTests, d.SpringNotices, d.SpringExamFrac, d.SpringExam, d.SpringInc)
	}

	d.Rows = make([]Row, 0, len(p.Goals)+len(fallSummary)+len(springSummary))
	for _, g := range p.Goals {
		gd, err := displayGoal(g, env.Catalog, today)
		if err != nil {
			return nil, errors.Wrapf(err, "goal %d: generating display info", g.ID)
		}
		if gd.Done != nil {
			n := len(d.Rows)
			d.LastCompletedGoal = &n
		}
		d.Rows = append(d.Rows, Row{Goal: gd})

		if fallLastID != nil && g.ID == *fallLastID {
			for i := range fallSummary {
				d.Rows = append(d.Rows, Row{Summary: &fallSummary[i]})
			}
		} else if springLastID != nil && g.ID == *springLastID {
			for i := range springSummary {
				d.Rows = append(d.Rows, Row{Summary: &springSummary[i]})
			}
		}
	}

	return d, nil
}

// termGrade renders a term's letter grade, or the incomplete marker for a
// term still in progress.
func termGrade(total *float64, inc bool) string {
	if total == nil || inc {
		return "I"
	}
	return LetterGrade(100.0 * *total)
}
