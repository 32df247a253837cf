package pace

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/user"
)

var (
	// ErrCustomUnsupported is returned by every operation handed a Goal
	// with custom (non-course) source material.
	ErrCustomUnsupported = errors.New("custom goal material is not supported")

	// NowFunc supplies "today" for status and overdue-weight computation. Mockable.
	NowFunc = func() time.Time { return core.Date(time.Now()) }
)

// Source is the material a Goal covers. Only the book-chapter variant is
// usable; the custom variant exists so stored references to it fail loudly
// instead of being misread as chapters.
type Source interface {
	sourceRef()
}

// BookCh points at a single chapter of a Course in the catalog.
type BookCh struct {
	// Course symbol.
	Sym string
	// Chapter sequence number within the course.
	Seq int16
	// Course difficulty level. Set during Pace construction, used only
	// for ordering.
	Level float64
}

func (*BookCh) sourceRef() {}

// CustomCh would reference teacher-created material by id, if the feature
// existed.
type CustomCh struct {
	ID int64
}

func (*CustomCh) sourceRef() {}

// Goal is a single unit of one student's assigned pace.
type Goal struct {
	// Database primary key; 0 means not yet persisted.
	ID int64
	// Uname of the Student this Goal is assigned to.
	Uname  string
	Source Source
	// Whether the material is review of previously-covered work.
	Review bool
	// Whether the material is incomplete from a prior academic year.
	Incomplete bool
	// Due is nil for goals outside the assigned pace, such as extra
	// chapters completed after the assigned ones.
	Due *time.Time
	// Done is nil until the goal is completed.
	Done *time.Time
	// Tries it took to show mastery; nil until completed.
	Tries *int16
	// Score string as entered by the teacher; nil until completed.
	Score *string
	// Weight relative to the whole course. Set during Pace construction.
	Weight float64
}

// Book returns the goal's chapter reference, or ErrCustomUnsupported.
func (g *Goal) Book() (*BookCh, error) {
	bch, ok := g.Source.(*BookCh)
	if !ok {
		return nil, errors.Wrapf(ErrCustomUnsupported, "goal %d", g.ID)
	}
	return bch, nil
}

// Less is the canonical goal ordering: by due date, then done date (nil
// sorting after a set date in both cases), then course level and chapter
// sequence. Autopacing and display order both depend on it.
func (g *Goal) Less(other *Goal) bool {
	if c := cmpDates(g.Due, other.Due); c != 0 {
		return c < 0
	}
	if c := cmpDates(g.Done, other.Done); c != 0 {
		return c < 0
	}
	a, aok := g.Source.(*BookCh)
	b, bok := other.Source.(*BookCh)
	if !aok || !bok {
		return false
	}
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return a.Seq < b.Seq
}

func cmpDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

// Sort orders goals canonically, in place.
func Sort(goals []*Goal) {
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].Less(goals[j]) })
}

// Pace is a student's entire assigned pace for one year. It is derived, not
// stored: rebuilt from goal rows on every read, with the student and teacher
// records copied in at construction time.
type Pace struct {
	Student user.Student
	Teacher user.Teacher
	// Goals in canonical order.
	Goals []*Goal
	// Sum of the weights of the assigned Goals (those with due dates).
	TotalWeight float64
	// Sum of the weights of the Goals whose due dates have passed.
	DueWeight float64
	// Sum of the weights of the completed Goals.
	DoneWeight float64
}

// resolveGoal fills in a goal's weight and level from the catalog.
func resolveGoal(g *Goal, catalog course.Catalog) error {
	bch, err := g.Book()
	if err != nil {
		return err
	}
	crs, ok := catalog.CourseBySym(bch.Sym)
	if !ok {
		return errors.Errorf("unknown course symbol %q", bch.Sym)
	}
	chp, ok := crs.Chapter(bch.Seq)
	if !ok {
		return errors.Errorf("course %q (%s) has no chapter %d", bch.Sym, crs.Title, bch.Seq)
	}
	if crs.Weight == nil {
		// Courses get their total weight the moment their chapter list is
		// set; reaching here means the loading path is broken.
		return errors.Errorf("course %q (%s) has not had its weights set", bch.Sym, crs.Title)
	}
	bch.Level = crs.Level
	g.Weight = chp.Weight / *crs.Weight
	return nil
}

// NewPace assembles a student's Pace, resolving every goal's weight against
// the live course catalog. It fails atomically: any goal referencing an
// unknown course or chapter, or a course with an uninitialized total weight,
// rejects the whole construction.
func NewPace(s user.Student, t user.Teacher, goals []*Goal, catalog course.Catalog) (*Pace, error) {
	Sort(goals)
	now := NowFunc()

	var totalWeight, dueWeight, doneWeight float64
	for _, g := range goals {
		if err := resolveGoal(g, catalog); err != nil {
			return nil, err
		}
		if g.Due != nil {
			totalWeight += g.Weight
			if g.Due.Before(now) {
				dueWeight += g.Weight
			}
		}
		if g.Done != nil {
			doneWeight += g.Weight
		}
	}

	return &Pace{
		Student:     s,
		Teacher:     t,
		Goals:       goals,
		TotalWeight: totalWeight,
		DueWeight:   dueWeight,
		DoneWeight:  doneWeight,
	}, nil
}
