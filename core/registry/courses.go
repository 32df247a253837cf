package registry

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
)

func checkCourseText(c *course.Course) error {
	if err := core.Validate.Var(c.Sym, "required,alphanum"); err != nil {
		return core.NewValidationError(errors.Errorf("course symbol %q must be alphanumeric", c.Sym))
	}
	if err := core.Validate.Var(c.Title, "nomarkup"); err != nil {
		return core.NewValidationError(errors.Errorf("course title %q contains disallowed characters", c.Title))
	}
	for _, ch := range c.Chapters() {
		if err := core.Validate.Var(ch.Title, "nomarkup"); err != nil {
			return core.NewValidationError(errors.Errorf("chapter title %q contains disallowed characters", ch.Title))
		}
	}
	return nil
}

// InsertCourses adds courses (with their chapters) to the academic store.
func (r *Registry) InsertCourses(ctx context.Context, courses []*course.Course) error {
	for _, c := range courses {
		if c.Weight == nil {
			return errors.Errorf("course %q has not had its weights set", c.Sym)
		}
		if err := checkCourseText(c); err != nil {
			return err
		}
	}

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()
	return r.academic.InsertCourses(ctx, courses)
}

// studentListing renders "uname (Last, Rest)" lines for guard errors.
func (r *Registry) studentListing(unames []string) string {
	lines := make([]string, 0, len(unames))
	for _, uname := range unames {
		if s, ok := r.StudentByUname(uname); ok {
			lines = append(lines, uname+" ("+s.Last+", "+s.Rest+")")
		} else {
			lines = append(lines, uname)
		}
	}
	return strings.Join(lines, "\n")
}

// DeleteCourse removes a course and all of its chapters. It is rejected
// while any student still has a goal referencing the course, listing those
// students.
func (r *Registry) DeleteCourse(ctx context.Context, sym string) (nCourses, nChapters int, err error) {
	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	holders, err := r.academic.StudentsWithGoalsIn(ctx, sym, -1)
	if err != nil {
		return 0, 0, err
	}
	if len(holders) > 0 {
		crs, _ := r.CourseBySym(sym)
		title := sym
		if crs != nil {
			title = crs.Title
		}
		return 0, 0, core.NewValidationError(errors.Errorf(
			"the course %q (%s) cannot be deleted because the following students have goals from it:\n%s",
			sym, title, r.studentListing(holders)))
	}
	return r.academic.DeleteCourse(ctx, sym)
}

// DeleteChapter removes one chapter of a course, with the same kind of guard
// as DeleteCourse.
func (r *Registry) DeleteChapter(ctx context.Context, sym string, seq int16) error {
	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	holders, err := r.academic.StudentsWithGoalsIn(ctx, sym, seq)
	if err != nil {
		return err
	}
	if len(holders) > 0 {
		return core.NewValidationError(errors.Errorf(
			"chapter (%q, %d) cannot be deleted because the following students have it as a goal:\n%s",
			sym, seq, r.studentListing(holders)))
	}
	return r.academic.DeleteChapter(ctx, sym, seq)
}

// SetCalendar replaces the year's instructional days.
func (r *Registry) SetCalendar(ctx context.Context, days []time.Time) error {
	r.academicMu.RLock()
	err := r.academic.SetCalendar(ctx, days)
	r.academicMu.RUnlock()
	if err != nil {
		return err
	}
	return r.RefreshCalendar(ctx)
}

// SetDate sets a named date such as "end-fall" or "end-spring".
func (r *Registry) SetDate(ctx context.Context, name string, d time.Time) error {
	r.academicMu.RLock()
	err := r.academic.SetDate(ctx, name, core.Date(d))
	r.academicMu.RUnlock()
	if err != nil {
		return err
	}
	return r.RefreshDates(ctx)
}
