package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/pace"
)

// InsertGoals adds a batch of goals to the academic store, returning the
// number inserted. The whole batch is rejected if any goal names an unknown
// student or course.
func (r *Registry) InsertGoals(ctx context.Context, goals []*pace.Goal) (int, error) {
	var badUnames, badSyms []string
	seenUname := make(map[string]bool)
	seenSym := make(map[string]bool)
	for _, g := range goals {
		if _, ok := r.StudentByUname(g.Uname); !ok && !seenUname[g.Uname] {
			seenUname[g.Uname] = true
			badUnames = append(badUnames, g.Uname)
		}
		bc, err := g.Book()
		if err != nil {
			return 0, err
		}
		if _, ok := r.CourseBySym(bc.Sym); !ok && !seenSym[bc.Sym] {
			seenSym[bc.Sym] = true
			badSyms = append(badSyms, bc.Sym)
		}
	}
	if len(badUnames) > 0 || len(badSyms) > 0 {
		var b strings.Builder
		b.WriteString("goals refer to")
		if len(badUnames) > 0 {
			b.WriteString(" unknown students: ")
			b.WriteString(strings.Join(badUnames, ", "))
		}
		if len(badSyms) > 0 {
			if len(badUnames) > 0 {
				b.WriteString(";")
			}
			b.WriteString(" unknown courses: ")
			b.WriteString(strings.Join(badSyms, ", "))
		}
		return 0, core.NewValidationError(errors.New(b.String()))
	}

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()
	return r.academic.InsertGoals(ctx, goals)
}

// UpdateGoal overwrites a stored goal by ID.
func (r *Registry) UpdateGoal(ctx context.Context, g *pace.Goal) error {
	r.academicMu.RLock()
	defer r.academicMu.RUnlock()
	return r.academic.UpdateGoal(ctx, g)
}

// DeleteGoal removes a single goal by ID.
func (r *Registry) DeleteGoal(ctx context.Context, id int64) error {
	r.academicMu.RLock()
	defer r.academicMu.RUnlock()
	return r.academic.DeleteGoal(ctx, id)
}

// GetPaceByStudent builds a student's pace from their stored goals.
func (r *Registry) GetPaceByStudent(ctx context.Context, uname string) (*pace.Pace, error) {
	s, ok := r.StudentByUname(uname)
	if !ok {
		return nil, core.NewValidationError(errors.Errorf("no student with uname %q", uname))
	}
	t, ok := r.TeacherByUname(s.Teacher)
	if !ok {
		return nil, errors.Errorf("student %q has unknown teacher %q", uname, s.Teacher)
	}

	r.academicMu.RLock()
	goals, err := r.academic.GetGoalsByStudent(ctx, uname)
	r.academicMu.RUnlock()
	if err != nil {
		return nil, err
	}
	return pace.NewPace(*s, *t, goals, r)
}

// GetPacesByTeacher builds the paces of every student assigned to a teacher,
// sorted by student uname. A failure building any one pace fails the batch.
func (r *Registry) GetPacesByTeacher(ctx context.Context, tuname string) ([]*pace.Pace, error) {
	if _, ok := r.TeacherByUname(tuname); !ok {
		return nil, core.NewValidationError(errors.Errorf("no teacher with uname %q", tuname))
	}
	students := r.StudentsByTeacher(tuname)

	paces := make([]*pace.Pace, len(students))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range students {
		i, s := i, s
		g.Go(func() error {
			p, err := r.GetPaceByStudent(gctx, s.Uname)
			if err != nil {
				return errors.Wrapf(err, "building pace for %q", s.Uname)
			}
			paces[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(paces, func(i, j int) bool { return paces[i].Student.Uname < paces[j].Student.Uname })
	return paces, nil
}

// AutopaceStudent spreads a student's due dates over the school calendar and
// persists the result.
func (r *Registry) AutopaceStudent(ctx context.Context, uname string) (*pace.Pace, error) {
	p, err := r.GetPaceByStudent(ctx, uname)
	if err != nil {
		return nil, err
	}
	if err = p.Autopace(r.Calendar()); err != nil {
		return nil, err
	}

	r.academicMu.RLock()
	defer r.academicMu.RUnlock()
	if err = r.academic.UpdateDueDates(ctx, p.Goals); err != nil {
		return nil, err
	}
	return p, nil
}
