// Package inmem holds map-backed implementations of both store interfaces
// for exercising the registry without a database. Commit failures can be
// injected to drive the coordinator's rejection and hazard paths.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/pace"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/core/user"
)

const saltLength = 8

// AcademicStore is the in-memory academic-records store. The exported maps
// are the backing tables; tests may populate and inspect them directly.
type AcademicStore struct {
	mu     sync.Mutex
	nextID int64

	Users   map[string]user.User
	Courses map[string]*course.Course
	Goals   map[int64]*pace.Goal
	Days    []time.Time
	Dates   map[string]time.Time

	// FailCommit makes the next transaction's Commit fail.
	FailCommit bool
}

var _ registry.AcademicStore = (*AcademicStore)(nil)

func NewAcademicStore() *AcademicStore {
	return &AcademicStore{
		Users:   make(map[string]user.User),
		Courses: make(map[string]*course.Course),
		Goals:   make(map[int64]*pace.Goal),
		Dates:   make(map[string]time.Time),
	}
}

func (s *AcademicStore) GetUsers(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]user.User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, u)
	}
	return users, nil
}

func (s *AcademicStore) GetUserByUname(_ context.Context, uname string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[uname]
	if !ok {
		return nil, errors.Errorf("no user with uname %q", uname)
	}
	return u, nil
}

func (s *AcademicStore) GetCourses(_ context.Context) ([]*course.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses := make([]*course.Course, 0, len(s.Courses))
	for _, c := range s.Courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Sym < courses[j].Sym })
	return courses, nil
}

func (s *AcademicStore) InsertCourses(_ context.Context, courses []*course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range courses {
		if _, ok := s.Courses[c.Sym]; ok {
			return errors.Errorf("course symbol %q already in use", c.Sym)
		}
	}
	for _, c := range courses {
		s.nextID++
		c.ID = s.nextID
		s.Courses[c.Sym] = c
	}
	return nil
}

func (s *AcademicStore) DeleteCourse(_ context.Context, sym string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Courses[sym]
	if !ok {
		return 0, 0, errors.Errorf("no course with symbol %q", sym)
	}
	nch := len(c.Chapters())
	delete(s.Courses, sym)
	return 1, nch, nil
}

func (s *AcademicStore) DeleteChapter(_ context.Context, sym string, seq int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Courses[sym]
	if !ok {
		return errors.Errorf("no course with symbol %q", sym)
	}
	old := c.Chapters()
	kept := make([]course.Chapter, 0, len(old))
	for _, ch := range old {
		if ch.Seq != seq {
			kept = append(kept, ch)
		}
	}
	if len(kept) == len(old) {
		return errors.Errorf("no chapter (%q, %d)", sym, seq)
	}
	c.WithChapters(kept)
	return nil
}

func (s *AcademicStore) StudentsWithGoalsIn(_ context.Context, sym string, seq int16) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, g := range s.Goals {
		bc, ok := g.Source.(*pace.BookCh)
		if !ok || bc.Sym != sym {
			continue
		}
		if seq >= 0 && bc.Seq != seq {
			continue
		}
		seen[g.Uname] = true
	}
	unames := make([]string, 0, len(seen))
	for uname := range seen {
		unames = append(unames, uname)
	}
	sort.Strings(unames)
	return unames, nil
}

func (s *AcademicStore) GetCalendar(_ context.Context) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.Days...), nil
}

func (s *AcademicStore) SetCalendar(_ context.Context, days []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Days = append([]time.Time(nil), days...)
	return nil
}

func (s *AcademicStore) GetDates(_ context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dates := make(map[string]time.Time, len(s.Dates))
	for k, v := range s.Dates {
		dates[k] = v
	}
	return dates, nil
}

func (s *AcademicStore) SetDate(_ context.Context, name string, d time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dates[name] = core.Date(d)
	return nil
}

func (s *AcademicStore) goalsWhere(keep func(*pace.Goal) bool) []*pace.Goal {
	var goals []*pace.Goal
	for _, g := range s.Goals {
		if keep(g) {
			cp := *g
			goals = append(goals, &cp)
		}
	}
	return goals
}

func (s *AcademicStore) GetGoalsByStudent(_ context.Context, uname string) ([]*pace.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goalsWhere(func(g *pace.Goal) bool { return g.Uname == uname }), nil
}

func (s *AcademicStore) GetGoalsByTeacher(_ context.Context, tuname string) ([]*pace.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goalsWhere(func(g *pace.Goal) bool {
		stud, ok := s.Users[g.Uname].(*user.Student)
		return ok && stud.Teacher == tuname
	}), nil
}

func (s *AcademicStore) InsertGoals(_ context.Context, goals []*pace.Goal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range goals {
		s.nextID++
		g.ID = s.nextID
		cp := *g
		s.Goals[g.ID] = &cp
	}
	return len(goals), nil
}

func (s *AcademicStore) UpdateGoal(_ context.Context, g *pace.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Goals[g.ID]; !ok {
		return errors.Errorf("no goal with id %d", g.ID)
	}
	cp := *g
	s.Goals[g.ID] = &cp
	return nil
}

func (s *AcademicStore) UpdateDueDates(_ context.Context, goals []*pace.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range goals {
		if _, ok := s.Goals[g.ID]; !ok {
			return errors.Errorf("no goal with id %d", g.ID)
		}
	}
	for _, g := range goals {
		s.Goals[g.ID].Due = g.Due
	}
	return nil
}

func (s *AcademicStore) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Goals[id]; !ok {
		return errors.Errorf("no goal with id %d", id)
	}
	delete(s.Goals, id)
	return nil
}

// academicTx stages user writes against cloned tables, swapping them in on
// Commit.
type academicTx struct {
	store *AcademicStore
	users map[string]user.User
	goals map[int64]*pace.Goal
	done  bool
}

var _ registry.AcademicTx = (*academicTx)(nil)

func (s *AcademicStore) Begin(_ context.Context) (registry.AcademicTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &academicTx{
		store: s,
		users: make(map[string]user.User, len(s.Users)),
		goals: make(map[int64]*pace.Goal, len(s.Goals)),
	}
	for k, v := range s.Users {
		tx.users[k] = v
	}
	for k, v := range s.Goals {
		tx.goals[k] = v
	}
	return tx, nil
}

func (t *academicTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.store.FailCommit {
		t.store.FailCommit = false
		return errors.New("injected commit failure")
	}
	t.store.Users = t.users
	t.store.Goals = t.goals
	return nil
}

func (t *academicTx) Rollback() error {
	t.done = true
	return nil
}

func (t *academicTx) insert(u user.User) (string, error) {
	uname := u.Base().Uname
	if _, ok := t.users[uname]; ok {
		return "", core.NewValidationError(errors.Errorf("the uname %q is already in use", uname))
	}
	salt, err := core.RandomString(saltLength)
	if err != nil {
		return "", err
	}
	u.Base().Salt = salt
	t.users[uname] = u
	return salt, nil
}

func (t *academicTx) InsertAdmin(_ context.Context, uname, email string) (string, error) {
	return t.insert(&user.Admin{BaseUser: user.BaseUser{Uname: uname, Role: user.RoleAdmin, Email: email}})
}

func (t *academicTx) InsertBoss(_ context.Context, uname, email string) (string, error) {
	return t.insert(&user.Boss{BaseUser: user.BaseUser{Uname: uname, Role: user.RoleBoss, Email: email}})
}

func (t *academicTx) InsertTeacher(_ context.Context, uname, email, name string) (string, error) {
	return t.insert(&user.Teacher{
		BaseUser: user.BaseUser{Uname: uname, Role: user.RoleTeacher, Email: email},
		Name:     name,
	})
}

func (t *academicTx) InsertStudents(_ context.Context, students []*user.Student) (int, error) {
	var taken []string
	for _, s := range students {
		if _, ok := t.users[s.Uname]; ok {
			taken = append(taken, s.Uname)
		}
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return 0, core.NewValidationError(errors.Errorf(
			"the following unames are already in use: %s", strings.Join(taken, ", ")))
	}
	for _, s := range students {
		s.Role = user.RoleStudent
		salt, err := core.RandomString(saltLength)
		if err != nil {
			return 0, err
		}
		s.Salt = salt
		cp := *s
		t.users[s.Uname] = &cp
	}
	return len(students), nil
}

func (t *academicTx) update(uname string, want user.Role, mut func(user.User)) error {
	u, ok := t.users[uname]
	if !ok || u.Base().Role != want {
		return errors.Errorf("no %s with uname %q", strings.ToLower(string(want)), uname)
	}
	mut(u)
	return nil
}

func (t *academicTx) UpdateAdmin(_ context.Context, uname, email string) error {
	return t.update(uname, user.RoleAdmin, func(u user.User) { u.Base().Email = email })
}

func (t *academicTx) UpdateBoss(_ context.Context, uname, email string) error {
	return t.update(uname, user.RoleBoss, func(u user.User) { u.Base().Email = email })
}

func (t *academicTx) UpdateTeacher(_ context.Context, uname, email, name string) error {
	return t.update(uname, user.RoleTeacher, func(u user.User) {
		u.Base().Email = email
		u.(*user.Teacher).Name = name
	})
}

func (t *academicTx) UpdateStudent(_ context.Context, s *user.Student) error {
	old, ok := t.users[s.Uname].(*user.Student)
	if !ok {
		return errors.Errorf("no student with uname %q", s.Uname)
	}
	cp := *s
	cp.Salt = old.Salt
	t.users[s.Uname] = &cp
	return nil
}

func (t *academicTx) DeleteUser(_ context.Context, uname string) error {
	if _, ok := t.users[uname]; !ok {
		return errors.Errorf("no user with uname %q", uname)
	}
	delete(t.users, uname)
	for id, g := range t.goals {
		if g.Uname == uname {
			delete(t.goals, id)
		}
	}
	return nil
}

func (t *academicTx) DeleteAllStudents(_ context.Context) ([]string, error) {
	var unames []string
	for uname, u := range t.users {
		if u.Base().Role == user.RoleStudent {
			unames = append(unames, uname)
			delete(t.users, uname)
		}
	}
	for id, g := range t.goals {
		if _, ok := t.users[g.Uname]; !ok {
			delete(t.goals, id)
		}
	}
	sort.Strings(unames)
	return unames, nil
}
