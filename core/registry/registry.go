package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/user"
)

// Registry owns the two store handles and coordinates every operation that
// touches them. The handles are the only shared resources in the system;
// each gets its own read/write lock guarding its connection factory. On top
// of them the Registry keeps refreshable in-memory caches of users, courses,
// the academic calendar and the named term-boundary dates.
type Registry struct {
	cfg   *core.Config
	log   core.Logger
	alert core.Logger

	academic   AcademicStore
	academicMu sync.RWMutex

	credentials   CredentialsStore
	credentialsMu sync.RWMutex

	cacheMu    sync.RWMutex
	users      map[string]user.User
	courses    []*course.Course
	courseSyms map[string]int
	calendar   []time.Time
	dates      map[string]time.Time
}

// New wires a Registry over the two stores. The alert logger receives
// consistency-hazard reports; pass the ordinary logger if there is no
// dedicated alerting sink.
func New(cfg *core.Config, log, alert core.Logger, academic AcademicStore, credentials CredentialsStore) *Registry {
	if alert == nil {
		alert = log
	}
	return &Registry{
		cfg:         cfg,
		log:         log,
		alert:       alert,
		academic:    academic,
		credentials: credentials,
		users:       make(map[string]user.User),
		courseSyms:  make(map[string]int),
		dates:       make(map[string]time.Time),
	}
}

// Refresh reloads every cache from the academic store.
func (r *Registry) Refresh(ctx context.Context) error {
	if err := r.RefreshUsers(ctx); err != nil {
		return err
	}
	if err := r.RefreshCourses(ctx); err != nil {
		return err
	}
	if err := r.RefreshCalendar(ctx); err != nil {
		return err
	}
	return r.RefreshDates(ctx)
}

func (r *Registry) RefreshUsers(ctx context.Context) error {
	r.academicMu.RLock()
	users, err := r.academic.GetUsers(ctx)
	r.academicMu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "refreshing users")
	}

	m := make(map[string]user.User, len(users))
	for _, u := range users {
		m[u.Base().Uname] = u
	}

	r.cacheMu.Lock()
	r.users = m
	r.cacheMu.Unlock()
	return nil
}

func (r *Registry) RefreshCourses(ctx context.Context) error {
	r.academicMu.RLock()
	courses, err := r.academic.GetCourses(ctx)
	r.academicMu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "refreshing courses")
	}

	syms := make(map[string]int, len(courses))
	for i, c := range courses {
		syms[c.Sym] = i
	}

	r.cacheMu.Lock()
	r.courses = courses
	r.courseSyms = syms
	r.cacheMu.Unlock()
	return nil
}

func (r *Registry) RefreshCalendar(ctx context.Context) error {
	r.academicMu.RLock()
	days, err := r.academic.GetCalendar(ctx)
	r.academicMu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "refreshing calendar")
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	r.cacheMu.Lock()
	r.calendar = days
	r.cacheMu.Unlock()
	return nil
}

func (r *Registry) RefreshDates(ctx context.Context) error {
	r.academicMu.RLock()
	dates, err := r.academic.GetDates(ctx)
	r.academicMu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "refreshing dates")
	}

	r.cacheMu.Lock()
	r.dates = dates
	r.cacheMu.Unlock()
	return nil
}

// CourseBySym implements course.Catalog over the course cache.
func (r *Registry) CourseBySym(sym string) (*course.Course, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	i, ok := r.courseSyms[sym]
	if !ok {
		return nil, false
	}
	return r.courses[i], true
}

// Courses returns the cached course list.
func (r *Registry) Courses() []*course.Course {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.courses
}

// UserByUname returns the cached user record, if any.
func (r *Registry) UserByUname(uname string) (user.User, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	u, ok := r.users[uname]
	return u, ok
}

// StudentByUname implements half of pace.Roster.
func (r *Registry) StudentByUname(uname string) (*user.Student, bool) {
	u, ok := r.UserByUname(uname)
	if !ok {
		return nil, false
	}
	s, ok := u.(*user.Student)
	return s, ok
}

// TeacherByUname implements the other half of pace.Roster.
func (r *Registry) TeacherByUname(uname string) (*user.Teacher, bool) {
	u, ok := r.UserByUname(uname)
	if !ok {
		return nil, false
	}
	t, ok := u.(*user.Teacher)
	return t, ok
}

// StudentsByTeacher returns all cached students assigned to the teacher,
// ordered by uname.
func (r *Registry) StudentsByTeacher(tuname string) []*user.Student {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var studs []*user.Student
	for _, u := range r.users {
		if s, ok := u.(*user.Student); ok && s.Teacher == tuname {
			studs = append(studs, s)
		}
	}
	sort.Slice(studs, func(i, j int) bool { return studs[i].Uname < studs[j].Uname })
	return studs
}

// Calendar returns the cached instructional days, sorted.
func (r *Registry) Calendar() []time.Time {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.calendar
}

// DateByName returns a cached named date such as "end-fall".
func (r *Registry) DateByName(name string) (time.Time, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	d, ok := r.dates[name]
	return d, ok
}
