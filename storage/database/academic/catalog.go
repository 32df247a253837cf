package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
)

type courseRow struct {
	ID     int64   `db:"id"`
	Sym    string  `db:"sym"`
	Book   string  `db:"book"`
	Title  string  `db:"title"`
	Level  float64 `db:"level"`
	Weight float64 `db:"weight"`
}

type chapterRow struct {
	ID       int64       `db:"id"`
	CourseID int64       `db:"course"`
	Seq      int16       `db:"sequence"`
	Title    string      `db:"title"`
	Subject  null.String `db:"subject"`
	Weight   float64     `db:"weight"`
}

func (s *Store) GetCourses(ctx context.Context) ([]*course.Course, error) {
	var crows []courseRow
	if err := s.db.SelectContext(ctx, &crows, `SELECT id, sym, book, title, level, weight FROM courses ORDER BY sym`); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	var chrows []chapterRow
	if err := s.db.SelectContext(ctx, &chrows, `SELECT id, course, sequence, title, subject, weight FROM chapters ORDER BY course, sequence`); err != nil {
		return nil, errors.Wrap(err, "selecting chapters")
	}

	byCourse := make(map[int64][]course.Chapter, len(crows))
	for _, r := range chrows {
		byCourse[r.CourseID] = append(byCourse[r.CourseID], course.Chapter{
			ID:       r.ID,
			CourseID: r.CourseID,
			Seq:      r.Seq,
			Title:    r.Title,
			Subject:  r.Subject.Ptr(),
			Weight:   r.Weight,
		})
	}

	courses := make([]*course.Course, 0, len(crows))
	for _, r := range crows {
		c := course.New(r.ID, r.Sym, r.Book, r.Title, r.Level).
			WithChapters(byCourse[r.ID])
		courses = append(courses, c)
	}
	return courses, nil
}

func (s *Store) InsertCourses(ctx context.Context, courses []*course.Course) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range courses {
		if c.Weight == nil {
			return errors.Errorf("course %q has not had its weights set", c.Sym)
		}
		var id int64
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO courses (sym, book, title, level, weight) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			c.Sym, c.Book, c.Title, c.Level, *c.Weight).Scan(&id)
		if err != nil {
			return errors.Wrapf(err, "inserting course %q", c.Sym)
		}
		for _, ch := range c.Chapters() {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO chapters (course, sequence, title, subject, weight) VALUES ($1, $2, $3, $4, $5)`,
				id, ch.Seq, ch.Title, null.StringFromPtr(ch.Subject), ch.Weight)
			if err != nil {
				return errors.Wrapf(err, "inserting chapter %d of course %q", ch.Seq, c.Sym)
			}
		}
	}
	return errors.Wrap(tx.Commit(), "committing course insert")
}

func (s *Store) DeleteCourse(ctx context.Context, sym string) (nCourses, nChapters int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM chapters WHERE course IN (SELECT id FROM courses WHERE sym = $1)`, sym)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "deleting chapters of course %q", sym)
	}
	nch, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE sym = $1`, sym)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "deleting course %q", sym)
	}
	ncr, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, 0, errors.Wrap(err, "committing course delete")
	}
	return int(ncr), int(nch), nil
}

func (s *Store) DeleteChapter(ctx context.Context, sym string, seq int16) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chapters WHERE sequence = $2 AND course IN (SELECT id FROM courses WHERE sym = $1)`,
		sym, seq)
	if err != nil {
		return errors.Wrapf(err, "deleting chapter (%q, %d)", sym, seq)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no chapter (%q, %d)", sym, seq)
	}
	return nil
}

func (s *Store) StudentsWithGoalsIn(ctx context.Context, sym string, seq int16) ([]string, error) {
	q := `SELECT DISTINCT uname FROM goals WHERE sym = $1 ORDER BY uname`
	args := []interface{}{sym}
	if seq >= 0 {
		q = `SELECT DISTINCT uname FROM goals WHERE sym = $1 AND sequence = $2 ORDER BY uname`
		args = append(args, seq)
	}
	var unames []string
	if err := s.db.SelectContext(ctx, &unames, q, args...); err != nil {
		return nil, errors.Wrapf(err, "selecting students with goals in %q", sym)
	}
	return unames, nil
}

func (s *Store) GetCalendar(ctx context.Context) ([]time.Time, error) {
	var days []time.Time
	if err := s.db.SelectContext(ctx, &days, `SELECT day FROM calendar ORDER BY day`); err != nil {
		return nil, errors.Wrap(err, "selecting calendar")
	}
	for i := range days {
		days[i] = core.Date(days[i])
	}
	return days, nil
}

// SetCalendar replaces the whole instructional-day table.
func (s *Store) SetCalendar(ctx context.Context, days []time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM calendar`); err != nil {
		return errors.Wrap(err, "clearing calendar")
	}
	for _, d := range days {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO calendar (day) VALUES ($1) ON CONFLICT (day) DO NOTHING`, core.Date(d)); err != nil {
			return errors.Wrap(err, "inserting calendar day")
		}
	}
	return errors.Wrap(tx.Commit(), "committing calendar")
}

func (s *Store) GetDates(ctx context.Context) (map[string]time.Time, error) {
	var rows []struct {
		Name string    `db:"name"`
		Day  time.Time `db:"day"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, day FROM dates`); err != nil {
		return nil, errors.Wrap(err, "selecting dates")
	}
	dates := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		dates[r.Name] = core.Date(r.Day)
	}
	return dates, nil
}

func (s *Store) SetDate(ctx context.Context, name string, d time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dates (name, day) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET day = EXCLUDED.day`,
		name, core.Date(d))
	return errors.Wrapf(err, "setting date %q", name)
}
