package pace

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/course"
	"github.com/d2718/camp-demo/core/user"
)

// Roster resolves unames to live user records during goal intake.
type Roster interface {
	StudentByUname(uname string) (*user.Student, bool)
	TeacherByUname(uname string) (*user.Teacher, bool)
}

func field(rec []string, n int) string {
	if n >= len(rec) {
		return ""
	}
	return core.CleanString(rec[n])
}

// goalFromRecord builds a Goal from one CSV row:
//
//	#uname, sym, seq,    y,  m,  d, rev, inc
//	jsmith, pha1,  3, 2022, 09, 10,   x,
//	      ,     ,  9,     ,   , 28,    ,  x
//
// uname, sym, y, m and d default to the previous goal's values, so repeated
// columns can be left blank. rev and inc are true given any text at all.
func goalFromRecord(rec []string, prev *Goal) (*Goal, error) {
	uname := field(rec, 0)
	if uname == "" {
		if prev == nil {
			return nil, errors.New("no uname")
		}
		uname = prev.Uname
	}

	seqStr := field(rec, 2)
	if seqStr == "" {
		return nil, errors.New("no chapter number")
	}
	seq, err := strconv.ParseInt(seqStr, 10, 16)
	if err != nil {
		return nil, errors.Errorf("unable to parse %q as chapter number", seqStr)
	}

	sym := field(rec, 1)
	if sym == "" {
		if prev == nil {
			return nil, errors.New("no course symbol")
		}
		bch, err := prev.Book()
		if err != nil {
			return nil, errors.New("no course symbol")
		}
		sym = bch.Sym
	}

	y, m, d, err := dueParts(rec, prev)
	if err != nil {
		return nil, err
	}
	due := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if due.Year() != y || due.Month() != time.Month(m) || due.Day() != d {
		return nil, errors.Errorf("%d-%d-%d is not a valid date", y, m, d)
	}

	return &Goal{
		Uname:      uname,
		Source:     &BookCh{Sym: sym, Seq: int16(seq)},
		Review:     field(rec, 6) != "",
		Incomplete: field(rec, 7) != "",
		Due:        &due,
	}, nil
}

func dueParts(rec []string, prev *Goal) (y, m, d int, err error) {
	carry := func(col int, part string, fromPrev func(time.Time) int) (int, error) {
		s := field(rec, col)
		if s == "" {
			if prev == nil || prev.Due == nil {
				return 0, errors.Errorf("no %s", part)
			}
			return fromPrev(*prev.Due), nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.Errorf("unable to parse %q as %s", s, part)
		}
		return n, nil
	}

	if y, err = carry(3, "year", func(t time.Time) int { return t.Year() }); err != nil {
		return
	}
	if m, err = carry(4, "month", func(t time.Time) int { return int(t.Month()) }); err != nil {
		return
	}
	if m < 1 || m > 12 {
		err = errors.Errorf("%d is not a valid month", m)
		return
	}
	d, err = carry(5, "day", func(t time.Time) int { return t.Day() })
	return
}

// PacesFromCSV reads a batch of goals in CSV format and assembles them into
// one Pace per student. Blank rows and '#' comment lines are skipped. Every
// goal is checked against the roster and catalog as it is read, so a bad row
// is reported with its line number before anything is assembled.
func PacesFromCSV(r io.Reader, roster Roster, catalog course.Catalog) ([]*Pace, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	byUname := make(map[string][]*Goal)
	var prev *Goal
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading goal CSV")
		}
		if blankRecord(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)

		g, err := goalFromRecord(rec, prev)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if _, ok := roster.StudentByUname(g.Uname); !ok {
			return nil, errors.Errorf("line %d: %q is not a student uname", line, g.Uname)
		}
		if err := resolveGoal(g, catalog); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		byUname[g.Uname] = append(byUname[g.Uname], g)
		prev = g
	}

	paces := make([]*Pace, 0, len(byUname))
	for uname, goals := range byUname {
		stud, ok := roster.StudentByUname(uname)
		if !ok {
			return nil, errors.Errorf("%q is not a student uname", uname)
		}
		teach, ok := roster.TeacherByUname(stud.Teacher)
		if !ok {
			return nil, errors.Errorf("student %q (%s %s) has nonexistent teacher %q on record",
				uname, stud.Rest, stud.Last, stud.Teacher)
		}
		p, err := NewPace(*stud, *teach, goals, catalog)
		if err != nil {
			return nil, errors.Wrapf(err, "assembling pace for %q", uname)
		}
		paces = append(paces, p)
	}
	sort.Slice(paces, func(i, j int) bool {
		return paces[i].Student.Uname < paces[j].Student.Uname
	})
	return paces, nil
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if core.CleanString(f) != "" {
			return false
		}
	}
	return true
}
