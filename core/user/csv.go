package user

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
)

const (
	// Defaults for students added at the start of a year.
	DefaultExamFraction = 0.2
)

// studentFromRecord builds a Student from one CSV row:
//
//	#uname, last,  rest, email,                  parent,              teacher
//	jsmith, Smith, John, lil.j.smithy@gmail.com, js.senior@gmail.com, jenny
func studentFromRecord(rec []string) (*Student, error) {
	if len(rec) < 6 {
		return nil, errors.Errorf("expected 6 fields, got %d", len(rec))
	}
	s := &Student{
		BaseUser: BaseUser{
			Uname: core.CleanString(rec[0]),
			Role:  RoleStudent,
			Email: core.CleanString(rec[3]),
		},
		Last:               core.CleanString(rec[1]),
		Rest:               core.CleanString(rec[2]),
		Parent:             core.CleanString(rec[4]),
		Teacher:            core.CleanString(rec[5]),
		FallExamFraction:   DefaultExamFraction,
		SpringExamFraction: DefaultExamFraction,
	}
	if s.Uname == "" {
		return nil, errors.New("no uname")
	}
	if s.Last == "" {
		return nil, errors.New("no last name")
	}
	if s.Rest == "" {
		return nil, errors.New("no rest of name")
	}
	if s.Teacher == "" {
		return nil, errors.New("no teacher uname")
	}
	return s, nil
}

// StudentsFromCSV reads new-student records from CSV data. Blank lines and
// lines starting with '#' are ignored. Fields not present in the CSV format
// get "starting the year" defaults.
func StudentsFromCSV(r io.Reader) ([]*Student, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var students []*Student
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading student CSV")
		}
		if blankRecord(rec) {
			continue
		}
		s, err := studentFromRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, errors.Wrapf(err, "line %d", line)
		}
		students = append(students, s)
	}
	return students, nil
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if core.CleanString(f) != "" {
			return false
		}
	}
	return true
}
