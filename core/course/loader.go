package course

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
)

// Course files are a TOML header (title, sym, book, level) and a CSV chapter
// table, separated by at least one blank line:
//
//	title = "Core Precalculus"
//	sym = "pc"
//	book = "Precalculus: Functions and Graphs"
//	level = 12.1
//
//	#chapter, weight, title,     subject
//	1,        8,      Chapter 1, Topics from Algebra
//	2,        9,      Chapter 2, Graphs and Functions
//
// Weight defaults to 1.0, title to "Chapter N", subject to nothing.

type courseHeader struct {
	Title string  `toml:"title"`
	Sym   string  `toml:"sym"`
	Book  string  `toml:"book"`
	Level float64 `toml:"level"`
}

// splitHeaderBody separates the TOML header from the CSV body on the first
// blank-line gap. The returned line offsets let parse errors report positions
// in the original file.
func splitHeaderBody(r io.Reader) (header, body string, bodyStart int, err error) {
	var (
		head    strings.Builder
		rest    strings.Builder
		scanner = bufio.NewScanner(r)
		line    int
		inHead  bool
		inBody  bool
	)
	for scanner.Scan() {
		line++
		text := scanner.Text()
		blank := strings.TrimSpace(text) == ""
		switch {
		case inBody:
			rest.WriteString(text)
			rest.WriteByte('\n')
		case inHead && blank:
			inHead = false
		case inHead:
			head.WriteString(text)
			head.WriteByte('\n')
		case blank:
			// leading or interstitial whitespace
		case head.Len() == 0:
			inHead = true
			head.WriteString(text)
			head.WriteByte('\n')
		default:
			inBody = true
			bodyStart = line
			rest.WriteString(text)
			rest.WriteByte('\n')
		}
	}
	if err = scanner.Err(); err != nil {
		return "", "", 0, errors.Wrap(err, "reading course file")
	}
	if head.Len() == 0 {
		return "", "", 0, errors.New("course file is empty")
	}
	if rest.Len() == 0 {
		return "", "", 0, errors.New("course file has no chapter table")
	}
	return head.String(), rest.String(), bodyStart, nil
}

func chapterFromRecord(rec []string) (Chapter, error) {
	ch := Chapter{Weight: 1.0}

	if len(rec) < 1 || core.CleanString(rec[0]) == "" {
		return ch, errors.New("line must start with a chapter number")
	}
	seq, err := strconv.ParseInt(core.CleanString(rec[0]), 10, 16)
	if err != nil {
		return ch, errors.Errorf("%q is not a valid chapter number", rec[0])
	}
	ch.Seq = int16(seq)
	ch.Title = fmt.Sprintf("Chapter %d", ch.Seq)

	if len(rec) > 1 && core.CleanString(rec[1]) != "" {
		w, err := strconv.ParseFloat(core.CleanString(rec[1]), 64)
		if err != nil {
			return ch, errors.Errorf("%q is not a valid weight", rec[1])
		}
		ch.Weight = w
	}
	if len(rec) > 2 && core.CleanString(rec[2]) != "" {
		ch.Title = core.CleanString(rec[2])
	}
	if len(rec) > 3 && core.CleanString(rec[3]) != "" {
		subj := core.CleanString(rec[3])
		ch.Subject = &subj
	}
	return ch, nil
}

// FromReader reads a single Course from course-file format.
func FromReader(r io.Reader) (*Course, error) {
	header, body, bodyStart, err := splitHeaderBody(r)
	if err != nil {
		return nil, err
	}

	var head courseHeader
	if err := toml.Unmarshal([]byte(header), &head); err != nil {
		return nil, errors.Wrap(err, "parsing course header")
	}
	if head.Sym == "" {
		return nil, errors.New("course header has no sym")
	}

	cr := csv.NewReader(strings.NewReader(body))
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var chapters []Chapter
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading chapter table")
		}
		ch, err := chapterFromRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, errors.Wrapf(err, "line %d", bodyStart+line-1)
		}
		chapters = append(chapters, ch)
	}
	if len(chapters) == 0 {
		return nil, errors.New("course file contains no chapters")
	}

	c := New(0, head.Sym, head.Book, head.Title, head.Level)
	return c.WithChapters(chapters), nil
}
