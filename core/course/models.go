package course

// Chapter is one assignable unit of a Course, generally a textbook chapter.
type Chapter struct {
	ID       int64   `json:"id" db:"id"`
	CourseID int64   `json:"course_id" db:"course"`
	// The chapter's number in the text. Two-byte to match the column type.
	Seq     int16   `json:"seq" db:"sequence"`
	Title   string  `json:"title" db:"title"`
	Subject *string `json:"subject,omitempty" db:"subject"`
	// Weight relative to the other Chapters in the Course.
	Weight float64 `json:"weight" db:"weight"`
}

// Course is the requirements for a single year-long course: a chunk of
// chapters from a single textbook.
type Course struct {
	ID    int64   `json:"id" db:"id"`
	Sym   string  `json:"sym" db:"sym"`
	Book  string  `json:"book" db:"book"`
	Title string  `json:"title" db:"title"`
	Level float64 `json:"level" db:"level"`
	// Sum of all chapter weights. nil until the chapter list has been
	// established; goal weight resolution treats nil as a loading bug.
	Weight   *float64  `json:"weight,omitempty"`
	chapters []Chapter
}

func New(id int64, sym, book, title string, level float64) *Course {
	return &Course{
		ID:    id,
		Sym:   sym,
		Book:  book,
		Title: title,
		Level: level,
	}
}

// WithChapters sets the Course's chapter list and recomputes its total
// weight. Any mutation of the chapter list must go through here so the
// total weight is never stale.
func (c *Course) WithChapters(chapters []Chapter) *Course {
	var total float64
	for _, ch := range chapters {
		total += ch.Weight
	}
	c.Weight = &total
	c.chapters = chapters
	return c
}

// Chapter returns chapter `n` of the course, if it exists.
func (c *Course) Chapter(n int16) (*Chapter, bool) {
	for i := range c.chapters {
		if c.chapters[i].Seq == n {
			return &c.chapters[i], true
		}
	}
	return nil, false
}

// Chapters returns the course's chapter list in sequence order.
func (c *Course) Chapters() []Chapter {
	return c.chapters
}

// Catalog is any live view of the course collection keyed by symbol.
type Catalog interface {
	CourseBySym(sym string) (*Course, bool)
}

// MapCatalog is the trivial Catalog over a map. Handy in tests and batch jobs.
type MapCatalog map[string]*Course

func (m MapCatalog) CourseBySym(sym string) (*Course, bool) {
	c, ok := m[sym]
	return c, ok
}
