package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core/course"
)

// loadCourse reads a course file (TOML header + CSV chapter table) and adds
// it to the catalog.
func (cli *commandLine) loadCourse(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %q", path)
	}
	defer func() { _ = f.Close() }()

	crs, err := course.FromReader(f)
	if err != nil {
		return errors.Wrapf(err, "reading course file %q", path)
	}

	ctx := context.Background()
	if err = cli.reg.InsertCourses(ctx, []*course.Course{crs}); err != nil {
		return err
	}
	fmt.Printf("loaded course %q (%s) with %d chapters\n", crs.Sym, crs.Title, len(crs.Chapters()))
	return nil
}
