package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/pace"
	emailsvc "github.com/d2718/camp-demo/services/email"
)

// sendProgress composes and dispatches parent progress reports, either for a
// single student or for every student assigned to a teacher. Students with no
// parent email on record are skipped with a warning.
func (cli *commandLine) sendProgress(teacher, student string) error {
	ctx := context.Background()
	if err := cli.reg.Refresh(ctx); err != nil {
		return err
	}

	endFall, ok := cli.reg.DateByName("end-fall")
	if !ok {
		return errors.New(`date "end-fall" not set by admin`)
	}
	endSpring, ok := cli.reg.DateByName("end-spring")
	if !ok {
		return errors.New(`date "end-spring" not set by admin`)
	}
	env := pace.DisplayEnv{
		Catalog:   cli.reg,
		EndFall:   endFall,
		EndSpring: endSpring,
		Today:     core.Date(time.Now()),
	}

	var paces []*pace.Pace
	if student != "" {
		p, err := cli.reg.GetPaceByStudent(ctx, core.CleanString(student))
		if err != nil {
			return err
		}
		paces = []*pace.Pace{p}
	} else {
		var err error
		if paces, err = cli.reg.GetPacesByTeacher(ctx, core.CleanString(teacher)); err != nil {
			return err
		}
	}

	var msgs []*core.EmailMessage
	for _, p := range paces {
		pd, err := pace.NewPaceDisplay(p, env)
		if err != nil {
			return errors.Wrapf(err, "computing pace display for %q", p.Student.Uname)
		}
		msg, err := emailsvc.ComposeProgress(&p.Student, pd, cli.cfg.ServiceURI, env.Today)
		if err != nil {
			if core.IsValidationError(err) {
				cli.log.Warn("skipping progress report", err)
				continue
			}
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return errors.New("no students to report on")
	}

	cli.mail.SendMessages(msgs...)
	fmt.Printf("dispatched %d progress report(s)\n", len(msgs))
	return nil
}
