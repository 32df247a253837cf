package academic

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/pace"
)

type goalRow struct {
	ID         int64       `db:"id"`
	Uname      string      `db:"uname"`
	Sym        string      `db:"sym"`
	Seq        int16       `db:"sequence"`
	Custom     null.Int64  `db:"custom"`
	Review     bool        `db:"review"`
	Incomplete bool        `db:"incomplete"`
	Due        null.Time   `db:"due"`
	Done       null.Time   `db:"done"`
	Tries      null.Int16  `db:"tries"`
	Score      null.String `db:"score"`
}

func (r goalRow) toGoal() *pace.Goal {
	var src pace.Source
	if r.Custom.Valid {
		src = &pace.CustomCh{ID: r.Custom.Int64}
	} else {
		src = &pace.BookCh{Sym: r.Sym, Seq: r.Seq}
	}
	g := &pace.Goal{
		ID:         r.ID,
		Uname:      r.Uname,
		Source:     src,
		Review:     r.Review,
		Incomplete: r.Incomplete,
		Tries:      r.Tries.Ptr(),
		Score:      r.Score.Ptr(),
	}
	if r.Due.Valid {
		d := core.Date(r.Due.Time)
		g.Due = &d
	}
	if r.Done.Valid {
		d := core.Date(r.Done.Time)
		g.Done = &d
	}
	return g
}

const selectGoals = `SELECT id, uname, sym, sequence, custom, review, incomplete,
	due, done, tries, score FROM goals`

func (s *Store) GetGoalsByStudent(ctx context.Context, uname string) ([]*pace.Goal, error) {
	var rows []goalRow
	err := s.db.SelectContext(ctx, &rows, selectGoals+` WHERE uname = $1`, uname)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting goals for %q", uname)
	}
	goals := make([]*pace.Goal, len(rows))
	for i, r := range rows {
		goals[i] = r.toGoal()
	}
	return goals, nil
}

func (s *Store) GetGoalsByTeacher(ctx context.Context, tuname string) ([]*pace.Goal, error) {
	var rows []goalRow
	err := s.db.SelectContext(ctx, &rows,
		selectGoals+` WHERE uname IN (SELECT uname FROM users WHERE role = 'Student' AND teacher = $1)`,
		tuname)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting goals for teacher %q", tuname)
	}
	goals := make([]*pace.Goal, len(rows))
	for i, r := range rows {
		goals[i] = r.toGoal()
	}
	return goals, nil
}

// goalArgs renders a goal's mutable columns as query arguments.
func goalArgs(g *pace.Goal) (sym string, seq int16, custom null.Int64, err error) {
	switch src := g.Source.(type) {
	case *pace.BookCh:
		return src.Sym, src.Seq, null.Int64{}, nil
	case *pace.CustomCh:
		return "", 0, null.Int64From(src.ID), nil
	}
	return "", 0, null.Int64{}, errors.Errorf("goal %d has unusable source material", g.ID)
}

func (s *Store) InsertGoals(ctx context.Context, goals []*pace.Goal) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO goals (uname, sym, sequence, custom, review, incomplete, due, done, tries, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`)
	if err != nil {
		return 0, errors.Wrap(err, "preparing goal insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range goals {
		sym, seq, custom, err := goalArgs(g)
		if err != nil {
			return 0, err
		}
		err = stmt.QueryRowxContext(ctx, g.Uname, sym, seq, custom, g.Review, g.Incomplete,
			null.TimeFromPtr(g.Due), null.TimeFromPtr(g.Done),
			null.Int16FromPtr(g.Tries), null.StringFromPtr(g.Score)).Scan(&g.ID)
		if err != nil {
			return 0, errors.Wrapf(err, "inserting goal for %q", g.Uname)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing goal insert")
	}
	return len(goals), nil
}

func (s *Store) UpdateGoal(ctx context.Context, g *pace.Goal) error {
	sym, seq, custom, err := goalArgs(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET uname = $2, sym = $3, sequence = $4, custom = $5, review = $6,
		 incomplete = $7, due = $8, done = $9, tries = $10, score = $11 WHERE id = $1`,
		g.ID, g.Uname, sym, seq, custom, g.Review, g.Incomplete,
		null.TimeFromPtr(g.Due), null.TimeFromPtr(g.Done),
		null.Int16FromPtr(g.Tries), null.StringFromPtr(g.Score))
	if err != nil {
		return errors.Wrapf(err, "updating goal %d", g.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no goal with id %d", g.ID)
	}
	return nil
}

// UpdateDueDates writes back (only) the due dates of the given goals, all or
// none.
func (s *Store) UpdateDueDates(ctx context.Context, goals []*pace.Goal) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `UPDATE goals SET due = $2 WHERE id = $1`)
	if err != nil {
		return errors.Wrap(err, "preparing due-date update")
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range goals {
		if _, err = stmt.ExecContext(ctx, g.ID, null.TimeFromPtr(g.Due)); err != nil {
			return errors.Wrapf(err, "updating due date of goal %d", g.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing due-date update")
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deleting goal %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no goal with id %d", id)
	}
	return nil
}
