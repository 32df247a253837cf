package pace

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// total weights below this cannot be autopaced; guards division by zero
const weightEpsilon = 0.001

// Autopace distributes the pace's due dates across the given academic
// calendar (a chronologically sorted slice of instructional days),
// proportionally to goal weight.
//
// Goals are visited in canonical order, accumulating the weight of dated
// goals; each dated goal lands on day ceil(fraction * len(days)) of the
// calendar, so due dates are non-decreasing and the final goal lands on the
// last day exactly when its cumulative fraction reaches 1.0.
//
// All preconditions are checked before anything is touched, so a failed call
// leaves every due date as it was. Persisting the rewritten dates is the
// caller's separate step.
func (p *Pace) Autopace(days []time.Time) error {
	if len(days) == 0 {
		return errors.New("autopacing requires at least one instructional day")
	}
	var nDated int
	for _, g := range p.Goals {
		if g.Due != nil {
			nDated++
		}
	}
	if nDated < 2 {
		return errors.New("autopacing requires at least two goals with due dates")
	}
	if p.TotalWeight < weightEpsilon {
		return errors.New("not enough material with due dates to autopace")
	}

	var runningWeight float64
	nDays := float64(len(days))
	for _, g := range p.Goals {
		if g.Due == nil {
			continue
		}
		runningWeight += g.Weight
		frac := runningWeight / p.TotalWeight
		idx := int(math.Ceil(nDays * frac))
		if idx < 1 {
			idx = 1
		}
		if idx > len(days) {
			idx = len(days)
		}
		due := days[idx-1]
		g.Due = &due
	}
	return nil
}
