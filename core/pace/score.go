package pace

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
)

// denominators smaller than this are treated as division by zero
const zeroEpsilon = 0.001

// ParseScore interprets a free-form teacher-entered score string as a
// fraction out of one (possibly greater than 1.0 for extra credit).
//
// Scores are stored verbatim as entered. Three interpretations are tried:
//
//   - "N/D": numerator over denominator ("9/10" is 0.9, "18.5 / 20" is 0.925)
//   - a bare number with absolute value over 2.0: a percentage ("95" is 0.95)
//   - any other bare number: taken directly ("0.82" is 0.82)
//
// The 2.0 cutoff means bare values between 1.0 and 2.0 read as extra-credit
// fractions rather than percentages. That is deliberate policy to stay
// permissive of teacher shorthand, not an oversight.
func ParseScore(text string) (float64, error) {
	parts := strings.Split(text, "/")
	if len(parts) > 2 {
		return 0, errors.Errorf("unable to parse %q as score", text)
	}

	vals := make([]float64, 0, 2)
	for _, p := range parts {
		x, err := strconv.ParseFloat(core.CleanString(p), 64)
		if err != nil {
			// Unparseable chunks are skipped, matching the stored-data
			// tolerance the rest of the interpretations rely on.
			continue
		}
		vals = append(vals, x)
	}

	switch len(vals) {
	case 2:
		n, d := vals[0], vals[1]
		if d > -zeroEpsilon && d < zeroEpsilon {
			return 0, errors.New("danger of division by zero")
		}
		return n / d, nil
	case 1:
		x := vals[0]
		if x > 2.0 || x < -2.0 {
			return x / 100.0, nil
		}
		return x, nil
	default:
		return 0, errors.Errorf("unable to parse %q as score", text)
	}
}

// ParseScoreOpt is ParseScore over an optional score string. A nil input
// yields a nil output.
func ParseScoreOpt(text *string) (*float64, error) {
	if text == nil {
		return nil, nil
	}
	x, err := ParseScore(*text)
	if err != nil {
		return nil, err
	}
	return &x, nil
}
