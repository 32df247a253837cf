package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// State tags the outcome of a two-store write.
type State int

const (
	// StateRejected: nothing was committed to either store. Safe to retry
	// after correcting input or resolving a store fault.
	StateRejected State = iota
	// StateCommitted: both stores committed.
	StateCommitted
	// StateInconsistent: one store committed and the other did not. The two
	// stores may disagree and need operator attention, not a blind retry.
	StateInconsistent
)

// Outcome is the tagged result of one coordinator operation. Consistency
// hazards carry a *SyncError so no caller can mistake them for an ordinary
// failure.
type Outcome struct {
	State State
	Err   error
}

// SyncError reports that the academic and credentials stores may disagree
// after a partially-committed operation. It carries the operation and the
// identifiers involved so an operator can reconcile by hand.
type SyncError struct {
	Op     string
	Idents []string
	cause  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf(
		"%s (%s): %v; warning: the academic and credentials stores may be out of sync and need manual attention",
		e.Op, strings.Join(e.Idents, ", "), e.cause,
	)
}

func (e *SyncError) Unwrap() error { return e.cause }

// stageFunc performs all academic-store writes for one operation and returns
// the mirror closure that replays the operation's credentials-store portion,
// using whatever the academic store produced (salts, deleted unames).
type stageFunc func(tx AcademicTx) (mirror func(ctx context.Context, tx CredentialsTx) error, err error)

// dualWrite runs one logical mutation against both stores:
//
//  1. begin an academic transaction and stage every academic write in it;
//  2. begin, run and commit a short credentials transaction using the
//     staged output;
//  3. commit the academic transaction last.
//
// The credentials store is touched only after the academic store has
// validated and staged the rows, and the academic commit comes last so that
// any failure before it leaves the academic store untouched. The unavoidable
// gap between the two commits is surfaced, not hidden: an academic commit
// failure after the credentials commit yields StateInconsistent with a
// *SyncError.
func (r *Registry) dualWrite(ctx context.Context, op string, idents []string, stage stageFunc) Outcome {
	r.academicMu.RLock()
	defer r.academicMu.RUnlock()

	atx, err := r.academic.Begin(ctx)
	if err != nil {
		return Outcome{StateRejected, errors.Wrapf(err, "%s: beginning academic transaction", op)}
	}

	mirror, err := stage(atx)
	if err != nil {
		_ = atx.Rollback()
		return Outcome{StateRejected, err}
	}

	if err := r.mirrorCredentials(ctx, mirror); err != nil {
		_ = atx.Rollback()
		return Outcome{StateRejected, errors.Wrapf(err, "%s: credentials store", op)}
	}

	if err := atx.Commit(); err != nil {
		serr := &SyncError{Op: op, Idents: idents, cause: err}
		r.alert.Error(serr.Error(), serr)
		return Outcome{StateInconsistent, serr}
	}
	return Outcome{StateCommitted, nil}
}

func (r *Registry) mirrorCredentials(ctx context.Context, mirror func(context.Context, CredentialsTx) error) error {
	r.credentialsMu.RLock()
	defer r.credentialsMu.RUnlock()

	tx, err := r.credentials.Begin(ctx)
	if err != nil {
		return err
	}
	if err := mirror(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Resolve collapses an Outcome into the operation's error return.
func (o Outcome) Resolve() error { return o.Err }
