package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoPaymentProfile = errors.New("no payment profile selected")
	ErrPaymentPending   = errors.New("a QR payment is awaiting confirmation")
	ErrCheckoutInFlight = errors.New("a failed checkout must be retried or abandoned first")
	ErrInvalidState     = errors.New("operation not allowed in the current checkout state")
	ErrAbandonPending   = errors.New("checkout is partly rolled back, finish abandoning it")

	ErrAlreadyCancelled = errors.New("invoice is not completed")
	ErrPartialRestore   = errors.New("invoice cancelled but some stock could not be restored")
)

// StepError reports which external call stopped a checkout.
type StepError struct {
	Step       StepKind
	Ingredient string
	Err        error
}

func (e *StepError) Error() string {
	if e.Ingredient != "" {
		return fmt.Sprintf("checkout step %s (%s) failed: %v", e.Step, e.Ingredient, e.Err)
	}
	return fmt.Sprintf("checkout step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type rejectedError struct{ err error }

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

// Rejected marks a store error as a refusal that wrote nothing, such as a
// debit below zero. Any other store error leaves the step in doubt.
func Rejected(err error) error {
	if err == nil {
		return nil
	}
	return &rejectedError{err: err}
}

// IsRejected reports whether err was marked with Rejected.
func IsRejected(err error) bool {
	var r *rejectedError
	return errors.As(err, &r)
}
