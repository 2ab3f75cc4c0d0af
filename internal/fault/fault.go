// File: internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that retry scopes can decide whether to absorb it.
type Kind int

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = iota
	// KindAutomation covers remote UI interaction failures: element not found,
	// stale, obscured, or a browser-side timeout.
	KindAutomation
	// KindDelivery covers notification transport and authentication failures.
	KindDelivery
	// KindFatal marks anything that escaped every inner retry layer.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindAutomation:
		return "automation"
	case KindDelivery:
		return "delivery"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s fault in %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s fault in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Automation wraps err as an AutomationFault raised by op.
func Automation(op string, err error) error {
	return &Error{Kind: KindAutomation, Op: op, Err: err}
}

// Delivery wraps err as a DeliveryFault raised by op.
func Delivery(op string, err error) error {
	return &Error{Kind: KindDelivery, Op: op, Err: err}
}

// Fatal wraps err as a FatalFault. An error that is already fatal is returned as is.
func Fatal(op string, err error) error {
	if Is(err, KindFatal) {
		return err
	}
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// KindIn returns a predicate matching errors classified as one of kinds.
// Unclassified errors never match.
func KindIn(kinds ...Kind) func(error) bool {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(err error) bool {
		if err == nil {
			return false
		}
		_, ok := set[KindOf(err)]
		return ok
	}
}
