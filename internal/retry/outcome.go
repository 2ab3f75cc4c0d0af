// File: internal/retry/outcome.go
package retry

type outcomeKind int

const (
	outcomeNotYetReady outcomeKind = iota
	outcomeReady
	outcomeFaulted
)

// Outcome is the result of a single attempt: a value, an explicit "nothing
// meaningful yet", or a fault. The zero Outcome is NotYetReady.
type Outcome[T any] struct {
	kind  outcomeKind
	value T
	err   error
}

// Ready reports a successful attempt carrying v.
func Ready[T any](v T) Outcome[T] {
	return Outcome[T]{kind: outcomeReady, value: v}
}

// NotYetReady reports an attempt that completed without fault but without a usable result.
func NotYetReady[T any]() Outcome[T] {
	return Outcome[T]{kind: outcomeNotYetReady}
}

// Faulted reports an attempt that failed with err. A nil err is treated as NotYetReady.
func Faulted[T any](err error) Outcome[T] {
	if err == nil {
		return NotYetReady[T]()
	}
	return Outcome[T]{kind: outcomeFaulted, err: err}
}

// FromBool maps a boolean check onto an Outcome: true is Ready, false is NotYetReady.
func FromBool(ok bool, err error) Outcome[bool] {
	if err != nil {
		return Faulted[bool](err)
	}
	if !ok {
		return NotYetReady[bool]()
	}
	return Ready(true)
}

func (o Outcome[T]) IsReady() bool   { return o.kind == outcomeReady }
func (o Outcome[T]) IsFaulted() bool { return o.kind == outcomeFaulted }

// Value returns the carried value and whether the outcome is Ready.
func (o Outcome[T]) Value() (T, bool) { return o.value, o.kind == outcomeReady }

// Err returns the fault of a Faulted outcome, nil otherwise.
func (o Outcome[T]) Err() error { return o.err }

func (o Outcome[T]) String() string {
	switch o.kind {
	case outcomeReady:
		return "ready"
	case outcomeFaulted:
		return "faulted"
	default:
		return "not_yet_ready"
	}
}
