package contract

// LoadState is the state of an asynchronously derived value.
type LoadState int

const (
	Loading LoadState = iota
	HasValue
	HasError
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case HasValue:
		return "hasValue"
	case HasError:
		return "hasError"
	default:
		return "unknown"
	}
}

// Loadable is a non-blocking view of a derivation.
type Loadable[T any] struct {
	State    LoadState
	Contents T
	Err      error
}

func Pending[T any]() Loadable[T] {
	return Loadable[T]{State: Loading}
}

func Value[T any](v T) Loadable[T] {
	return Loadable[T]{State: HasValue, Contents: v}
}

func Failed[T any](err error) Loadable[T] {
	return Loadable[T]{State: HasError, Err: err}
}

func (l Loadable[T]) Loaded() bool {
	return l.State == HasValue
}
