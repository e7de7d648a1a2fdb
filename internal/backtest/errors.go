package backtest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the provider returned no bars at all.
	ErrNoData = errors.New("no bars available")

	// ErrInsufficientData means there are fewer bars than the longest
	// indicator window needs. Match it with errors.Is; the concrete
	// *InsufficientDataError carries the counts.
	ErrInsufficientData = errors.New("insufficient bars")

	// ErrInvalidBar means a bar failed validation. The concrete
	// *InvalidBarError carries the index and reason.
	ErrInvalidBar = errors.New("invalid bar")

	// ErrNoBarsProcessed is returned by the engine when the series is empty,
	// so there is no equity curve to report on.
	ErrNoBarsProcessed = errors.New("no bars processed")

	// ErrRunAborted is returned when the run's context ends before the last
	// bar. The partial state is discarded.
	ErrRunAborted = errors.New("backtest aborted")

	// ErrComputation means the metrics came out non-finite.
	ErrComputation = errors.New("metrics computation failed")
)

// InsufficientDataError reports how many bars were available and needed.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient bars: have %d, need at least %d", e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// InvalidBarError pinpoints the first bar that failed validation.
type InvalidBarError struct {
	Index  int
	Reason string
}

func (e *InvalidBarError) Error() string {
	return fmt.Sprintf("invalid bar at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidBarError) Is(target error) bool { return target == ErrInvalidBar }
