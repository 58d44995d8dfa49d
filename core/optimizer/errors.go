package optimizer

import (
	"errors"
	"fmt"
)

// ErrInfeasible indicates the exact solver proved no schedule satisfies its
// constraints.
var ErrInfeasible = errors.New("optimizer: infeasible")

// ErrNoSolution indicates the exact solver ran out of time before finding
// any feasible schedule.
var ErrNoSolution = errors.New("optimizer: no solution within time budget")

// ErrUnknownMethod is returned for methods missing from the registry.
var ErrUnknownMethod = errors.New("optimizer: unknown method")

// StrategyFailure wraps an error raised inside a strategy.
type StrategyFailure struct {
	Method Method
	Err    error
}

func (f *StrategyFailure) Error() string {
	return fmt.Sprintf("strategy %s failed: %v", f.Method, f.Err)
}

func (f *StrategyFailure) Unwrap() error { return f.Err }
