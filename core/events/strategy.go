package events

// Strategy actions.
const (
	ActionStart    = "start"
	ActionDone     = "done"
	ActionFailure  = "failure"
	ActionFallback = "fallback"
)

// StrategyEvent is emitted around each strategy run. Method holds the
// optimizer method name.
type StrategyEvent struct {
	RunID  string
	Method string
	Action string
	Err    error
}
