// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - StrategyEvent: a strategy started, finished, failed or fell back
//   - OptimizationEvent: the orchestrator produced a result
//   - DecisionEvent: a conflict batch was resolved
//   - ReoptimizationEvent: a disruption triggered a reoptimization
package events
