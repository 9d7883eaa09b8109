// Package events defines the optimization lifecycle events emitted on the
// event bus.
//
// Available event types:
//   - OptimizationRequested: a demand was accepted for solving
//   - OptimizationCompleted: a report with an optimal dispatch was produced
//   - OptimizationFailed: the request was rejected or the solve was not optimal
package events
