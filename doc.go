// Package tasktimer runs many independently paced repeating tasks off a
// single logical clock.
//
// A Timer advances in fixed-duration ticks. On each tick it evaluates every
// registered Task: a task executes on tick t iff it is enabled, not yet
// completed, and t is a multiple of its tick interval. Tasks carry their own
// run-count limits and expiry dates; the timer aggregates completion across
// the whole set and reports every state transition through typed events.
//
// The timer promises ordering and counting correctness relative to however
// many ticks actually fired, not wall-clock precision. The underlying wakeup
// primitive is pluggable (see the ticker package), which also makes the
// whole state machine testable without sleeping.
package tasktimer
