// Package engagement implements the lifecycle of a party's claim on a
// bookable subject.
//
// The five transitions (create, approve, reject, complete, revert) are
// pure precondition-checked mutations shared by two callers: the
// reference authoritative store applies them as the single source of
// truth, and the consistency layer applies them optimistically to the
// local cache before submission. A transition whose precondition no
// longer holds fails with a StaleStateError and mutates nothing. That
// failure is the mechanism by which two near-simultaneous attempts
// resolve deterministically: first to commit wins, the other observes
// the stale state on response.
package engagement
