// Package remote defines the narrow contract against the authoritative
// booking store and provides its three faces: the Store interface the
// consistency layer talks to, an in-memory authoritative implementation
// used as the arbiter in tests and the embedded demo, and an HTTP
// client/server pair speaking a small JSON protocol over the same
// interface.
//
// The authoritative store is the single arbiter of engagement state.
// When two clients race, whoever commits first wins; the loser's request
// is rejected with a STALE_STATE error and the loser must refresh and
// re-decide. Mutations carry caller-generated idempotency keys so a
// retried request is replayed, never re-executed.
package remote
