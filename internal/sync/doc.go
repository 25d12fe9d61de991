// Package sync keeps the local view cache consistent with the
// authoritative booking store.
//
// Every mutation follows the same discipline: snapshot the affected
// views, apply the change optimistically to the local cache, submit it
// to the authoritative store under a fresh idempotency key, and then
// either invalidate the affected views and schedule a refresh (success)
// or restore the snapshot verbatim (failure). The cache therefore never
// holds a merge of optimistic and rolled-back state.
//
// Refreshes are centralized in a single Scheduler that polls each view
// kind on its own interval. A refresh response only applies if the
// view's generation is unchanged since the request was issued, so a
// slow response can never clobber a newer local write.
package sync
