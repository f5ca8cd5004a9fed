// Package scheduler contains the scheduling core: two independent,
// mutually-interrupting timers over one shared reminder queue.
//
// # Overview
//
// The Sync controller periodically refreshes the queue from the
// calendar source. The Dispatch scheduler owns the queue and a single
// "next wake-up" timer armed at the queue head; on fire it drains every
// due reminder oldest-first, then re-arms against the new head.
//
// # Ownership
//
// The queue is exclusively owned by Dispatch. Sync never touches it
// directly: it computes a candidate queue and calls ReplaceQueue, which
// performs the swap atomically and cancels any in-flight timer.
// ReplaceQueue and the drain are serialized behind one mutex, so the
// cooperative single-owner model holds on a parallel runtime too.
//
// # Lifecycle
//
// Sync runs once, unconditionally, on startup and then forever on its
// configured schedule, independent of reminder firing. A failed pass is
// logged and changes nothing; the fixed-interval re-run is the recovery
// mechanism.
package scheduler
