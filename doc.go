// Package idle terminates authenticated sessions after a period of user
// inactivity, with a warning grace period and an audit trail of every
// transition.
//
// Idle episodes:
//   - The Engine owns the idle clock. It schedules a warning deadline at
//     timeout-warning and an expiry deadline at timeout, ticks a countdown
//     during the warning phase, and guarantees at most one expiry per
//     episode. Stale deadline callbacks self-cancel against a generation
//     counter, so a Reset can never be followed by a warning or timeout it
//     logically superseded.
//   - The Coordinator scopes one Engine to an authenticated session. It
//     invokes the logout collaborator exactly once per episode, publishes a
//     read-only State for presentation surfaces, and exposes ResetTimer as
//     the sole re-arming entry point.
//
// Activity:
//   - Monitor subscribes to a fixed set of interaction signal types and
//     coalesces bursts into a single debounced pulse. While the session is
//     active a pulse refreshes the idle clock; during the warning phase it
//     only dismisses the warning, leaving the deadlines armed.
//
// Compliance sinks:
//   - Sink is a light-weight audit emitter used by the Coordinator to
//     describe warning, timeout, and logout events. Sinks run best-effort
//     (errors are logged) so recording can forward to a database or queue
//     without ever blocking or delaying logout. A bun-backed reference sink
//     with pseudonymized subjects ships with the package.
package idle
