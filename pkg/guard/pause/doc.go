// Package pause implements per-scope emergency halts with a hard
// maximum duration.
//
// A pause is activated by an authorized actor (authorization itself is
// the caller's concern) and denies all activity in its scope until it
// is deactivated or its duration elapses. Expiry is computed on every
// check from the stored activation time, never from a background
// sweeper, so a stale pause can never block traffic forever even if
// nobody calls Deactivate. The stored record is only cleared by an
// explicit Deactivate.
//
// No pause may exceed the system-wide duration cap; activation with a
// longer duration is rejected outright rather than silently capped.
package pause
