// Package timelock implements delayed execution of sensitive
// administrative actions.
//
// An action is proposed under a content-derived operation hash with a
// mandatory delay, giving observers a window to react or veto before
// it takes effect. After the delay the proposal is executable exactly
// once, and only within a bounded execution window; past that window
// it is expired and must be re-proposed, so a stale proposal cannot be
// executed long after circumstances changed.
//
// Expiry is a time computation, not a stored transition: no background
// job is required for an expired proposal to be unexecutable.
package timelock
