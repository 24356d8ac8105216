// Package ratelimit implements per-(subject, operation) admission
// control using a fixed-quota window.
//
// Each (subject, operation) pair owns a window record created lazily
// on first use. A request inside the window consumes one slot until
// the configured maximum is reached; once the window elapses the next
// request resets the record and starts a fresh window.
//
// # Window Semantics
//
// The window resets wholesale when it elapses (quota-reset style), as
// opposed to a continuously rolling average. The boundary comparison
// is inclusive: a request arriving exactly at windowStart+window
// observes an expired window and triggers the reset.
//
// # Thread Safety
//
// Records are locked per key, not globally, so unrelated subjects do
// not serialize each other. The check-then-increment sequence within
// one record is atomic: two callers racing for the last slot cannot
// both be admitted.
package ratelimit
