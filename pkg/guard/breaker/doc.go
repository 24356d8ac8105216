// Package breaker implements per-operation circuit breaking driven by
// reported outcome ratios.
//
// Each operation accumulates success and failure counts. Once the
// sample reaches the configured minimum and the failure ratio crosses
// the threshold, the breaker trips and admission checks for that
// operation are denied until the cooldown elapses. The first check
// after the cooldown auto-resets the breaker and zeroes both counters.
//
// The minimum sample size prevents tripping on a handful of unlucky
// early failures; the cooldown enforces a mandatory quiet period so a
// breaker cannot flap between tripped and reset.
//
// Trip and Reset are also exposed directly for administrative use,
// bypassing the ratio thresholding.
package breaker
