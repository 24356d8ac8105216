// Package anomaly implements advisory spike detection on operational
// metrics.
//
// Each metric keeps a slowly-refreshed baseline. The first observation
// seeds the baseline; later observations flag an anomaly when the
// current value exceeds baseline multiplied by the configured factor.
// The baseline rolls forward to the previous current value only after
// the refresh window elapses, so it tracks a slow-moving reference
// rather than freezing at the first sample forever.
//
// Detection is advisory: the caller decides whether a flagged metric
// should trip a breaker or raise an alert.
package anomaly
