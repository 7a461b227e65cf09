// Package breaker implements a per-service-key circuit breaker used to
// gate calls to the remote generation endpoints.
//
// Each key moves between closed, open, and half-open states based on
// consecutive failures and a fixed cooldown window. The Registry performs
// no I/O itself; callers check CanProceed before a call and report the
// result with RecordSuccess or RecordFailure.
package breaker
