// Package generate drives the remote generation service. Images are a single
// batched call with per-slot resolution; videos are submitted then polled by
// request id until a terminal response or the wall-clock budget runs out.
// Every remote call is gated by the circuit breaker registry, and each
// persisted result lands in its own storage transaction so cancellation never
// leaves a half-written record.
package generate
