// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection attempts, state and established sessions
//   - Inbound frame and event rates, decode failures
//   - Price updates dropped on a full queue
//   - Consumer and sink errors
//
// Server exposes the default registry on the configured path plus a JSON
// /health endpoint fed by a caller-supplied status function.
package metrics
