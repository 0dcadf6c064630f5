// Package core contains the domain types shared across the gateway:
// language mappings, analysis result types, the circuit breaker used
// around upstream calls, and the Redis response cache.
package core
