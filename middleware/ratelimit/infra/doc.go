// Package infra contains the concrete implementations of the contracts in
// package domain.
//
//   - Registry: process-lifetime map of route key to FixedWindow limiter
//   - FixedWindow: counter that resets at fixed window boundaries
//   - ChanPool: channel semaphore for the in-flight cap
//   - MemoryStatsStore, RedisStatsStore, PrometheusStats: admission stats sinks
package infra
