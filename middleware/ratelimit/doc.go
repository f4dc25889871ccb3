// Package ratelimit provides the net/http adapters for tiered admission
// control and the in-flight cap.
//
// Layers:
//
//   - domain: contracts and value types (no net/http)
//   - application: use cases (classify, admit, acquire) with no net/http
//   - infra: concrete limiter registry, semaphore and stats sinks
//   - ratelimit (this package): middlewares, status codes, headers, JSON bodies
//
// Flow in the gateway:
//
//  1. Parse the Authorization header and classify the caller's tier
//  2. Build the tier|method|route key and admit against its fixed window
//  3. If denied, answer 429 with the tier's requests-per-minute ceiling
//  4. If allowed, put the tier on the request context and call next
//     (user routes or the reverse proxy to the node)
//
// The gateway binary (cmd/gateway) is configured through the environment,
// e.g. RATE_LIMIT_MAX_REQUESTS, PARTNER_PASSWORDS and CONCURRENCY_MAX.
package ratelimit
