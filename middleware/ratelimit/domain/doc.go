// Package domain defines the admission-control contracts and value types:
// tiers, credentials, route keys, limiter decisions and stats events.
//
// This package does not depend on net/http or on concrete implementations,
// so classification and key derivation can be unit tested in isolation.
package domain
