// Package application holds the admission use cases: tier classification,
// the admission gate (classify, key, resolve limiter, admit) and the
// in-flight slot acquisition.
//
// It depends only on package domain and does not know about net/http.
// E.g. Gate.Admit(ctx, req) returns a domain.Decision; translating it into
// a 429 is the HTTP adapter's job.
package application
