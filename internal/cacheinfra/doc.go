// Package cacheinfra holds the store backends behind the public cache package.
//
// In-process backends (sturdyc, ristretto) are wrapped by an expiring store
// that records a sliding window and an absolute deadline per entry and checks
// them against an injectable Clock on every read. The redis backend encodes the
// same deadlines into a msgpack envelope and relies on key TTLs for the
// sliding window.
package cacheinfra
