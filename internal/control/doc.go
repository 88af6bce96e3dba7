// Package control implements the UDP request/reply protocol used to drive
// the external marking application: plaintext PING, FORCELOAD:<path>, STATUS,
// and START requests with a single short reply per request, canonical success
// token "OK".
//
// The client owns the bound local reply endpoint for the lifetime of one
// session. Creating a fresh client per session (and closing the previous one)
// guarantees stale replies buffered for an earlier session can never leak
// into a new one.
package control
