// Package session tracks who is signed in to a view session.
//
// The backend issues an opaque bearer token from its /token endpoint and
// reports the account behind it from /me. This package wraps both calls,
// reads the token's subject and expiry (without verifying the signature; the
// backend does that on every request) and keeps the current Session in a
// Tracker that notifies subscribers of three transitions:
//
//   - EventLogin: a session began, including re-authentication
//   - EventLogout: the user signed out
//   - EventExpired: the backend answered 401 or the token's exp passed
//
// An expired session keeps its token and identity until the user signs in
// again or logs out; the view stays as it was behind the re-auth prompt.
package session
