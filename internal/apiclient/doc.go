// Package apiclient is the HTTP transport to the inventory REST backend.
//
// Every request carries the session's bearer token when one is given,
// encodes JSON (or form) bodies and decodes JSON responses. Failures are
// returned as *Error whose Message is what the user should see: the
// backend's "detail" field when it has one, otherwise the caller-supplied
// fallback text.
//
// A 401 response invokes the handler registered with WithUnauthorizedHandler
// (the "auth expired" event) unless the request set SkipAuthEvent. Login and
// session probes set it because a 401 there is an ordinary failure.
package apiclient
