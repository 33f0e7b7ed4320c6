// Package session implements the authenticated session client of the console.
//
// A Session owns the credential pair (through a tokenstore.TokenStore) and hands
// out an http.RoundTripper that every component building outbound requests uses.
// The transport attaches the access token, watches for the expiry signal (401),
// renews the access token once and replays the failed request. Callers only ever
// see the answer to the replayed request.
//
// # Retry policy
//
// Each logical request is wrapped in an Attempt. A 401 on an attempt that has not
// been retried triggers one renewal and one retry; a 401 on the retried attempt is
// returned to the caller unchanged.
//
// # Renewal
//
// Renewal is single-flight: concurrent requests that hit the expiry signal share
// one call to the backend and retry with the same new access token. A missing
// refresh token or a failed renewal terminates the session: both tokens are
// cleared and subscribers receive exactly one TerminationEvent until the next
// successful Login.
package session
