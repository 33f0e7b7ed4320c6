// Package console is a typed client for the admin backend's resource API:
// users, request logs, dashboard statistics and health.
//
// The client knows nothing about credentials. It is built on an *http.Client
// whose transport is the session transport, so every call is authenticated and
// renewed transparently. A 401 that survives renewal surfaces as an *APIError
// matching ErrUnauthorized.
package console
