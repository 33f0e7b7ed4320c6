// Package tokenstore provides persistent storage for the session credential pair.
//
// Supports four storage backends with different security and deployment tradeoffs:
//   - File: Local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Redis: Shared storage, so several console processes observe each other's writes
//   - Memory: Process-local storage that does not survive a restart
//
// Every backend keeps the access and refresh token as two named slots of a single
// record, so setting or clearing the pair is one atomic operation.
package tokenstore
