// Package credstore provides persistent storage abstractions for the session
// credential triple (token, username, roles).
//
// Supports several storage backends with different security and deployment tradeoffs:
//   - Memory: In-process map, used for one-shot commands and as a test double
//   - File: Local filesystem storage with atomic writes and secure permissions
//   - Env: Read-only environment variable access (requires external secret management)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// Logging in requires writable storage (memory, file or keyring). Env storage can
// only serve credentials provisioned by something else.
package credstore
