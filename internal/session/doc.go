// Package session reads and mutates the credential triple held in a credstore.Store
// and exposes it as login state.
//
// Presence of a non-empty token is the only signal of being logged in. Membership of
// RoleAdmin in the stored roles is the only signal of being an administrator. The three
// values are independent: a token may exist without a username, and so on.
//
// Logout removes all three values and then navigates to the login page through the
// injected Navigator. Subscribers are notified after every login and logout so views
// can re-render from the new state.
package session
