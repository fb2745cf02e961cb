// Package auth supplies the bearer token the chat client sends and decides
// whether the user counts as authenticated.
//
// Tokens come from TokenSources tried in order by Chain; the first source
// returning a non-empty token wins. JWT tokens are inspected without
// signature verification (the client holds no key) so that an expired token
// is treated the same as a missing one.
package auth
