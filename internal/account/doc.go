// Package account resolves which Google account to use and obtains an auth
// token for it, interactively when needed.
//
// Collaborators (the account chooser, the token provider and the interactive
// authorizer) hand back their results as Futures; the Resolver waits on them
// and owns every credential transition. A user cancelling the chooser or the
// authorization prompt yields ErrCancelled with no credential change; any
// other failure becomes an *AuthenticationError.
//
// RunProtected runs an operation that needs a valid token and re-resolves
// after a 401 a bounded number of times.
package account
