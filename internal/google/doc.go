// Package google provides the Google OAuth2 collaborators used by account
// resolution.
//
// TokenProvider mints short-lived access tokens from a stored refresh token
// and, when there is none (or Google rejected it), returns an Intent asking
// the user to approve access in a browser. CodePrompt completes that Intent on
// a terminal by reading the authorization code the browser shows and
// exchanging it for a new refresh token.
package google
