// Package session authorizes outgoing Google API requests and reacts to the
// two response signals that change credential state.
//
// Before a request is sent the Authenticator writes the Authorization header
// from the stored auth token and, when one is bound, adds the gsessionid query
// parameter. After the response arrives:
//
//   - 302 with a session id: the id is persisted and the request is resent.
//   - 401: the auth token is invalidated and cleared, and the caller is told
//     to re-authenticate.
//   - anything else passes through.
//
// Transport wraps these two steps into an http.RoundTripper so any
// *http.Client, including the generated Google API clients, can use them.
package session
