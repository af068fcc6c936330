package session

import (
	"fmt"
	"io"
	"net/http"
)

// MaxSessionRedirects bounds how often one request is resent after a 302
// bound a new session id.
const MaxSessionRedirects = 2

// Transport is an http.RoundTripper that authorizes each request through an
// Authenticator and applies the response transitions.
//
// A 302 carrying a session id is followed by resending the original request
// (with the new id) up to MaxSessionRedirects times. A 401 clears the token
// and is returned unchanged, so API clients surface their usual error and
// callers detect it with IsUnauthorized.
type Transport struct {
	Auth *Authenticator
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper
	// MaxRedirects overrides MaxSessionRedirects when positive.
	MaxRedirects int
}

// NewTransport creates a Transport over base.
func NewTransport(auth *Authenticator, base http.RoundTripper) *Transport {
	return &Transport{Auth: auth, Base: base}
}

// Client returns an *http.Client using t. Redirects are not followed by the
// client: a 302 must reach the Transport to bind the session.
func (t *Transport) Client() *http.Client {
	return &http.Client{
		Transport: t,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) maxRedirects() int {
	if t.MaxRedirects > 0 {
		return t.MaxRedirects
	}
	return MaxSessionRedirects
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		out := req.Clone(ctx)
		if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replay request body: %w", err)
			}
			out.Body = body
		}

		if err := t.Auth.Prepare(out); err != nil {
			closeBody(req)
			return nil, err
		}

		resp, err := t.base().RoundTrip(out)
		if err != nil {
			return nil, err
		}

		decision, err := t.Auth.OnResponse(ctx, resp)
		if err != nil {
			drain(resp)
			return nil, err
		}

		if !decision.Retry {
			return resp, nil
		}
		if attempt >= t.maxRedirects() || !replayable(req) {
			return resp, nil
		}
		drain(resp)
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
