package session

import (
	"context"

	"golang.org/x/oauth2"
)

// storeTokenSource exposes the stored token through the oauth2.TokenSource interface.
// The token is read on every call so a logout takes effect on the next request.
type storeTokenSource struct {
	session *Session
}

// Compile-time check to ensure storeTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*storeTokenSource)(nil)

// TokenSource returns an oauth2.TokenSource reading the stored bearer token.
// When logged out it yields a token with an empty AccessToken, which oauth2
// reports as not Valid.
func (s *Session) TokenSource() oauth2.TokenSource {
	return &storeTokenSource{session: s}
}

// Token returns the stored token. Stored tokens carry no expiry.
func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource.Token() has no context parameter (legacy interface limitation)
	token, err := ts.session.Token(context.Background())
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}, nil
}
