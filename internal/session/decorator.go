package session

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// Decorate returns a copy of req carrying "Authorization: Bearer <access token>"
// when the pair holds an access token. Without one the copy is left unauthenticated.
func Decorate(req *http.Request, pair tokenstore.CredentialPair) *http.Request {
	out := req.Clone(req.Context())
	if pair.AccessToken != "" {
		token := &oauth2.Token{AccessToken: pair.AccessToken, TokenType: "Bearer"}
		token.SetAuthHeader(out)
	}
	return out
}
