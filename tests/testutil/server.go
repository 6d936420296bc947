// Package testutil provides shared helpers for exercising the platform
// client against a local fake backend.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/credential"
)

// TestToken is the bearer token the fake backend expects.
const TestToken = "test-token"

// NewClient starts a fake backend serving handler and returns a client
// pointed at it. The server is torn down with the test.
func NewClient(t *testing.T, handler http.Handler) (*api.Client, *credential.StaticProvider) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := credential.NewStaticProvider(TestToken)
	client := api.NewClient(srv.URL, creds, nil)
	return client, creds
}

// RequireBearer wraps handler, rejecting any request that does not
// carry the expected bearer token.
func RequireBearer(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+TestToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"credential rejected"}`))
			return
		}
		handler(w, r)
	}
}
