package net

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const clientTimeout = 300 * time.Second

// GetHTTPClient returns an HTTP client with a timeout suited to
// synchronous batch scoring calls.
func GetHTTPClient() *http.Client {
	return &http.Client{
		Timeout: clientTimeout,
	}
}

// GetOAuthClient returns an HTTP client that sends the given static
// bearer token with every request.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	c := oauth2.NewClient(ctx, ts)
	c.Timeout = clientTimeout

	return c
}
