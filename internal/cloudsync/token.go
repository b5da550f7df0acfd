package cloudsync

import (
	"context"
	"time"

	"github.com/yomiyougu/core/internal/cloudstore"
)

// TokenSource is the external OAuth collaborator this module never
// implements itself: the embedding shell performs the device-code or
// authorization-code exchange and hands the orchestrator a way to get
// and refresh an access token.
type TokenSource interface {
	// AccessToken returns the current access token and its expiry,
	// without attempting a refresh.
	AccessToken(ctx context.Context) (token string, expiresAt time.Time, err error)

	// Refresh exchanges the refresh token for a new access token. Called
	// only when AccessToken's token has expired.
	Refresh(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// TokenVault persists and clears the token state TokenSource reads,
// letting the orchestrator invalidate credentials on an unrecoverable
// refresh failure (spec §4.9 step 4).
type TokenVault interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
}

// cloudstoreTokenSource adapts a cloudsync.TokenSource (expiry-aware,
// refreshing) to the simpler cloudstore.TokenSource (just-give-me-a-token)
// the HTTP client depends on.
type cloudstoreTokenSource struct {
	inner TokenSource
}

// NewCloudstoreTokenSource wraps a cloudsync.TokenSource so it can be
// passed to cloudstore.NewClient, which only needs a bare token getter.
func NewCloudstoreTokenSource(inner TokenSource) cloudstore.TokenSource {
	return &cloudstoreTokenSource{inner: inner}
}

func (c *cloudstoreTokenSource) Token(ctx context.Context) (string, error) {
	tok, expiresAt, err := c.inner.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if time.Now().Before(expiresAt) {
		return tok, nil
	}
	tok, _, err = c.inner.Refresh(ctx)
	return tok, err
}
