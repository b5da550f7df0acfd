package main

import (
	"context"
	"os"
	"time"

	"github.com/yomiyougu/core/internal/yomerr"
)

// envTokenAuth is the simplest possible concrete cloudsync.TokenSource and
// cloudsync.TokenVault: it reads a long-lived bearer token from an
// environment variable. Real OAuth acquisition and refresh is explicitly
// out of scope for this module (see cloudsync.TokenSource) and belongs to
// the embedding shell; this adapter exists only so `yomiyougu sync` has
// something to drive end to end from the command line.
type envTokenAuth struct {
	envVar string
}

const envAccessToken = "YOMIYOUGU_ACCESS_TOKEN"

func newEnvTokenAuth() *envTokenAuth {
	return &envTokenAuth{envVar: envAccessToken}
}

func (e *envTokenAuth) AccessToken(ctx context.Context) (string, time.Time, error) {
	tok := os.Getenv(e.envVar)
	if tok == "" {
		return "", time.Time{}, yomerr.New(yomerr.CodeNotAuthenticated, "set "+e.envVar+" to enable cloud sync")
	}
	// A token sourced from the environment never expires on its own; the
	// caller controls its lifetime by rotating the variable.
	return tok, time.Now().Add(24 * time.Hour), nil
}

func (e *envTokenAuth) Refresh(ctx context.Context) (string, time.Time, error) {
	return e.AccessToken(ctx)
}

func (e *envTokenAuth) IsAuthenticated(ctx context.Context) (bool, error) {
	return os.Getenv(e.envVar) != "", nil
}

func (e *envTokenAuth) Clear(ctx context.Context) error {
	return os.Unsetenv(e.envVar)
}
