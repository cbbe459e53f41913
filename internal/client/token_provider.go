package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"healthtrack-realtime/internal/pkg/serverutils"
	"healthtrack-realtime/internal/realtime"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenProvider is the authentication collaborator. It is asked for a fresh token on
// every connection attempt and the result is never cached by the caller.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: strings.TrimSpace(token)}
}

func (p *StaticTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", realtime.ErrCredentialUnavailable
	}
	return p.token, nil
}

// DevTokenProvider mints short-lived tokens with the relay's shared secret. Local use only.
type DevTokenProvider struct {
	secret string
	userID uuid.UUID
	ttl    time.Duration
}

func NewDevTokenProvider(secret string, userID uuid.UUID, ttl time.Duration) *DevTokenProvider {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DevTokenProvider{secret: secret, userID: userID, ttl: ttl}
}

func (p *DevTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	if p.secret == "" || p.userID == uuid.Nil {
		return "", realtime.ErrCredentialUnavailable
	}
	token, err := serverutils.IssueToken(p.secret, p.userID, p.ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", realtime.ErrCredentialUnavailable, err)
	}
	return token, nil
}

// OAuthTokenProvider exchanges a refresh token for access tokens, reusing each one until
// it is about to expire.
type OAuthTokenProvider struct {
	src oauth2.TokenSource
}

func NewOAuthTokenProvider(ctx context.Context, conf *oauth2.Config, refreshToken string) *OAuthTokenProvider {
	seed := &oauth2.Token{RefreshToken: refreshToken}
	return &OAuthTokenProvider{src: oauth2.ReuseTokenSource(nil, conf.TokenSource(ctx, seed))}
}

func (p *OAuthTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", realtime.ErrCredentialUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", realtime.ErrCredentialUnavailable
	}
	return tok.AccessToken, nil
}
