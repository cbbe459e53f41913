package realtime

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultPath = "/api/ws"

// ResolveEndpoint picks the websocket URL to dial.
//
// A configured override wins and is normalized to a websocket scheme; a secure page
// origin always forces wss. Without an override the endpoint is defaultPath on the
// page origin's host.
func ResolveEndpoint(override, pageOrigin, defaultPath string) (string, error) {
	secure := false
	var origin *url.URL
	if strings.TrimSpace(pageOrigin) != "" {
		u, err := url.Parse(strings.TrimSpace(pageOrigin))
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: page origin %q", ErrInvalidEndpoint, pageOrigin)
		}
		origin = u
		secure = u.Scheme == "https" || u.Scheme == "wss"
	}

	override = strings.TrimSpace(override)
	if override != "" {
		u, err := url.Parse(override)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, override)
		}
		switch u.Scheme {
		case "ws", "http":
			u.Scheme = "ws"
		case "wss", "https":
			u.Scheme = "wss"
		default:
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
		}
		if secure {
			u.Scheme = "wss"
		}
		return u.String(), nil
	}

	if origin == nil {
		return "", fmt.Errorf("%w: no override and no page origin", ErrInvalidEndpoint)
	}
	if defaultPath == "" {
		defaultPath = DefaultPath
	}
	if !strings.HasPrefix(defaultPath, "/") {
		defaultPath = "/" + defaultPath
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: origin.Host, Path: defaultPath}).String(), nil
}
