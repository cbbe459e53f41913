package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/mapper"
	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/pkg/serverutils"

	"github.com/sony/gobreaker/v2"
)

const preferencesPath = "/api/notification-preferences"

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

// StatusError is a non-2xx answer from the preferences endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("preferences endpoint returned %d: %s", e.Code, e.Message)
}

// PreferencesClient talks to GET/PATCH /api/notification-preferences behind a circuit
// breaker, so a dead endpoint fails fast instead of stalling every settings change.
type PreferencesClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	breaker *gobreaker.CircuitBreaker[*dto.PreferenceResponse]
	logger  logger.ILogger
}

func NewPreferencesClient(baseURL string, tokens TokenProvider, cfg BreakerConfig, log logger.ILogger) *PreferencesClient {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*dto.PreferenceResponse](gobreaker.Settings{
		Name:        "preferences-api",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("PreferencesClient", "Circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
		// client errors say nothing about the endpoint's health
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			return err == nil
		},
	})

	return &PreferencesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		breaker: cb,
		logger:  log,
	}
}

func (c *PreferencesClient) Get(ctx context.Context) (model.Preferences, error) {
	resp, err := c.execute(ctx, http.MethodGet, nil)
	if err != nil {
		return model.Preferences{}, err
	}
	return mapper.ToPreferences(resp), nil
}

// Update sends the whole record and returns what the server stored.
func (c *PreferencesClient) Update(ctx context.Context, prefs model.Preferences) (model.Preferences, error) {
	resp, err := c.execute(ctx, http.MethodPatch, mapper.ToUpdateRequest(prefs))
	if err != nil {
		return model.Preferences{}, err
	}
	return mapper.ToPreferences(resp), nil
}

func (c *PreferencesClient) execute(ctx context.Context, method string, body interface{}) (*dto.PreferenceResponse, error) {
	resp, err := c.breaker.Execute(func() (*dto.PreferenceResponse, error) {
		return c.do(ctx, method, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("preferences endpoint unavailable: %w", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *PreferencesClient) do(ctx context.Context, method string, body interface{}) (*dto.PreferenceResponse, error) {
	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal preferences: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+preferencesPath, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, preferencesPath, err)
	}
	defer res.Body.Close()

	var envelope serverutils.Response[*dto.PreferenceResponse]
	decodeErr := json.NewDecoder(res.Body).Decode(&envelope)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := envelope.Message
		if msg == "" {
			msg = res.Status
		}
		return nil, &StatusError{Code: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode preferences: %w", decodeErr)
	}
	if envelope.Data == nil {
		return nil, errors.New("preferences response has no data")
	}
	return envelope.Data, nil
}
