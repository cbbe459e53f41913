package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"healthtrack-realtime/internal/dto"
	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/pkg/serverutils"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preferencesStub struct {
	mu      sync.Mutex
	status  int
	stored  dto.PreferenceResponse
	patches []dto.UpdatePreferenceRequest
	auth    []string
}

func (s *preferencesStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	if s.status != 0 {
		w.WriteHeader(s.status)
		json.NewEncoder(w).Encode(serverutils.ErrorResponse(s.status, "stub failure"))
		return
	}
	if r.URL.Path != preferencesPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method == http.MethodPatch {
		var req dto.UpdatePreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.patches = append(s.patches, req)
		s.stored.SoundEnabled = *req.SoundEnabled
		s.stored.NotificationsEnabled = *req.NotificationsEnabled
		s.stored.QuietHoursStart = req.QuietHoursStart
		s.stored.QuietHoursEnd = req.QuietHoursEnd
		s.stored.MutedConversations = req.MutedConversations
	}
	json.NewEncoder(w).Encode(serverutils.SuccessResponse("Notification preferences", s.stored))
}

func newStubServer(t *testing.T, stub *preferencesStub) string {
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPreferencesClient_Get(t *testing.T) {
	start, end := "22:00", "06:00:00"
	stub := &preferencesStub{stored: dto.PreferenceResponse{
		SoundEnabled:         true,
		NotificationsEnabled: true,
		QuietHoursStart:      &start,
		QuietHoursEnd:        &end,
		MutedConversations:   []string{"c1"},
	}}
	c := NewPreferencesClient(newStubServer(t, stub), NewStaticTokenProvider("tok"), BreakerConfig{}, logger.NewNopLogger())

	prefs, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, prefs.QuietHoursActive())
	assert.Equal(t, "06:00", prefs.QuietHoursEnd.String())
	assert.True(t, prefs.IsMuted("c1"))
	assert.Equal(t, []string{"Bearer tok"}, stub.auth)
}

func TestPreferencesClient_UpdateSendsFullRecord(t *testing.T) {
	stub := &preferencesStub{}
	c := NewPreferencesClient(newStubServer(t, stub), NewStaticTokenProvider("tok"), BreakerConfig{}, logger.NewNopLogger())

	start := model.MustTimeOfDay(13, 0)
	prefs := model.DefaultPreferences()
	prefs.QuietHoursStart = &start

	got, err := c.Update(context.Background(), prefs)
	require.NoError(t, err)

	require.Len(t, stub.patches, 1)
	patch := stub.patches[0]
	assert.True(t, patch.ClearQuietHours)
	assert.Equal(t, "13:00", *patch.QuietHoursStart)
	assert.Nil(t, patch.QuietHoursEnd)
	assert.NotNil(t, patch.MutedConversations)
	assert.Empty(t, patch.MutedConversations)

	assert.False(t, got.QuietHoursActive())
	assert.Equal(t, "13:00", got.QuietHoursStart.String())
}

func TestPreferencesClient_StatusError(t *testing.T) {
	stub := &preferencesStub{status: http.StatusUnauthorized}
	c := NewPreferencesClient(newStubServer(t, stub), NewStaticTokenProvider("tok"), BreakerConfig{MaxFailures: 1}, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Equal(t, "stub failure", se.Message)
	}
}

func TestPreferencesClient_BreakerOpensOnServerErrors(t *testing.T) {
	stub := &preferencesStub{status: http.StatusBadGateway}
	c := NewPreferencesClient(newStubServer(t, stub), NewStaticTokenProvider("tok"),
		BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, logger.NewNopLogger())

	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background())
		require.Error(t, err)
	}

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, stub.auth, 2, "open breaker must not reach the server")
}

func TestPreferencesClient_NoToken(t *testing.T) {
	stub := &preferencesStub{}
	c := NewPreferencesClient(newStubServer(t, stub), NewStaticTokenProvider(""), BreakerConfig{}, logger.NewNopLogger())

	_, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.Empty(t, stub.auth)
}
