package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "22:00", want: "22:00"},
		{in: "06:30:00", want: "06:30"},
		{in: " 7:05 ", want: "07:05"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	start := MustTimeOfDay(22, 0)
	data, err := json.Marshal(&start)
	require.NoError(t, err)
	assert.Equal(t, `"22:00"`, string(data))

	var decoded TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"06:15"`), &decoded))
	assert.Equal(t, 6*60+15, decoded.Minutes())

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &decoded))
}

func TestTimeOfDayFrom(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2026, 10, 16, 23, 30, 0, 0, loc)
	assert.Equal(t, "23:30", TimeOfDayFrom(now).String())
}

func TestPreferences_QuietHoursActive(t *testing.T) {
	p := DefaultPreferences()
	assert.False(t, p.QuietHoursActive())

	start := MustTimeOfDay(22, 0)
	p.QuietHoursStart = &start
	assert.False(t, p.QuietHoursActive(), "a missing end disables the window")

	end := MustTimeOfDay(6, 0)
	p.QuietHoursEnd = &end
	assert.True(t, p.QuietHoursActive())
}

func TestPreferences_Clone(t *testing.T) {
	p := DefaultPreferences()
	p.MutedConversations["c1"] = struct{}{}

	clone := p.Clone()
	p.MutedConversations["c2"] = struct{}{}

	assert.True(t, clone.IsMuted("c1"))
	assert.False(t, clone.IsMuted("c2"))
	assert.Equal(t, []string{"c1", "c2"}, p.MutedList())
}
