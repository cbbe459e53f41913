package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectRoundTrip(t *testing.T) {
	assert.Equal(t, "events.MESSAGE_CREATED", Subject(MessageCreated))
	assert.Equal(t, MessageCreated, TypeFromSubject(Subject(MessageCreated)))
	assert.Equal(t, "PLAIN", TypeFromSubject("PLAIN"))
}

func TestPayloadAccessors(t *testing.T) {
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"sender_id":"u1","recipient_ids":["u2","",3,"u3"],"single":"u4"}`), &payload))

	assert.Equal(t, "u1", String(payload, "sender_id"))
	assert.Equal(t, "", String(payload, "missing"))
	assert.Equal(t, []string{"u2", "u3"}, Strings(payload, "recipient_ids"))
	assert.Equal(t, []string{"u4"}, Strings(payload, "single"))
	assert.Nil(t, Strings(payload, "missing"))
	assert.Equal(t, []string{"a"}, Strings(map[string]interface{}{"k": []string{"a"}}, "k"))
}
