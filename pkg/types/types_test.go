package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind BodyKind
		text string
	}{
		{"plain text", "hello", BodyText, "hello"},
		{"object", `{"a":1}`, BodyStructured, `{"a":1}`},
		{"array with spaces", ` [1,2] `, BodyStructured, `[1,2]`},
		{"json scalar stays text", `42`, BodyText, `42`},
		{"invalid json stays text", `{nope`, BodyText, `{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ParseBody([]byte(tt.in))
			assert.Equal(t, tt.kind, b.Kind())
			assert.Equal(t, tt.text, b.Text())
		})
	}
}

func TestStructuredBody(t *testing.T) {
	b, err := StructuredBody(map[string]int{"amount": 5})
	require.NoError(t, err)
	assert.Equal(t, BodyStructured, b.Kind())

	var out map[string]int
	require.NoError(t, b.Decode(&out))
	assert.Equal(t, 5, out["amount"])

	_, err = StructuredBody("just a string")
	assert.ErrorIs(t, err, ErrBodyNotStructured)
}

func TestBody_JSON(t *testing.T) {
	text := TextBody("hi")
	assert.Equal(t, `"hi"`, string(text.Canonical()))

	var b Body
	require.NoError(t, json.Unmarshal([]byte(`"hi"`), &b))
	assert.Equal(t, BodyText, b.Kind())
	assert.Equal(t, "hi", b.Text())

	require.NoError(t, json.Unmarshal([]byte(`{"x":true}`), &b))
	assert.Equal(t, BodyStructured, b.Kind())
	assert.JSONEq(t, `{"x":true}`, string(b.Raw()))

	require.NoError(t, json.Unmarshal([]byte(`null`), &b))
	assert.True(t, b.IsZero())
}

func TestEnvelope(t *testing.T) {
	env := EnvelopeBody([]byte{1, 2, 3})
	ct, ok := env.Envelope()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, ct)

	_, ok = TextBody(`{"encryptedMessage":"AQID"}`).Envelope()
	assert.False(t, ok, "文本消息体不是信封")

	_, ok = ParseBody([]byte(`{"other":"AQID"}`)).Envelope()
	assert.False(t, ok)

	_, ok = ParseBody([]byte(`{"encryptedMessage":"!!"}`)).Envelope()
	assert.False(t, ok)
}

func TestWireBody_Unmarshal(t *testing.T) {
	var m WireMessage
	require.NoError(t, json.Unmarshal([]byte(`{"messageId":"1","body":{"a":1}}`), &m))
	assert.Equal(t, WireBody(`{"a":1}`), m.Body)

	require.NoError(t, json.Unmarshal([]byte(`{"messageId":"1","body":"text"}`), &m))
	assert.Equal(t, WireBody("text"), m.Body)
}

func TestMessage_Timestamp(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	_, ok := (&Message{}).Timestamp()
	assert.False(t, ok)

	ts, ok := (&Message{UpdatedAt: &updated}).Timestamp()
	assert.True(t, ok)
	assert.Equal(t, updated, ts)

	ts, _ = (&Message{CreatedAt: &created, UpdatedAt: &updated}).Timestamp()
	assert.Equal(t, created, ts)
}

func TestHostError(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &HostError{Host: "h", Op: PathAcknowledgeMessage, Code: CodeNotFound, Description: "Message not found"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "Message not found")

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestAck_OK(t *testing.T) {
	var nilAck *Ack
	assert.False(t, nilAck.OK())
	assert.False(t, (&Ack{Status: StatusError}).OK())
	assert.True(t, (&Ack{Status: StatusSuccess}).OK())
}
