package handlers

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRoundTrip(t *testing.T) {
	msg := NewText("Hola a tothom!", 5000)

	data, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","message":"Hola a tothom!","ttl_ms":5000}`, string(data))

	got, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImageRoundTrip(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	msg := NewImage("logo.png", raw, 2500)

	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindImage, got.Kind)
	assert.Equal(t, "logo.png", got.Name)
	assert.Equal(t, int64(2500), got.TTLMs)

	bytes, err := got.ImageBytes()
	require.NoError(t, err)
	assert.Equal(t, raw, bytes)
}

func TestRosterEncodesEmptyList(t *testing.T) {
	data, err := NewRoster("Mario", nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"clients","id":"Mario","list":[]}`, string(data))
}

func TestDecodeTTL(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  int64
	}{
		{"absent defaults", `{"type":"text","message":"hi"}`, DefaultTTLMs},
		{"zero clamps", `{"type":"text","message":"hi","ttl_ms":0}`, 1},
		{"negative clamps", `{"type":"image","b64":"","ttl_ms":-30}`, 1},
		{"fraction truncates", `{"type":"text","ttl_ms":1500.9}`, 1500},
		{"explicit", `{"type":"image","b64":"AA==","ttl_ms":1000}`, 1000},
		{"string defaults", `{"type":"text","message":"hi","ttl_ms":"soon"}`, DefaultTTLMs},
		{"object defaults", `{"type":"image","b64":"AA==","ttl_ms":{}}`, DefaultTTLMs},
		{"null defaults", `{"type":"text","ttl_ms":null}`, DefaultTTLMs},
		{"huge saturates", `{"type":"text","ttl_ms":1e13}`, MaxTTLMs},
		{"overflowing float saturates", `{"type":"text","ttl_ms":1e300}`, MaxTTLMs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TTLMs)
		})
	}
}

func TestConstructorsCapTTL(t *testing.T) {
	assert.Equal(t, MaxTTLMs, NewText("hi", math.MaxInt64).TTLMs)
	assert.Equal(t, MaxTTLMs, NewImage("a.png", []byte{1}, math.MaxInt64).TTLMs)
	assert.Equal(t, int64(1), NewText("hi", math.MinInt64).TTLMs)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrMalformed},
		{"array", `[1,2,3]`, ErrMalformed},
		{"numeric message", `{"type":"text","message":42}`, ErrMalformed},
		{"unknown type", `{"type":"clear"}`, ErrUnknownType},
		{"missing type", `{"message":"hi"}`, ErrUnknownType},
		{"null", `null`, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeRoster(t *testing.T) {
	got, err := Decode([]byte(`{"type":"clients","id":"Luigi","list":["Mario","Luigi"]}`))
	require.NoError(t, err)
	assert.Equal(t, KindRoster, got.Kind)
	assert.Equal(t, "Luigi", got.Self)
	assert.Equal(t, []string{"Mario", "Luigi"}, got.Roster)
}

func TestImageBytesErrors(t *testing.T) {
	_, err := DisplayMessage{Kind: KindImage}.ImageBytes()
	assert.Error(t, err)

	_, err = DisplayMessage{Kind: KindImage, B64: "not base64!"}.ImageBytes()
	assert.Error(t, err)

	data, err := DisplayMessage{Kind: KindImage, B64: base64.StdEncoding.EncodeToString([]byte("x"))}.ImageBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := DisplayMessage{}.Encode()
	assert.ErrorIs(t, err, ErrUnknownType)
}
