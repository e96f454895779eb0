package handlers

import (
	"encoding/json"
	"testing"

	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantEvent string
		wantType  string
		wantErr   bool
	}{
		{
			name:      "object form",
			raw:       `{"event":"music","data":{"type":"chord","model":"4"}}`,
			wantEvent: "music",
			wantType:  "chord",
		},
		{
			name:      "array form",
			raw:       `["music",{"type":"melody","model":"C"}]`,
			wantEvent: "music",
			wantType:  "melody",
		},
		{
			name:      "stringified payload",
			raw:       `{"event":"music","data":"{\"type\":\"rhythm\",\"model\":\"G\"}"}`,
			wantEvent: "music",
			wantType:  "rhythm",
		},
		{
			name:      "event without payload",
			raw:       `["ping"]`,
			wantEvent: "ping",
		},
		{name: "invalid json", raw: `{"event":`, wantErr: true},
		{name: "scalar", raw: `42`, wantErr: true},
		{name: "empty array", raw: `[]`, wantErr: true},
		{name: "numeric event name", raw: `[1,{}]`, wantErr: true},
		{name: "missing event", raw: `{"data":{}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := decodeFrame([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, errMalformedFrame)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, frame.Event)
			assert.Equal(t, tt.wantType, frame.Payload.Get("type").String())
		})
	}
}

func TestDecodeGenerationRequest(t *testing.T) {
	frame, err := decodeFrame([]byte(`{"event":"music","data":{
		"type": "melody",
		"model": "4",
		"genre": "jazz",
		"mood": null,
		"length": 8,
		"key": "C",
		"mode": "ii",
		"composer": "Evans",
		"chords": ["Cmaj6", "~", "Gdom7"],
		"extra": "ignored"
	}}`))
	require.NoError(t, err)

	req, err := decodeGenerationRequest(frame.Payload)
	require.NoError(t, err)

	assert.Equal(t, &models.GenerationRequest{
		Type:     "melody",
		Model:    "4",
		Genre:    "jazz",
		Mood:     "",
		Length:   "8",
		Key:      "C",
		Mode:     "ii",
		Composer: "Evans",
		Chords:   "Cmaj6,~,Gdom7",
	}, req)
}

func TestDecodeGenerationRequest_NotAnObject(t *testing.T) {
	for _, raw := range []string{`["music"]`, `["music","chord"]`, `["music",[1,2]]`} {
		frame, err := decodeFrame([]byte(raw))
		require.NoError(t, err)

		_, err = decodeGenerationRequest(frame.Payload)
		assert.ErrorIs(t, err, errMalformedPayload, "frame %s", raw)
	}
}

func TestEncodeResponseFrame(t *testing.T) {
	req := models.GenerationRequest{Type: "chord", Model: "4"}
	raw, err := encodeResponseFrame(models.NewSuccessEnvelope(req,
		models.TokenSequence{"Cmaj6", "~"}, models.TokenSequence{"90", "48", "104"}))
	require.NoError(t, err)

	var frame outboundFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "music_response", frame.Event)
	assert.JSONEq(t, `{
		"param": {"type":"chord","genre":"","mode":"","composer":"","mood":"","length":"","key":"","chords":"","model":"4"},
		"data": ["Cmaj6","~"],
		"instruments": ["90","48","104"],
		"error": null
	}`, frame.Data)
}
