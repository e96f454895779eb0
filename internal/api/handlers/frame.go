package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/tidwall/gjson"
)

const (
	eventMusic         = "music"
	eventMusicResponse = "music_response"
)

var (
	errMalformedFrame   = errors.New("malformed frame")
	errMalformedPayload = errors.New("music payload must be an object")
)

// inboundFrame is one decoded client frame
type inboundFrame struct {
	Event   string
	Payload gjson.Result
}

// outboundFrame carries the serialized envelope as a string, the way socket.io clients expect it
type outboundFrame struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// decodeFrame accepts {"event": name, "data": payload} and the array form [name, payload]
func decodeFrame(raw []byte) (inboundFrame, error) {
	if !gjson.ValidBytes(raw) {
		return inboundFrame{}, fmt.Errorf("%w: invalid JSON", errMalformedFrame)
	}

	var frame inboundFrame
	root := gjson.ParseBytes(raw)
	switch {
	case root.IsArray():
		items := root.Array()
		if len(items) == 0 || items[0].Type != gjson.String {
			return inboundFrame{}, fmt.Errorf("%w: first element must be the event name", errMalformedFrame)
		}
		frame.Event = items[0].Str
		if len(items) > 1 {
			frame.Payload = items[1]
		}
	case root.IsObject():
		event := root.Get("event")
		if event.Type != gjson.String {
			return inboundFrame{}, fmt.Errorf("%w: missing event name", errMalformedFrame)
		}
		frame.Event = event.Str
		frame.Payload = root.Get("data")
	default:
		return inboundFrame{}, fmt.Errorf("%w: expected object or array", errMalformedFrame)
	}

	// Some clients send the payload pre-stringified
	if frame.Payload.Type == gjson.String && gjson.Valid(frame.Payload.Str) {
		if nested := gjson.Parse(frame.Payload.Str); nested.IsObject() {
			frame.Payload = nested
		}
	}
	return frame, nil
}

// decodeGenerationRequest reads the music payload leniently.
// Numbers and booleans keep their literal text, arrays are joined with ",",
// and missing or null fields are empty.
func decodeGenerationRequest(payload gjson.Result) (*models.GenerationRequest, error) {
	if !payload.IsObject() {
		return nil, errMalformedPayload
	}

	return &models.GenerationRequest{
		Type:     fieldText(payload.Get("type")),
		Genre:    fieldText(payload.Get("genre")),
		Mode:     fieldText(payload.Get("mode")),
		Composer: fieldText(payload.Get("composer")),
		Mood:     fieldText(payload.Get("mood")),
		Length:   fieldText(payload.Get("length")),
		Key:      fieldText(payload.Get("key")),
		Chords:   fieldText(payload.Get("chords")),
		Model:    fieldText(payload.Get("model")),
	}, nil
}

func fieldText(value gjson.Result) string {
	switch {
	case !value.Exists(), value.Type == gjson.Null:
		return ""
	case value.Type == gjson.String:
		return value.Str
	case value.IsArray():
		items := value.Array()
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, fieldText(item))
		}
		return strings.Join(parts, ",")
	default:
		return value.Raw
	}
}

// encodeResponseFrame wraps the envelope in a music_response frame
func encodeResponseFrame(envelope *models.ResponseEnvelope) ([]byte, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return json.Marshal(outboundFrame{Event: eventMusicResponse, Data: string(body)})
}
