package models

import (
	"errors"
	"fmt"
)

// RequestKind is the musical element a request asks for
type RequestKind string

const (
	KindChord      RequestKind = "chord"
	KindMelody     RequestKind = "melody"
	KindHarmony    RequestKind = "harmony"
	KindRhythm     RequestKind = "rhythm"
	KindInstrument RequestKind = "instrument"
	KindAudioGPT   RequestKind = "audiogpt"
)

// AllRequestKinds lists every supported kind
var AllRequestKinds = []RequestKind{
	KindChord,
	KindMelody,
	KindHarmony,
	KindRhythm,
	KindInstrument,
	KindAudioGPT,
}

// Backend identifies which LLM provider serves a request.
// The values are the wire codes clients send in the "model" field.
type Backend string

const (
	BackendPrimaryChat Backend = "4" // GPT-4 chat completions (Azure OpenAI or OpenAI)
	BackendClaude      Backend = "C"
	BackendGemini      Backend = "G"
)

// AllBackends lists every supported backend
var AllBackends = []Backend{BackendPrimaryChat, BackendClaude, BackendGemini}

// Configuration errors. These are never recovered from at runtime.
var (
	ErrUnknownRequestKind = errors.New("unknown request kind")
	ErrUnknownBackend     = errors.New("no such backend configured")
)

// ErrorInternalServer is the only error text ever sent to clients
const ErrorInternalServer = "Internal Server Error"

// NoDataPlaceholder replaces an empty normalized result
const NoDataPlaceholder = "Error: No data received from the API"

// ParseRequestKind validates a free-form type value
func ParseRequestKind(value string) (RequestKind, error) {
	for _, kind := range AllRequestKinds {
		if string(kind) == value {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRequestKind, value)
}

// ParseBackend validates a free-form model value
func ParseBackend(value string) (Backend, error) {
	for _, backend := range AllBackends {
		if string(backend) == value {
			return backend, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, value)
}

// Label returns a readable backend name for logs and metrics
func (b Backend) Label() string {
	switch b {
	case BackendPrimaryChat:
		return "openai"
	case BackendClaude:
		return "anthropic"
	case BackendGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// GenerationRequest is one inbound "music" event.
// All fields are kept exactly as received; Type and Model are validated by the orchestrator.
type GenerationRequest struct {
	Type     string `json:"type"`
	Genre    string `json:"genre"`
	Mode     string `json:"mode"`
	Composer string `json:"composer"`
	Mood     string `json:"mood"`
	Length   string `json:"length"`
	Key      string `json:"key"`
	Chords   string `json:"chords"`
	Model    string `json:"model"`
}

// PromptPair is a rendered instruction and its matching user message
type PromptPair struct {
	Instruction string
	UserMessage string
}

// TokenSequence is the ordered, unvalidated output of a backend
type TokenSequence []string

// ResponseEnvelope is the single outbound artifact per inbound request
type ResponseEnvelope struct {
	Param       GenerationRequest `json:"param"`
	Data        TokenSequence     `json:"data"`
	Instruments TokenSequence     `json:"instruments"`
	Error       *string           `json:"error"`
}

// NewSuccessEnvelope builds an envelope for a completed request
func NewSuccessEnvelope(req GenerationRequest, data, instruments TokenSequence) *ResponseEnvelope {
	if data == nil {
		data = TokenSequence{}
	}
	if instruments == nil {
		instruments = TokenSequence{}
	}
	return &ResponseEnvelope{
		Param:       req,
		Data:        data,
		Instruments: instruments,
	}
}

// NewErrorEnvelope builds an envelope for a failed request.
// The failure detail is never included.
func NewErrorEnvelope(req GenerationRequest) *ResponseEnvelope {
	msg := ErrorInternalServer
	return &ResponseEnvelope{
		Param:       req,
		Data:        TokenSequence{},
		Instruments: TokenSequence{},
		Error:       &msg,
	}
}

// Failed reports whether the envelope carries an error
func (e *ResponseEnvelope) Failed() bool {
	return e.Error != nil
}
