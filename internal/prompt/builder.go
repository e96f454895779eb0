package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/aideas-relay/internal/models"
)

// userMessageFormats holds the one-line summary per kind.
// Each kind lists only the fields its template uses; the order of the verbs matches fieldsFor.
var userMessageFormats = map[models.RequestKind]string{
	models.KindChord:      "genre: %s, mood: %s, composer: %s, key: %s, mode: %s, length: %s",
	models.KindMelody:     "mood: %s, composer: %s, key: %s, mode: %s, chords: %s, length: %s",
	models.KindHarmony:    "key: %s, chords: %s, length: %s",
	models.KindRhythm:     "genre: %s, mood: %s, composer: %s",
	models.KindAudioGPT:   "genre: %s, mood: %s, composer: %s, key: %s, mode: %s, chords: %s",
	models.KindInstrument: "genre: %s, mood: %s, influence: %s",
}

// Builder renders prompt pairs from templates and request parameters
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder(loader *Loader) *Builder {
	return &Builder{loader: loader}
}

// Build renders the instruction and user message for kind
func (b *Builder) Build(kind models.RequestKind, req *models.GenerationRequest) (*models.PromptPair, error) {
	template, err := b.loader.GetInstructionTemplate(kind)
	if err != nil {
		return nil, err
	}
	userMessage, err := BuildUserMessage(kind, req)
	if err != nil {
		return nil, err
	}
	return &models.PromptPair{
		Instruction: RenderInstruction(template, req),
		UserMessage: userMessage,
	}, nil
}

// RenderInstruction substitutes {field} placeholders in a template
func RenderInstruction(template string, req *models.GenerationRequest) string {
	return strings.NewReplacer(
		"{genre}", req.Genre,
		"{mode}", req.Mode,
		"{composer}", req.Composer,
		"{mood}", req.Mood,
		"{length}", req.Length,
		"{key}", req.Key,
		"{chords}", req.Chords,
	).Replace(template)
}

// BuildUserMessage renders the user message for kind
func BuildUserMessage(kind models.RequestKind, req *models.GenerationRequest) (string, error) {
	format, ok := userMessageFormats[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownRequestKind, kind)
	}
	return fmt.Sprintf(format, fieldsFor(kind, req)...), nil
}

func fieldsFor(kind models.RequestKind, req *models.GenerationRequest) []any {
	switch kind {
	case models.KindChord:
		return []any{req.Genre, req.Mood, req.Composer, req.Key, req.Mode, req.Length}
	case models.KindMelody:
		return []any{req.Mood, req.Composer, req.Key, req.Mode, req.Chords, req.Length}
	case models.KindHarmony:
		return []any{req.Key, req.Chords, req.Length}
	case models.KindRhythm:
		return []any{req.Genre, req.Mood, req.Composer}
	case models.KindAudioGPT:
		return []any{req.Genre, req.Mood, req.Composer, req.Key, req.Mode, req.Chords}
	case models.KindInstrument:
		return []any{req.Genre, req.Mood, req.Composer}
	default:
		return nil
	}
}
