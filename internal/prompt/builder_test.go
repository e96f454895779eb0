package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/aideas-relay/internal/models"
)

// Every field carries a distinct marker so the user message can be checked field by field
func markedRequest() *models.GenerationRequest {
	return &models.GenerationRequest{
		Type:     "chord",
		Genre:    "GENRE-jazz",
		Mode:     "MODE-ii",
		Composer: "COMPOSER-Evans",
		Mood:     "MOOD-calm",
		Length:   "LENGTH-8",
		Key:      "KEY-C",
		Chords:   "CHORDS-Cmaj6,~",
		Model:    "4",
	}
}

func TestNewPromptBuilder(t *testing.T) {
	builder := NewPromptBuilder(MustNewPromptLoader())
	if builder == nil {
		t.Fatal("NewPromptBuilder() returned nil")
	}
	if builder.loader == nil {
		t.Fatal("NewPromptBuilder() created builder with nil loader")
	}
}

func TestBuildUserMessageFieldSubsets(t *testing.T) {
	req := markedRequest()
	markers := map[string]string{
		"genre":    req.Genre,
		"mode":     req.Mode,
		"composer": req.Composer,
		"mood":     req.Mood,
		"length":   req.Length,
		"key":      req.Key,
		"chords":   req.Chords,
	}

	subsets := map[models.RequestKind][]string{
		models.KindChord:      {"genre", "mood", "composer", "key", "mode", "length"},
		models.KindMelody:     {"mood", "composer", "key", "mode", "chords", "length"},
		models.KindHarmony:    {"key", "chords", "length"},
		models.KindRhythm:     {"genre", "mood", "composer"},
		models.KindAudioGPT:   {"genre", "mood", "composer", "key", "mode", "chords"},
		models.KindInstrument: {"genre", "mood", "composer"},
	}

	for kind, fields := range subsets {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := BuildUserMessage(kind, req)
			if err != nil {
				t.Fatalf("BuildUserMessage(%s) returned error: %v", kind, err)
			}
			if strings.Contains(msg, "\n") {
				t.Errorf("user message should be one line, got %q", msg)
			}

			included := map[string]bool{}
			for _, field := range fields {
				included[field] = true
			}
			for field, marker := range markers {
				has := strings.Contains(msg, marker)
				if included[field] && !has {
					t.Errorf("%s user message is missing %s: %q", kind, field, msg)
				}
				if !included[field] && has {
					t.Errorf("%s user message must not contain %s: %q", kind, field, msg)
				}
			}
		})
	}
}

func TestBuildUserMessageFormat(t *testing.T) {
	req := &models.GenerationRequest{Genre: "jazz", Mood: "calm", Composer: "Evans", Key: "C", Mode: "ii", Length: "8"}

	msg, err := BuildUserMessage(models.KindChord, req)
	if err != nil {
		t.Fatalf("BuildUserMessage() returned error: %v", err)
	}
	want := "genre: jazz, mood: calm, composer: Evans, key: C, mode: ii, length: 8"
	if msg != want {
		t.Errorf("BuildUserMessage() = %q, want %q", msg, want)
	}

	msg, err = BuildUserMessage(models.KindInstrument, req)
	if err != nil {
		t.Fatalf("BuildUserMessage() returned error: %v", err)
	}
	if msg != "genre: jazz, mood: calm, influence: Evans" {
		t.Errorf("unexpected instrument message %q", msg)
	}
}

func TestBuildRendersPlaceholders(t *testing.T) {
	builder := NewPromptBuilder(MustNewPromptLoader())
	req := markedRequest()

	for _, kind := range models.AllRequestKinds {
		pair, err := builder.Build(kind, req)
		if err != nil {
			t.Fatalf("Build(%s) returned error: %v", kind, err)
		}
		if pair.Instruction == "" {
			t.Errorf("Build(%s) returned empty instruction", kind)
		}
		if strings.Contains(pair.Instruction, "{") {
			t.Errorf("Build(%s) left a placeholder unrendered: %q", kind, pair.Instruction)
		}
		if pair.UserMessage == "" {
			t.Errorf("Build(%s) returned empty user message", kind)
		}
	}

	pair, err := builder.Build(models.KindChord, req)
	if err != nil {
		t.Fatalf("Build(chord) returned error: %v", err)
	}
	if !strings.Contains(pair.Instruction, "mode (e.g., ii of C is Dmin_) = MODE-ii diatonic to key = KEY-C major") {
		t.Errorf("chord instruction not rendered with request values: %q", pair.Instruction)
	}
}

func TestBuildUnknownKind(t *testing.T) {
	builder := NewPromptBuilder(MustNewPromptLoader())

	pair, err := builder.Build(models.RequestKind("solo"), markedRequest())
	if !errors.Is(err, models.ErrUnknownRequestKind) {
		t.Fatalf("expected ErrUnknownRequestKind, got %v", err)
	}
	if pair != nil {
		t.Error("Build() should not return a pair for an unknown kind")
	}

	if _, err := BuildUserMessage(models.RequestKind("solo"), markedRequest()); !errors.Is(err, models.ErrUnknownRequestKind) {
		t.Fatalf("expected ErrUnknownRequestKind, got %v", err)
	}
}
