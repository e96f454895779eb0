package prompt

import (
	"fmt"
	"path"
	"strings"

	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/Conceptual-Machines/aideas-relay/pkg/embedded"
)

// Loader reads the embedded instruction templates
type Loader struct {
	templates map[models.RequestKind]string
}

// NewPromptLoader loads every template once.
// A kind without a template file is a build problem, so it fails here rather than per request.
func NewPromptLoader() (*Loader, error) {
	templates := make(map[models.RequestKind]string, len(models.AllRequestKinds))
	for _, kind := range models.AllRequestKinds {
		content, err := embedded.Prompts.ReadFile(path.Join(embedded.PromptsDir, string(kind)+".txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s template: %w", kind, err)
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			return nil, fmt.Errorf("%s template is empty", kind)
		}
		templates[kind] = text
	}
	return &Loader{templates: templates}, nil
}

// MustNewPromptLoader is NewPromptLoader for process startup
func MustNewPromptLoader() *Loader {
	loader, err := NewPromptLoader()
	if err != nil {
		panic(err)
	}
	return loader
}

// GetInstructionTemplate returns the raw instruction template for a kind
func (l *Loader) GetInstructionTemplate(kind models.RequestKind) (string, error) {
	text, ok := l.templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownRequestKind, kind)
	}
	return text, nil
}
