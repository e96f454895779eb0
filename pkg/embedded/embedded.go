package embedded

import (
	"embed"
)

// Prompts holds one instruction template per request kind, named <kind>.txt
//
//go:embed data/prompts/*.txt
var Prompts embed.FS

// PromptsDir is the directory of the templates inside Prompts
const PromptsDir = "data/prompts"
