// Package biography holds the prompt templates and response schema for
// structuring a single biographical entry into an AuthorRecord.
package biography

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/msalhab/tarajim/internal/prompts"
)

//go:embed system.tmpl
var systemTmpl string

//go:embed user.tmpl
var userTmpl string

// Prompt keys as registered with the resolver.
const (
	KeySystem = "biography.system"
	KeyUser   = "biography.user"
)

var userTemplate = template.Must(template.New("biography.user").Parse(userTmpl))

// SystemPrompt returns the static system prompt for biography extraction.
func SystemPrompt() string {
	return systemTmpl
}

// UserPrompt renders the user prompt for a single entry's text.
func UserPrompt(chunkText string) (string, error) {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, struct{ ChunkText string }{ChunkText: chunkText}); err != nil {
		return "", fmt.Errorf("rendering biography prompt: %w", err)
	}
	return buf.String(), nil
}

// RegisterPrompts makes the biography prompts visible to the resolver, so
// they can be listed and inspected from the CLI and API.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         KeySystem,
		Text:        systemTmpl,
		Description: "System prompt framing the model as a tarajim specialist",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         KeyUser,
		Text:        userTmpl,
		Description: "Per-entry user prompt carrying the chunk text",
	})
}
