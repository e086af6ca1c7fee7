// Package prompts holds the embedded extraction prompts and helpers.
// The .tmpl files embedded in per-prompt packages are the source of truth;
// the Resolver exposes them for inspection (CLI, HTTP API).
package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   `json:"key"`         // Hierarchical key: biography.user
	Text        string   `json:"text"`        // The prompt text (Go template)
	Description string   `json:"description"` // Human-readable description
	Variables   []string `json:"variables"`   // Extracted template variables
	Hash        string   `json:"hash"`        // SHA256 hash of the text
}

// Resolver is an in-memory registry of embedded prompts.
type Resolver struct {
	mu      sync.RWMutex
	prompts map[string]EmbeddedPrompt
}

// NewResolver creates an empty prompt resolver.
func NewResolver() *Resolver {
	return &Resolver{prompts: make(map[string]EmbeddedPrompt)}
}

// Register adds a prompt, filling in variables and hash from its text.
func (r *Resolver) Register(p EmbeddedPrompt) {
	p.Variables = ExtractVariables(p.Text)
	p.Hash = HashText(p.Text)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.Key] = p
}

// Get returns a prompt by key.
func (r *Resolver) Get(key string) (EmbeddedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[key]
	if !ok {
		return EmbeddedPrompt{}, fmt.Errorf("prompt not found: %s", key)
	}
	return p, nil
}

// List returns all registered prompts sorted by key.
func (r *Resolver) List() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EmbeddedPrompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// variablePattern matches Go template variable references like {{.VarName}} or {{ .VarName }}
// Also matches nested fields like {{.Book.Title}}
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// ExtractVariables extracts template variable names from a Go template string.
// For example, "Hello {{.Name}}, you have {{.Count}} items" returns ["Count", "Name"].
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var vars []string

	for _, match := range matches {
		if len(match) > 1 {
			varName := match[1]
			if !seen[varName] {
				seen[varName] = true
				vars = append(vars, varName)
			}
		}
	}

	// Sort for consistent ordering
	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
