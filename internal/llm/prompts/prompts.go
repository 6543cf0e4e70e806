// Package prompts holds the advisor system prompts and the rules for turning
// client-supplied chat history into gateway messages.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/biosecureindia/biosecure/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

const (
	// MaxHistory is the number of most recent history messages forwarded.
	MaxHistory = 20
	// MaxMessageRunes caps a single forwarded message.
	MaxMessageRunes = 4000
)

var roleTagRegex = regexp.MustCompile(`(?i)</?\s*(system|system-instructions|assistant)\b[^>]*>`)

var (
	loadOnce sync.Once
	loadErr  error
	system   map[string]string
)

// Load reads the system prompts from fsys. It uses sync.Once so only the
// first call has an effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		system = make(map[string]string)
		for _, lang := range []string{"en", "hi"} {
			name := "templates/system_" + lang + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			system[lang] = strings.TrimSpace(string(content))
		}
	})
	return loadErr
}

// System returns the system prompt for lang. Hindi gets the Hindi prompt;
// every other language falls back to English.
func System(lang string) (string, error) {
	if err := Load(templateFS); err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(lang), "hi") {
		return system["hi"], nil
	}
	return system["en"], nil
}

// History keeps the last MaxHistory user and assistant messages of history,
// dropping other roles and empty content.
func History(history []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(history))
	for _, m := range history {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		content := Sanitize(m.Content)
		if content == "" {
			continue
		}
		out = append(out, model.ChatMessage{Role: role, Content: content})
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	return out
}

// Sanitize strips role-spoofing tags, trims whitespace and truncates content
// to MaxMessageRunes.
func Sanitize(content string) string {
	content = roleTagRegex.ReplaceAllString(content, "")
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > MaxMessageRunes {
		runes := []rune(content)
		content = string(runes[:MaxMessageRunes])
	}
	return content
}
