package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/mergeq/internal/shell"
)

// Settings carries provider credentials and models resolved from config.
type Settings struct {
	AnthropicKey   string
	AnthropicModel string
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiKey      string
	GeminiModel    string
	// Commands maps a provider name to a shell command that reads the prompt
	// on stdin.
	Commands map[string]string
	Dir      string
	Runner   shell.Runner
}

// Build constructs the named providers. Names may be the built-in
// "claude", "openai" and "gemini", or any key of Settings.Commands, which
// take precedence over the built-ins.
func Build(names []string, s Settings) ([]Provider, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no review providers configured")
	}

	seen := map[string]bool{}
	var out []Provider
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if script, ok := s.Commands[name]; ok {
			if s.Runner == nil {
				return nil, fmt.Errorf("provider %s: no command runner", name)
			}
			out = append(out, NewCommand(name, script, s.Dir, s.Runner))
			continue
		}

		switch name {
		case "claude", "anthropic":
			if s.AnthropicKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (set env var or anthropic.api_key in config)")
			}
			out = append(out, NewAnthropic(s.AnthropicKey, s.AnthropicModel))
		case "openai", "gpt":
			if s.OpenAIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY not set (set env var or openai.api_key in config)")
			}
			out = append(out, NewOpenAI("openai", s.OpenAIKey, s.OpenAIModel, s.OpenAIBaseURL))
		case "gemini":
			if s.GeminiKey == "" {
				return nil, fmt.Errorf("GEMINI_API_KEY not set (set env var or gemini.api_key in config)")
			}
			out = append(out, NewGemini(s.GeminiKey, s.GeminiModel))
		default:
			return nil, fmt.Errorf("unknown provider %q (known: %s)", raw, strings.Join(Known(s), ", "))
		}
	}
	return out, nil
}

// Known lists every provider name Build accepts with s.
func Known(s Settings) []string {
	names := []string{"claude", "openai", "gemini"}
	for name := range s.Commands {
		names = append(names, name)
	}
	sort.Strings(names[3:])
	return names
}

// Names returns the names of providers, in order.
func Names(providers []Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return names
}
