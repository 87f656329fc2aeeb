package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/mergeq/internal/llm"
	"github.com/joescharf/mergeq/internal/shell"
)

// llmSettings resolves provider credentials from config, falling back to the
// conventional API key variables.
func llmSettings(dir string, runner shell.Runner) llm.Settings {
	return llm.Settings{
		AnthropicKey:   keyOrEnv("anthropic.api_key", "ANTHROPIC_API_KEY"),
		AnthropicModel: viper.GetString("anthropic.model"),
		OpenAIKey:      keyOrEnv("openai.api_key", "OPENAI_API_KEY"),
		OpenAIModel:    viper.GetString("openai.model"),
		OpenAIBaseURL:  viper.GetString("openai.base_url"),
		GeminiKey:      keyOrEnv("gemini.api_key", "GEMINI_API_KEY"),
		GeminiModel:    viper.GetString("gemini.model"),
		Commands:       viper.GetStringMapString("command.providers"),
		Dir:            dir,
		Runner:         runner,
	}
}

func keyOrEnv(key, env string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(env)
}

// newReviewers builds the configured review providers.
func newReviewers(s llm.Settings) ([]llm.Provider, error) {
	return llm.Build(viper.GetStringSlice("review.providers"), s)
}

// newResolvers builds the conflict resolution providers. A nil result means
// the reviewers are reused.
func newResolvers(s llm.Settings) ([]llm.Provider, error) {
	names := viper.GetStringSlice("resolve.providers")
	if len(names) == 0 {
		return nil, nil
	}
	return llm.Build(names, s)
}
