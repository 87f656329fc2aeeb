package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mergeq"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage mergeq configuration.

Running bare 'mergeq config' is the same as 'mergeq config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# mergeq configuration
# See: mergeq config show (for effective values and sources)

# SQLite database holding run history (default: ~/.config/mergeq/mergeq.db)
# db_path: {{ .DBPath }}

# Repository as owner/name; empty means the origin remote of the current checkout
repo: "{{ .Repo }}"

# Port for mergeq serve
# port: 8080

review:
  # Approvals needed for consensus
  required_approvals: {{ .RequiredApprovals }}
  # Per-reviewer timeout
  timeout: {{ .ReviewTimeout }}
  # Reviewers: claude, openai, gemini, or any name under command.providers
  providers:
{{- range .Providers }}
    - {{ . }}
{{- end }}

resolve:
  # auto, AI, THEIRS, OURS, REGENERATE or MANUAL
  strategy: {{ .ResolveStrategy }}
  timeout: {{ .ResolveTimeout }}

autofix:
  # Resolve conflicts and run fix commands on PRs that are not ready
  enabled: {{ .AutoFix }}
  # commands:
  #   - gofmt -w .

merge:
  # auto, squash, merge or rebase
  strategy: {{ .MergeStrategy }}
  delete_branch: {{ .DeleteBranch }}

batch:
  # Pause between PRs when processing several
  delay: {{ .BatchDelay }}

anthropic:
  model: "{{ .AnthropicModel }}"
  # api_key: (or ANTHROPIC_API_KEY)

openai:
  model: "{{ .OpenAIModel }}"
  # api_key: (or OPENAI_API_KEY)
  # base_url: for OpenAI-compatible endpoints

gemini:
  model: "{{ .GeminiModel }}"
  # api_key: (or GEMINI_API_KEY)

# Shell commands used as reviewers; each reads the prompt on stdin.
# command:
#   providers:
#     codex: codex exec -
`

type configTemplateData struct {
	DBPath            string
	Repo              string
	RequiredApprovals int
	ReviewTimeout     string
	Providers         []string
	ResolveStrategy   string
	ResolveTimeout    string
	AutoFix           bool
	MergeStrategy     string
	DeleteBranch      bool
	BatchDelay        string
	AnthropicModel    string
	OpenAIModel       string
	GeminiModel       string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:            viper.GetString("db_path"),
		Repo:              viper.GetString("repo"),
		RequiredApprovals: viper.GetInt("review.required_approvals"),
		ReviewTimeout:     viper.GetString("review.timeout"),
		Providers:         viper.GetStringSlice("review.providers"),
		ResolveStrategy:   viper.GetString("resolve.strategy"),
		ResolveTimeout:    viper.GetString("resolve.timeout"),
		AutoFix:           viper.GetBool("autofix.enabled"),
		MergeStrategy:     viper.GetString("merge.strategy"),
		DeleteBranch:      viper.GetBool("merge.delete_branch"),
		BatchDelay:        viper.GetString("batch.delay"),
		AnthropicModel:    viper.GetString("anthropic.model"),
		OpenAIModel:       viper.GetString("openai.model"),
		GeminiModel:       viper.GetString("gemini.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "MERGEQ_STATE_DIR"},
	{Key: "db_path", EnvVar: "MERGEQ_DB_PATH"},
	{Key: "repo", EnvVar: "MERGEQ_REPO"},
	{Key: "port", EnvVar: "MERGEQ_PORT"},
	{Key: "review.required_approvals", EnvVar: "MERGEQ_REVIEW_REQUIRED_APPROVALS"},
	{Key: "review.timeout", EnvVar: "MERGEQ_REVIEW_TIMEOUT"},
	{Key: "review.providers", EnvVar: "MERGEQ_REVIEW_PROVIDERS"},
	{Key: "resolve.strategy", EnvVar: "MERGEQ_RESOLVE_STRATEGY"},
	{Key: "resolve.timeout", EnvVar: "MERGEQ_RESOLVE_TIMEOUT"},
	{Key: "autofix.enabled", EnvVar: "MERGEQ_AUTOFIX_ENABLED"},
	{Key: "autofix.commands", EnvVar: "MERGEQ_AUTOFIX_COMMANDS"},
	{Key: "merge.strategy", EnvVar: "MERGEQ_MERGE_STRATEGY"},
	{Key: "merge.delete_branch", EnvVar: "MERGEQ_MERGE_DELETE_BRANCH"},
	{Key: "batch.delay", EnvVar: "MERGEQ_BATCH_DELAY"},
	{Key: "anthropic.model", EnvVar: "MERGEQ_ANTHROPIC_MODEL"},
	{Key: "openai.model", EnvVar: "MERGEQ_OPENAI_MODEL"},
	{Key: "openai.base_url", EnvVar: "MERGEQ_OPENAI_BASE_URL"},
	{Key: "gemini.model", EnvVar: "MERGEQ_GEMINI_MODEL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-27s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'mergeq config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
