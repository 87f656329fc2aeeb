package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/mergeq/internal/output"
	"github.com/joescharf/mergeq/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "mergeq",
	Short: "Multi-agent PR review consensus and merge orchestration",
	Long: `mergeq reviews open pull requests with several AI reviewers, merges the
ones that reach consensus, and resolves merge conflicts along the way.

Each PR passes a readiness gate, optional conflict auto-fix, a parallel
review by every configured provider, and a merge with strategy fallback.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/mergeq/config.yaml)")
	rootCmd.PersistentFlags().String("repo", "", "GitHub repository as owner/name (default: from the origin remote)")
	_ = viper.BindPFlag("repo", rootCmd.PersistentFlags().Lookup("repo"))
}

func initConfig() {
	// A local .env may carry API keys; it never overrides the real environment.
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "mergeq"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MERGEQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default of every config key.
func setDefaults() {
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "mergeq")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "mergeq.db"))
	viper.SetDefault("repo", "")
	viper.SetDefault("port", 8080)
	viper.SetDefault("review.required_approvals", 2)
	viper.SetDefault("review.timeout", "45s")
	viper.SetDefault("review.providers", []string{"claude", "openai", "gemini"})
	viper.SetDefault("review.max_diff_bytes", 60000)
	viper.SetDefault("resolve.strategy", "auto")
	viper.SetDefault("resolve.timeout", "30s")
	viper.SetDefault("resolve.providers", []string{})
	viper.SetDefault("autofix.enabled", false)
	viper.SetDefault("autofix.commands", []string{})
	viper.SetDefault("autofix.recheck_delay", "5s")
	viper.SetDefault("merge.strategy", "auto")
	viper.SetDefault("merge.delete_branch", true)
	viper.SetDefault("batch.delay", "3s")
	viper.SetDefault("command.timeout", "5m")
	viper.SetDefault("command.providers", map[string]string{})
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	// The store is opened lazily so config and version run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}
