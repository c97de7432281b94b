package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentdash/internal/agent"
	"agentdash/internal/github"
	"agentdash/internal/llm"
	"agentdash/internal/orchestrator"
	"agentdash/internal/output"
	"agentdash/internal/store"
	"agentdash/internal/tui"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agentdash",
	Short: "Agent Dashboard - browse repos and drive AI coding sessions",
	Long: `agentdash is a dashboard for GitHub repositories and AI coding
agent sessions. It lists repos and issues, opens an agent session per
issue, gates execution on the agent's confidence assessment, and relays
the conversation until a pull request lands.`,
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

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/agentdash/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "agentdash")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AGENTDASH")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "agentdash")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "agentdash.db"))
	viper.SetDefault("github.api_url", "https://api.github.com")
	viper.SetDefault("github.oauth_client_id", "")
	viper.SetDefault("github.oauth_client_secret", "")
	viper.SetDefault("github.oauth_token_url", "https://github.com/login/oauth/access_token")
	viper.SetDefault("relay.listen_addr", "localhost:8787")
	viper.SetDefault("relay.url", "http://localhost:8787")
	viper.SetDefault("relay.agent_base_url", "https://api.devin.ai/v1")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("chat.poll_interval", "3s")
	viper.SetDefault("chat.poll_max_attempts", 30)
	viper.SetDefault("chat.reconcile_delay", "2s")
	viper.SetDefault("sessions.limit", 100)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// Store is initialized lazily so config/version commands run without a db.
}

// rootRun handles `agentdash` with no subcommand: launch the dashboard.
func rootRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	gh, err := getGitHub(cmd)
	if err != nil {
		return err
	}
	ac, err := getAgent(cmd)
	if err != nil {
		return err
	}

	deps := tui.Deps{
		GitHub:       gh,
		Agent:        ac,
		Handles:      s,
		Drafter:      getDrafter(),
		SessionLimit: viper.GetInt("sessions.limit"),
		Orchestrator: orchestratorConfig(),
	}
	return tui.Run(deps)
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// githubToken resolves the GitHub token: stored credential first, then the
// AGENTDASH_GITHUB_TOKEN / github.token config value.
func githubToken(cmd *cobra.Command) (string, error) {
	if s, err := getStore(); err == nil {
		if tok, err := s.GetCredential(cmd.Context(), store.CredentialGitHub); err == nil && tok != "" {
			return tok, nil
		}
	}
	if tok := viper.GetString("github.token"); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("no GitHub token: run 'agentdash auth github' or set AGENTDASH_GITHUB_TOKEN")
}

// agentKey resolves the agent-service API key the same way.
func agentKey(cmd *cobra.Command) (string, error) {
	if s, err := getStore(); err == nil {
		if key, err := s.GetCredential(cmd.Context(), store.CredentialAgent); err == nil && key != "" {
			return key, nil
		}
	}
	if key := viper.GetString("agent.api_key"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no agent API key: run 'agentdash auth agent' or set AGENTDASH_AGENT_API_KEY")
}

func getGitHub(cmd *cobra.Command) (*github.Client, error) {
	tok, err := githubToken(cmd)
	if err != nil {
		return nil, err
	}
	return github.NewClient(tok, github.WithBaseURL(viper.GetString("github.api_url"))), nil
}

func getAgent(cmd *cobra.Command) (agent.API, error) {
	key, err := agentKey(cmd)
	if err != nil {
		return nil, err
	}
	return agent.NewClient(viper.GetString("relay.url"), key), nil
}

// getDrafter returns an LLM client for issue drafting, or nil when no
// Anthropic key is configured.
func getDrafter() *llm.Client {
	key := viper.GetString("anthropic.api_key")
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil
	}
	return llm.NewClient(key, viper.GetString("anthropic.model"))
}

func orchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		PollInterval:    viperDuration("chat.poll_interval", 3*time.Second),
		PollMaxAttempts: viper.GetInt("chat.poll_max_attempts"),
		ReconcileDelay:  viperDuration("chat.reconcile_delay", 2*time.Second),
	}
}

func viperDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
