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
	return filepath.Join(home, ".config", "agentdash"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage agentdash configuration.

Running bare 'agentdash config' is the same as 'agentdash config show'.`,
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
const configTemplate = `# agentdash configuration
# See: agentdash config show (for effective values and sources)

# SQLite database path (default: ~/.config/agentdash/agentdash.db)
# db_path: {{ .DBPath }}

# GitHub
github:
  # GitHub REST API root
  api_url: "{{ .GitHubAPIURL }}"

  # OAuth app credentials for 'agentdash serve' token exchange
  oauth_client_id: "{{ .OAuthClientID }}"
  oauth_client_secret: ""
  oauth_token_url: "{{ .OAuthTokenURL }}"

# Relay
relay:
  # Address 'agentdash serve' listens on
  listen_addr: "{{ .RelayListenAddr }}"

  # Relay URL the dashboard and CLI talk to
  url: "{{ .RelayURL }}"

  # Agent service API root the relay forwards to
  agent_base_url: "{{ .AgentBaseURL }}"

# Anthropic (issue drafting and session summaries)
anthropic:
  api_key: ""
  model: "{{ .AnthropicModel }}"

# Chat behavior
chat:
  # Initial confidence poll interval; doubles up to 30s
  poll_interval: "{{ .PollInterval }}"

  # Give up polling for a confidence assessment after this many attempts
  poll_max_attempts: {{ .PollMaxAttempts }}

  # Wait before reconciling an optimistic message with the server
  reconcile_delay: "{{ .ReconcileDelay }}"

# Session listing
sessions:
  limit: {{ .SessionsLimit }}
`

type configTemplateData struct {
	DBPath          string
	GitHubAPIURL    string
	OAuthClientID   string
	OAuthTokenURL   string
	RelayListenAddr string
	RelayURL        string
	AgentBaseURL    string
	AnthropicModel  string
	PollInterval    string
	PollMaxAttempts int
	ReconcileDelay  string
	SessionsLimit   int
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
		DBPath:          viper.GetString("db_path"),
		GitHubAPIURL:    viper.GetString("github.api_url"),
		OAuthClientID:   viper.GetString("github.oauth_client_id"),
		OAuthTokenURL:   viper.GetString("github.oauth_token_url"),
		RelayListenAddr: viper.GetString("relay.listen_addr"),
		RelayURL:        viper.GetString("relay.url"),
		AgentBaseURL:    viper.GetString("relay.agent_base_url"),
		AnthropicModel:  viper.GetString("anthropic.model"),
		PollInterval:    viper.GetString("chat.poll_interval"),
		PollMaxAttempts: viper.GetInt("chat.poll_max_attempts"),
		ReconcileDelay:  viper.GetString("chat.reconcile_delay"),
		SessionsLimit:   viper.GetInt("sessions.limit"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
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
	{Key: "db_path", EnvVar: "AGENTDASH_DB_PATH"},
	{Key: "github.api_url", EnvVar: "AGENTDASH_GITHUB_API_URL"},
	{Key: "github.oauth_client_id", EnvVar: "AGENTDASH_GITHUB_OAUTH_CLIENT_ID"},
	{Key: "github.oauth_token_url", EnvVar: "AGENTDASH_GITHUB_OAUTH_TOKEN_URL"},
	{Key: "relay.listen_addr", EnvVar: "AGENTDASH_RELAY_LISTEN_ADDR"},
	{Key: "relay.url", EnvVar: "AGENTDASH_RELAY_URL"},
	{Key: "relay.agent_base_url", EnvVar: "AGENTDASH_RELAY_AGENT_BASE_URL"},
	{Key: "anthropic.model", EnvVar: "AGENTDASH_ANTHROPIC_MODEL"},
	{Key: "chat.poll_interval", EnvVar: "AGENTDASH_CHAT_POLL_INTERVAL"},
	{Key: "chat.poll_max_attempts", EnvVar: "AGENTDASH_CHAT_POLL_MAX_ATTEMPTS"},
	{Key: "chat.reconcile_delay", EnvVar: "AGENTDASH_CHAT_RECONCILE_DELAY"},
	{Key: "sessions.limit", EnvVar: "AGENTDASH_SESSIONS_LIMIT"},
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
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
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
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'agentdash config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
