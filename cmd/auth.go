package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"agentdash/internal/store"
)

var authToken string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store API credentials",
	Long: `Store the bearer tokens agentdash needs in its local database.

Two credentials are held: the GitHub token used for repo and issue
access, and the agent-service API key forwarded through the relay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatusRun(cmd)
	},
}

var authGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Store the GitHub token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authSetRun(cmd, store.CredentialGitHub, "GitHub token")
	},
}

var authAgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Store the agent-service API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authSetRun(cmd, store.CredentialAgent, "agent API key")
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatusRun(cmd)
	},
}

func init() {
	authGitHubCmd.Flags().StringVar(&authToken, "token", "", "Token value (reads stdin when omitted)")
	authAgentCmd.Flags().StringVar(&authToken, "token", "", "Token value (reads stdin when omitted)")
	authCmd.AddCommand(authGitHubCmd)
	authCmd.AddCommand(authAgentCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func authSetRun(cmd *cobra.Command, kind store.CredentialKind, label string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(authToken)
	if token == "" {
		// Read the token from stdin so it stays out of shell history.
		fmt.Fprintf(ui.Out, "Paste %s: ", label)
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return fmt.Errorf("read %s: %w", label, err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("empty %s", label)
	}

	if err := s.SetCredential(cmd.Context(), kind, token); err != nil {
		return fmt.Errorf("save %s: %w", label, err)
	}
	ui.Success("Stored %s", label)
	return nil
}

func authStatusRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	for _, c := range []struct {
		kind  store.CredentialKind
		label string
	}{
		{store.CredentialGitHub, "GitHub token"},
		{store.CredentialAgent, "agent API key"},
	} {
		val, err := s.GetCredential(cmd.Context(), c.kind)
		switch {
		case err == nil && val != "":
			ui.Success("%s: stored", c.label)
		default:
			ui.Warning("%s: not set", c.label)
		}
	}
	return nil
}
