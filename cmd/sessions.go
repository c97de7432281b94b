package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentdash/internal/orchestrator"
	"agentdash/internal/output"
)

var (
	sessionsRepo  string
	sessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and inspect agent sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's message history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd, args[0])
	},
}

var sessionsSummaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Summarize a session with the LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsSummaryRun(cmd, args[0])
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsRepo, "repo", "", "Only sessions tagged with this owner/repo")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 0, "Max sessions to fetch (default from config)")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsSummaryCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(cmd *cobra.Command) error {
	ac, err := getAgent(cmd)
	if err != nil {
		return err
	}

	limit := sessionsLimit
	if limit <= 0 {
		limit = viper.GetInt("sessions.limit")
	}

	sessions, err := ac.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if sessionsRepo != "" {
		sessions = orchestrator.FilterByRepo(sessions, sessionsRepo)
	}

	if len(sessions) == 0 {
		ui.Info("No sessions found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Status", "PR", "Updated"})
	for _, s := range sessions {
		pr := ""
		if s.PullRequestURL != "" {
			pr = "yes"
		}
		table.Append([]string{
			s.ID,
			s.Title,
			output.SessionStatusColor(s.Status),
			pr,
			timeAgo(s.UpdatedAt),
		})
	}
	table.Render()
	return nil
}

func sessionsShowRun(cmd *cobra.Command, sessionID string) error {
	ac, err := getAgent(cmd)
	if err != nil {
		return err
	}

	sess, err := ac.GetSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	title := sess.Title
	if title == "" {
		title = sess.ID
	}
	ui.Info("%s  [%s]", title, output.SessionStatusColor(sess.Status))
	if sess.PullRequestURL != "" {
		ui.Info("Pull request: %s", sess.PullRequestURL)
	}
	fmt.Fprintln(ui.Out)

	for _, m := range sess.Messages {
		fmt.Fprintf(ui.Out, "%s %s\n", output.RoleColor(m.Role), m.Content)
	}
	return nil
}

func sessionsSummaryRun(cmd *cobra.Command, sessionID string) error {
	drafter := getDrafter()
	if drafter == nil {
		return fmt.Errorf("summaries require anthropic.api_key (or ANTHROPIC_API_KEY)")
	}
	ac, err := getAgent(cmd)
	if err != nil {
		return err
	}

	sess, err := ac.GetSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	summary, err := drafter.SummarizeSession(cmd.Context(), sess)
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Out, summary)
	return nil
}
