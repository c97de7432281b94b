package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"agentdash/internal/models"
	"agentdash/internal/output"
)

var (
	issueTitle string
	issueBody  string
	issueDraft bool
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List and create GitHub issues",
}

var issuesListCmd = &cobra.Command{
	Use:   "list <owner/repo>",
	Short: "List open issues for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issuesListRun(cmd, args[0])
	},
}

var issuesCreateCmd = &cobra.Command{
	Use:   "create <owner/repo>",
	Short: "Create an issue",
	Long: `Create an issue on the given repository.

With --draft, the body you pass is treated as rough notes and expanded
into a structured issue body with the configured Anthropic model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issuesCreateRun(cmd, args[0])
	},
}

func init() {
	issuesCreateCmd.Flags().StringVarP(&issueTitle, "title", "t", "", "Issue title (required)")
	issuesCreateCmd.Flags().StringVarP(&issueBody, "body", "b", "", "Issue body, or rough notes with --draft")
	issuesCreateCmd.Flags().BoolVar(&issueDraft, "draft", false, "Expand the body into a full issue with the LLM")
	_ = issuesCreateCmd.MarkFlagRequired("title")

	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesCreateCmd)
	rootCmd.AddCommand(issuesCmd)
}

func issuesListRun(cmd *cobra.Command, fullName string) error {
	owner, repo, err := models.SplitFullName(fullName)
	if err != nil {
		return err
	}
	gh, err := getGitHub(cmd)
	if err != nil {
		return err
	}

	issues, err := gh.ListIssues(cmd.Context(), owner, repo)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		ui.Info("No open issues in %s.", fullName)
		return nil
	}

	table := ui.Table([]string{"#", "Title", "State", "Author", "Opened"})
	for _, is := range issues {
		table.Append(issueRow(is))
	}
	table.Render()
	return nil
}

func issueRow(is *models.Issue) []string {
	return []string{
		strconv.Itoa(is.Number),
		is.Title,
		output.IssueStateColor(is.State),
		is.User.Login,
		timeAgo(is.CreatedAt),
	}
}

func issuesCreateRun(cmd *cobra.Command, fullName string) error {
	owner, repo, err := models.SplitFullName(fullName)
	if err != nil {
		return err
	}
	gh, err := getGitHub(cmd)
	if err != nil {
		return err
	}

	title, body := issueTitle, issueBody
	if issueDraft {
		drafter := getDrafter()
		if drafter == nil {
			return fmt.Errorf("--draft requires anthropic.api_key (or ANTHROPIC_API_KEY)")
		}
		ui.VerboseLog("Drafting issue body")
		drafted, err := drafter.DraftIssue(cmd.Context(), fullName, title, body)
		if err != nil {
			ui.Warning("Drafting failed, using raw notes: %v", err)
		} else {
			title, body = drafted.Title, drafted.Body
		}
	}

	created, err := gh.CreateIssue(cmd.Context(), owner, repo, title, body)
	if err != nil {
		return err
	}

	ui.Success("Created issue #%d: %s", created.Number, created.Title)
	if created.URL != "" {
		fmt.Fprintln(ui.Out, created.URL)
	}
	return nil
}
