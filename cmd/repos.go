package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"agentdash/internal/output"
)

var (
	reposPage    int
	reposPerPage int
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your GitHub repositories",
	Long:  `List the authenticated user's repositories, most recently updated first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reposListRun(cmd)
	},
}

func init() {
	reposCmd.Flags().IntVar(&reposPage, "page", 1, "Page number")
	reposCmd.Flags().IntVar(&reposPerPage, "per-page", 30, "Repositories per page")
	rootCmd.AddCommand(reposCmd)
}

func reposListRun(cmd *cobra.Command) error {
	gh, err := getGitHub(cmd)
	if err != nil {
		return err
	}

	repos, err := gh.ListRepos(cmd.Context(), reposPage, reposPerPage)
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		ui.Info("No repositories found.")
		return nil
	}

	table := ui.Table([]string{"Repository", "Language", "Stars", "Updated", "Description"})
	for _, r := range repos {
		desc := r.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		table.Append([]string{
			output.Cyan(r.FullName),
			r.Language,
			strconv.Itoa(r.Stars),
			timeAgo(r.UpdatedAt),
			desc,
		})
	}
	table.Render()
	return nil
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
