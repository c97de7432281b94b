package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"agentdash/internal/models"
	"agentdash/internal/orchestrator"
	"agentdash/internal/output"
)

var chatStart bool

var chatCmd = &cobra.Command{
	Use:   "chat <owner/repo> <issue-number>",
	Short: "Open an agent session for an issue",
	Long: `Open (or resume) the agent session for a repository issue, wait for
the agent's confidence assessment, and print the conversation so far.

With --start, execution is kicked off as soon as the assessment lands.
Interrupt with Ctrl-C to stop waiting; the session keeps running
upstream and can be resumed later.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[1])
		}
		return chatRun(cmd, args[0], number)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatStart, "start", false, "Start execution once confidence is reported")
	rootCmd.AddCommand(chatCmd)
}

func chatRun(cmd *cobra.Command, fullName string, number int) error {
	owner, repo, err := models.SplitFullName(fullName)
	if err != nil {
		return err
	}
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	issues, err := gh.ListIssues(ctx, owner, repo)
	if err != nil {
		return err
	}
	var issue *models.Issue
	for _, is := range issues {
		if is.Number == number {
			issue = is
			break
		}
	}
	if issue == nil {
		return fmt.Errorf("no open issue #%d in %s", number, fullName)
	}

	orch := orchestrator.New(ac, s, orchestratorConfig())
	if err := orch.OpenIssueChat(ctx, fullName, issue); err != nil {
		return err
	}

	snap := orch.Snapshot()
	ui.Info("Session %s [%s]", snap.SessionID, snap.State)

	if snap.State == orchestrator.StateAwaitingConfidence {
		ui.Info("Waiting for confidence assessment...")
		assessment, err := orch.PollConfidence(ctx)
		switch {
		case errors.Is(err, orchestrator.ErrNoAssessment):
			ui.Warning("No assessment yet. Re-run later to keep waiting.")
		case err != nil:
			return err
		default:
			ui.Success("Confidence %d/100: %s", assessment.Score, assessment.Reasoning)
			if chatStart {
				if err := orch.StartExecution(ctx); err != nil {
					return err
				}
				ui.Success("Execution started.")
			}
		}
	}

	snap = orch.Snapshot()
	fmt.Fprintln(ui.Out)
	for _, m := range snap.Messages {
		fmt.Fprintf(ui.Out, "%s %s\n", output.RoleColor(m.Role), m.Content)
	}
	return nil
}
