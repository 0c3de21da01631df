// cmd/keeper/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"keeper/client"
	"keeper/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Keeper checkpoints agent-modified projects into git",
	Long: `Keeper watches project directories that AI agents modify and automatically
checkpoints their changes: commits on qualifying triggers, forks a branch for
large change sets, and pushes best-effort when a remote is configured.`,
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:7317", "keeper daemon address")

	var projectID string

	var registerCmd = &cobra.Command{
		Use:   "register [path]",
		Short: "Register a project directory for auto-checkpointing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			project, err := newClient().RegisterProject(projectID, abs)
			if err != nil {
				return fmt.Errorf("registering project: %w", err)
			}

			color.Green("Registered project %s", project.ID)
			fmt.Println("  root:", project.RootPath)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&projectID, "id", "", "project identifier (default: generated)")

	var projectsCmd = &cobra.Command{
		Use:   "projects",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := newClient().ListProjects()
			if err != nil {
				return fmt.Errorf("listing projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Println("No projects registered")
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%s  %s\n", color.CyanString(p.ID), p.RootPath)
			}
			return nil
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status [project-id]",
		Short: "Show a project's pending changes and pipeline state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := newClient().ProjectStatus(args[0])
			if err != nil {
				return fmt.Errorf("fetching status: %w", err)
			}

			fmt.Println("Project:", color.CyanString(status.ProjectID))
			fmt.Println("  root:            ", status.RootPath)
			fmt.Println("  pending changes: ", status.PendingChanges)
			fmt.Println("  busy:            ", status.Busy)
			if status.LastCommitAt != nil {
				fmt.Println("  last commit:     ", status.LastCommitAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	var toolName, summary string
	var triggerCmd = &cobra.Command{
		Use:   "trigger [project-id] [kind]",
		Short: "Fire a commit trigger (tool_execution, file_change, build_success, test_success, timer)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := newClient().Trigger(args[0], args[1], toolName, summary)
			if err != nil {
				return fmt.Errorf("triggering: %w", err)
			}

			switch {
			case outcome.Scheduled:
				color.Yellow("Commit scheduled (debounced)")
			case outcome.Skipped:
				fmt.Println("Trigger skipped by current configuration")
			case outcome.Result == nil:
				fmt.Println("No pipeline run")
			case outcome.Result.Success:
				color.Green("Committed %s", outcome.Result.CommitHash)
				if outcome.Result.BranchName != "" {
					fmt.Println("  branch:", outcome.Result.BranchName)
				}
				if outcome.Result.Pushed {
					fmt.Println("  pushed to remote")
				}
			case outcome.Result.Error == "":
				fmt.Println("Nothing to commit")
			default:
				color.Red("Commit failed: %s", outcome.Result.Error)
			}
			return nil
		},
	}
	triggerCmd.Flags().StringVar(&toolName, "tool", "", "tool name for the commit message")
	triggerCmd.Flags().StringVar(&summary, "summary", "", "human summary for the commit message")

	var limit int
	var commitsCmd = &cobra.Command{
		Use:   "commits [project-id]",
		Short: "List a project's checkpoint history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newClient().ListCommits(args[0], limit)
			if err != nil {
				return fmt.Errorf("listing commits: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No checkpoints yet")
				return nil
			}
			for _, rec := range records {
				line := fmt.Sprintf("%s  %s  %d files",
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					color.YellowString(shortHash(rec.CommitHash)),
					rec.FilesChanged)
				if rec.BranchName != "" {
					line += "  " + color.CyanString(rec.BranchName)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	commitsCmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")

	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show the daemon's auto-commit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newClient().GetConfig()
			if err != nil {
				return fmt.Errorf("fetching config: %w", err)
			}
			printConfig(cfg)
			return nil
		},
	}

	var enable, disable bool
	var setCmd = &cobra.Command{
		Use:   "set",
		Short: "Update auto-commit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update config.AutoCommitUpdate
			if enable {
				v := true
				update.Enabled = &v
			}
			if disable {
				v := false
				update.Enabled = &v
			}

			cfg, err := newClient().UpdateConfig(update)
			if err != nil {
				return fmt.Errorf("updating config: %w", err)
			}
			printConfig(cfg)
			return nil
		},
	}
	setCmd.Flags().BoolVar(&enable, "enable", false, "enable auto-commit")
	setCmd.Flags().BoolVar(&disable, "disable", false, "disable auto-commit")
	configCmd.AddCommand(setCmd)

	rootCmd.AddCommand(registerCmd, projectsCmd, statusCmd, triggerCmd, commitsCmd, configCmd)
}

func printConfig(cfg *config.AutoCommitConfig) {
	state := color.RedString("disabled")
	if cfg.Enabled {
		state = color.GreenString("enabled")
	}
	fmt.Println("Auto-commit:", state)
	fmt.Println("  minimum changes:    ", cfg.Conditions.MinimumChanges)
	fmt.Println("  debounce delay (ms):", cfg.Conditions.DebounceDelayMs)
	fmt.Println("  auto init repo:     ", cfg.AutoInitRepo)
	fmt.Println("  auto push:          ", cfg.AutoPushToRemote)
	fmt.Println("  branch policy:      ", cfg.BranchPolicy.Enabled)
	if cfg.BranchPolicy.Enabled {
		fmt.Println("    file threshold:   ", cfg.BranchPolicy.FileCountThreshold)
		fmt.Println("    line threshold:   ", cfg.BranchPolicy.LineCountThreshold)
		fmt.Println("    prefix:           ", cfg.BranchPolicy.BranchPrefix)
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
