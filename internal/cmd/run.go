package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MarkUsProject/markusmoss/internal/config"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/pipeline"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run [action...]",
	Short: "Run pipeline actions",
	Long: `Run the named pipeline actions and any of their dependencies that
have not completed yet. With no arguments, runs the whole pipeline.

Available actions:
  download-submissions    fetch collected submissions from MarkUs
  download-starter-files  fetch assignment starter files from MarkUs
  render-documents        render submissions and starter files to PDF
  run-moss                submit submissions to the similarity service
  download-report         mirror the similarity report locally
  compile-report          cluster matches and build the final report
  select-cases            bundle selected cases for review`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// Status output styles.
var (
	styleRan     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.NopLogger()
	if cfg.Logging.Enabled {
		log, err = logging.NewLogger(cfg.Workdir, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer log.Close()
	}

	layout := workspace.New(cfg.Workdir)
	a := newApp(cfg, layout, log)
	defer a.Close()

	registry, err := a.registry()
	if err != nil {
		return err
	}

	requested := args
	if len(requested) == 0 {
		requested = cfg.Actions
	}
	if len(requested) == 0 {
		requested = registry.Names()
	}

	executor := pipeline.NewExecutor(registry, pipeline.NewMarkerStore(layout.Markers()), pipeline.Options{
		Force:  cfg.Force,
		Keys:   cfg.HasKey,
		Logger: log,
	})
	result, runErr := executor.Execute(cmd.Context(), requested)
	if result != nil {
		printResult(cmd, result)
	}
	return runErr
}

func printResult(cmd *cobra.Command, result *pipeline.Result) {
	for _, name := range result.Order {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, styleStatus(result.Statuses[name]))
	}
}

func styleStatus(s pipeline.Status) string {
	switch s {
	case pipeline.StatusRan:
		return styleRan.Render(string(s))
	case pipeline.StatusSkipped:
		return styleSkipped.Render(string(s))
	case pipeline.StatusFailed:
		return styleFailed.Render(string(s))
	case pipeline.StatusBlocked:
		return styleBlocked.Render(string(s))
	}
	return string(s)
}
