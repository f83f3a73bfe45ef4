package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MarkUsProject/markusmoss/internal/config"
	"github.com/MarkUsProject/markusmoss/internal/pipeline"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which pipeline actions have completed",
	Long:  `Display the completion marker recorded for each pipeline action in the working directory.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	layout := workspace.New(cfg.Workdir)

	a := newApp(cfg, layout, nil)
	registry, err := a.registry()
	if err != nil {
		return err
	}

	markers := pipeline.NewMarkerStore(layout.Markers())
	for _, name := range registry.Names() {
		marker, ok, err := markers.Load(name)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s %s (run %s)\n",
				name, styleRan.Render("completed"),
				marker.CompletedAt.Format("2006-01-02 15:04:05"), marker.RunID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, styleSkipped.Render("pending"))
		}
	}
	return nil
}
