package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MarkUsProject/markusmoss/internal/config"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List pipeline actions and their dependencies",
	RunE:  runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}

func runActions(cmd *cobra.Command, args []string) error {
	a := newApp(config.Default(), workspace.New("."), nil)
	registry, err := a.registry()
	if err != nil {
		return err
	}

	for _, name := range registry.Names() {
		action, _ := registry.Get(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", action.Name)
		if len(action.DependsOn) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    after: %s\n", strings.Join(action.DependsOn, ", "))
		}
		if len(action.RequiredKeys) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    needs: %s\n", strings.Join(action.RequiredKeys, ", "))
		}
	}
	return nil
}
