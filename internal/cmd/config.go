package cmd

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/MarkUsProject/markusmoss/internal/config"
)

// rcFileName is the default config file looked up in the working
// directory and $HOME.
const rcFileName = ".markusmossrc"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create the markusmoss configuration",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Write a config file with default values",
	Long: `Write a config file with default values, to ` + rcFileName + ` in the
current directory unless a path is given. Fill in the markus and moss
sections before running the pipeline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigGenerate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGenerateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	path := rcFileName
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := toml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
