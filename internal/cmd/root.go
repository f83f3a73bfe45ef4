// Package cmd wires the markusmoss command-line interface: flags,
// configuration loading, and the subcommands driving the pipeline.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MarkUsProject/markusmoss/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "markusmoss",
	Short: "Build plagiarism reports from MarkUs submissions via MOSS",
	Long: `Markusmoss downloads collected submissions from a MarkUs course,
submits them to the MOSS similarity service, mirrors the resulting
report, clusters matches into cases, and compiles a reviewer-ready
final report.

Each pipeline action records a completion marker under the working
directory, so re-running the tool only performs outstanding work.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./.markusmossrc)")
	rootCmd.PersistentFlags().StringP("workdir", "w", "", "working directory for downloaded and generated files")
	rootCmd.PersistentFlags().String("course", "", "MarkUs course name")
	rootCmd.PersistentFlags().StringP("assignment", "a", "", "MarkUs assignment short identifier")
	rootCmd.PersistentFlags().StringP("language", "l", "", "submission language (e.g. python, java, c)")
	rootCmd.PersistentFlags().StringSlice("groups", nil, "restrict the run to these group names")
	rootCmd.PersistentFlags().String("file-glob", "", "glob restricting which submission files are considered")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "re-run actions even when completion markers exist")
	rootCmd.PersistentFlags().String("log-level", "", "debug log level (debug, info, warn, error)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	_ = viper.BindPFlag("markus.course", rootCmd.PersistentFlags().Lookup("course"))
	_ = viper.BindPFlag("markus.assignment", rootCmd.PersistentFlags().Lookup("assignment"))
	_ = viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("language"))
	_ = viper.BindPFlag("groups", rootCmd.PersistentFlags().Lookup("groups"))
	_ = viper.BindPFlag("file_glob", rootCmd.PersistentFlags().Lookup("file-glob"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".markusmossrc")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MARKUSMOSS")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MARKUSMOSS_MARKUS_API_KEY for markus.api_key
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
