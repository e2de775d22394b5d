package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"activitygraph/internal/config"
	appLog "activitygraph/internal/log"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "activitygraph <command>",
	Short: "Generates a nice activity graph from a bunch of git repositories",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case quiet:
			appLog.SetLevel(appLog.LevelQuiet)
		case verbose:
			appLog.SetLevel(appLog.LevelDebug)
		default:
			appLog.SetLevel(appLog.LevelInfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "prints verbose information")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disables all prints")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: the config file if
// one was given, defaults otherwise, with command-line overrides
// applied on top by the individual commands.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
