package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"activitygraph/internal/graph"
	"activitygraph/internal/render"
)

var stdoutCmd = &cobra.Command{
	Use:   "stdout",
	Short: "Prints a visualization into stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyGenerationFlags(cmd, cfg)

		years := graph.Gather(collectEvents(cmd.Context(), cfg))
		fmt.Println(render.Text(years))
		return nil
	},
}

func init() {
	addGenerationFlags(stdoutCmd)
	rootCmd.AddCommand(stdoutCmd)
}
