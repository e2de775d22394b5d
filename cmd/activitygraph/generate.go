package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"activitygraph/internal/graph"
	appLog "activitygraph/internal/log"
	"activitygraph/internal/render"
)

var (
	flagHTMLOut string
	flagCSSOut  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Output the generated html into a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyGenerationFlags(cmd, cfg)
		applyExternalFlags(cmd, cfg)

		years := graph.Gather(collectEvents(cmd.Context(), cfg))
		ext := render.LoadExternal(cfg.External)

		// With a separate stylesheet the html links to it by relative
		// path; otherwise the css is inlined in a <style> element.
		cssHref := ""
		if flagCSSOut != "" {
			if rel, err := filepath.Rel(filepath.Dir(flagHTMLOut), flagCSSOut); err == nil {
				cssHref = filepath.ToSlash(rel)
			}
		}

		html := render.HTML(ext, cssHref, years)
		if err := os.WriteFile(flagHTMLOut, []byte(html), 0o644); err != nil {
			return fmt.Errorf("writing html: %w", err)
		}
		appLog.Info("wrote html", "path", flagHTMLOut)

		if flagCSSOut != "" {
			if err := os.WriteFile(flagCSSOut, []byte(render.CSS(ext)), 0o644); err != nil {
				return fmt.Errorf("writing css: %w", err)
			}
			appLog.Info("wrote css", "path", flagCSSOut)
		}
		return nil
	},
}

func init() {
	addGenerationFlags(generateCmd)
	addExternalFlags(generateCmd)
	generateCmd.Flags().StringVarP(&flagHTMLOut, "html", "o", "activity-graph.html",
		"the file that the resulting html will be printed out to")
	generateCmd.Flags().StringVarP(&flagCSSOut, "css", "c", "",
		"the file that the stylesheet will be printed out to (if not set, it will be included in the html inside a style-element)")
	rootCmd.AddCommand(generateCmd)
}
