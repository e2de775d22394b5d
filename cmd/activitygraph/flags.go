package main

import (
	"context"

	"github.com/spf13/cobra"

	"activitygraph/internal/config"
	"activitygraph/internal/gitlog"
	"activitygraph/internal/model"
)

// Generation flags shared by generate, stdout and serve. They override
// the config file only when explicitly set.
var (
	flagInputs []string
	flagDepth  int
	flagAuthor string
	flagPull   bool

	flagExtHead   string
	flagExtHeader string
	flagExtFooter string
	flagExtCSS    string
)

func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagInputs, "input", "i", nil,
		"path(s) to the directory (or directories) containing the repositories you want to include")
	cmd.Flags().IntVarP(&flagDepth, "depth", "d", 0,
		"how many subdirectories deep the program should search (0 = no limit)")
	cmd.Flags().StringVarP(&flagAuthor, "author", "a", "",
		"regex that matches the author(s) whose commits are being counted (if not set, all commits will be counted)")
	cmd.Flags().BoolVar(&flagPull, "pull", false,
		"pull the git repositories before analysis (warning: this will generally increase latency a lot)")
}

func addExternalFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagExtHead, "external-head", "",
		"a html file that will be pasted in the <head> element")
	cmd.Flags().StringVar(&flagExtHeader, "external-header", "",
		"a html file that will be pasted at the beginning of the <body> element")
	cmd.Flags().StringVar(&flagExtFooter, "external-footer", "",
		"a html file that will be pasted at the end of the <body> element")
	cmd.Flags().StringVar(&flagExtCSS, "external-css", "",
		"a css file that will be pasted at the end of the css")
}

func applyGenerationFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("input") {
		cfg.Inputs = flagInputs
	}
	if cmd.Flags().Changed("depth") {
		cfg.Depth = flagDepth
	}
	if cmd.Flags().Changed("author") {
		cfg.Author = flagAuthor
	}
	if cmd.Flags().Changed("pull") {
		cfg.Pull = flagPull
	}
}

func applyExternalFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("external-head") {
		cfg.External.Head = flagExtHead
	}
	if cmd.Flags().Changed("external-header") {
		cfg.External.Header = flagExtHeader
	}
	if cmd.Flags().Changed("external-footer") {
		cfg.External.Footer = flagExtFooter
	}
	if cmd.Flags().Changed("external-css") {
		cfg.External.CSS = flagExtCSS
	}
}

// collectEvents runs the scanning half of the pipeline: find the
// repositories, then read every commit timestamp out of them. Per-repo
// failures are logged inside the scanner and do not abort the run.
func collectEvents(ctx context.Context, cfg *config.Config) []model.Event {
	repos := gitlog.FindRepositories(cfg.Inputs, cfg.Depth)
	scanner := &gitlog.Scanner{Author: cfg.Author, Pull: cfg.Pull}
	events, _ := scanner.CommitTimes(ctx, repos)
	return events
}
