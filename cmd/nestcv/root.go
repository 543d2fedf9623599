package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/nestcv/pkg/log"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nestcv",
		Short: "nestcv - nested cross-validation for classification experiments",
		Long: `nestcv evaluates combinations of data sources, feature selection algorithms,
classifiers and feature counts with nested cross-validation.

Every unit of work is saved to the output directory, so a run can be
interrupted and resumed, and several processes can share one experiment.`,
		Version:      version,
		SilenceUsage: true,
	}

	debug := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	logFile := cmd.PersistentFlags().String("log-file", "", "Also write logs to this file, rotated at 100MB")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := "info"
		if *debug {
			level = "debug"
		}
		var w io.Writer = os.Stderr
		if *logFile != "" {
			w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   *logFile,
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			})
		}
		return log.SetupLogger(level, w)
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newFoldsCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "nestcv "+version)
		},
	}
}

func execute() error {
	return newRootCommand().Execute()
}
